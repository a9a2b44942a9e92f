// Package cli wires the cobra command tree: provision, doctor, env, config,
// and version. Commands stay thin: they resolve configuration and hand off
// to the provision, chain, and envstore packages.
package cli
