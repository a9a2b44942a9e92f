// Package provision orchestrates the dependency chain: for each entry it
// checks presence and version compatibility, fetches and unpacks the missing
// artifact (or bootstraps it through the system package manager), and
// registers the install location in persistent environment state. Entries
// run strictly in order and the chain stops at the first fatal failure,
// since later entries depend on environment state written by earlier ones.
package provision
