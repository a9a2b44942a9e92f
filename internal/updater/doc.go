// Package updater checks GitHub Releases for a newer hadup binary. A
// daily-cached version check powers the startup banner; the tool never
// replaces its own executable; operators upgrade through their normal
// install channel.
package updater
