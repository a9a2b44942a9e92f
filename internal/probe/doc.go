// Package probe detects installed dependency versions. It shells out to
// dependency-specific version-query commands (e.g. `javac -version`), scans
// the combined output for a dotted-numeric version token, and compares it
// against a minimum-supported threshold.
package probe
