// Package fetch downloads stack artifacts to local paths. Fetches are
// idempotent (an existing non-empty destination short-circuits without
// network access) and atomic (the transfer lands in a temp sibling that is
// renamed into place as the single commit point). Progress samples are
// emitted by polling from the calling goroutine, so an interrupted process
// leaves at most a temp file for the next run to clean up.
package fetch
