// Package archive unpacks downloaded stack artifacts. Tarballs are handed to
// the external tar utility; zip archives are walked entry by entry. The
// extractor always performs a full extraction when invoked, overwriting
// existing files; callers decide whether extraction is needed at all.
package archive
