// Package atomicfile replaces small files in place: the new content is
// checksummed, staged next to the target and swapped in with a rename, so a
// reader never observes a half-written configuration or version file.
package atomicfile
