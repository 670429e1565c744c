// Package prompt implements the interactive terminal dialogs of a release:
// the version bump menu, single-line inputs for notes and missing settings,
// and the run summary box.
package prompt
