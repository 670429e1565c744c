// Package version exposes build metadata of the javelin binary itself.
//
// This is not the version of the application being released: that one lives
// in the app manifest and is handled by the appmanifest repository.
// Version, Commit and BuildTime are injected at build time via Go ldflags.
package version
