// Package artifact resolves where the build leaves the signed bundle for a
// platform, renames it to its platform-qualified upload name and reads the
// detached signature that goes into the update manifest.
package artifact
