// Package release runs the release workflow of a desktop app for the host platform.
//
// A run bumps the app version, builds and signs the bundle, publishes it as a
// GitHub release asset and records it in the platform's update manifest gist.
// Stages run strictly in order; the first failure stops the run, restores the
// previous version if it had already been bumped and is returned to the caller.
package release
