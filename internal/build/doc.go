// Package build runs the external desktop bundle build with the updater
// signing key exported in its environment.
package build
