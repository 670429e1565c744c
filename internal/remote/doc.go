// Package remote talks to GitHub: it reuses or creates the release for a
// version, uploads the signed bundle as a release asset and keeps the update
// manifest in a private gist.
package remote
