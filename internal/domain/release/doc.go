// Package release holds the domain model of a desktop app release:
// the three-segment application version and how it is bumped, the platform
// keys builds are published under, the update manifest the app polls, and
// the classified errors every release stage reports.
package release
