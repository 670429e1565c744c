// Package appmanifest reads and edits the desktop application's configuration
// file (tauri.conf.json): the product name and version, and the updater
// endpoint list. Unknown keys are preserved on every write.
package appmanifest
