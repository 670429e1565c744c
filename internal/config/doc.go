// Package config loads and saves the two configuration files of javelin.
//
// Config is the operator's local JSON file (javelin.conf.json) with GitHub
// credentials, the signing key location and the manifest gist id. It is
// created empty on first run and filled in interactively.
//
// Profile is an optional YAML file (javelin.yaml) describing the project
// layout: where the app config and bundles live, how the build is invoked and
// how remote conflicts are handled. Its defaults match a stock Tauri project.
package config
