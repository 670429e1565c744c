// Package endpoint points the app's updater at the manifest gist without releasing.
package endpoint
