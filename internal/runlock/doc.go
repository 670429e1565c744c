// Package runlock keeps two releases from running in the same project at once.
//
// The lock is a marker file holding the owner's PID. A marker whose PID no
// longer belongs to a running process is considered stale and reclaimed.
package runlock
