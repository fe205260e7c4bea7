// Package app wires application dependencies for the CLI and the companion
// host.
//
// It loads Config from YAML, builds the file stores, services and the
// channel from it, and exposes them via the Wire struct. App layers the
// user-facing operations (unlock, status) on top.
package app
