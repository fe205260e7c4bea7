// Command deskbridge-companion is the desktop native messaging host.
//
// The browser (or deskbridge) starts it with the caller's origin as an
// argument and talks to it over stdin/stdout. Logs go to stderr. When no key
// vault exists yet the host answers "disconnected", as a desktop app that is
// not running would, and exits.
package main
