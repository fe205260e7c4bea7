// Package transport implements the native messaging port.
//
// Each message is a JSON value preceded by its length as a 4-byte
// little-endian unsigned integer, the framing browsers use to talk to native
// hosts over stdin/stdout. StreamPort frames any reader/writer pair;
// ExecDialer spawns the companion host and talks to it over its stdio; Pipe
// returns two connected in-memory ports for tests and embedded companions.
//
// All ports satisfy domain.Port. Send is safe for concurrent use; Recv is
// meant for a single reading goroutine.
package transport
