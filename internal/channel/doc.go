// Package channel implements the client end of the secure native messaging
// channel to a desktop companion.
//
// A Channel owns one port at a time and moves through
// Disconnected → Connecting → Connected. The first message that needs
// encryption runs a pairing handshake (fresh RSA-2048 key pair, companion
// returns an RSA-OAEP encrypted 64-byte secret); every later application
// message is sealed with that secret. Inbound frames are read by a single
// goroutine per port and handled strictly in arrival order: control commands
// change channel state, application responses settle the pending request
// with the same message id.
//
// Transport failures and the invalidateEncryption / wrongUserId commands
// drop the secret and the port, so the next Send pairs again from scratch.
// Reconnection is caller driven: there is no retry loop.
package channel
