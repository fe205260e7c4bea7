// Package session runs the pairing handshake: a fresh RSA key pair per
// attempt, the public half sent in the clear, and the companion's shared
// secret decrypted with RSA-OAEP (SHA-1) into the channel's symmetric key.
package session
