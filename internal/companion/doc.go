// Package companion is the desktop end of the channel: a native messaging
// host that pairs with clients, keeps one shared secret per app id, and
// answers biometric commands from a passphrase-sealed key vault.
package companion
