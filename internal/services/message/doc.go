// Package message is the secure envelope transport: it encrypts outbound
// application messages with the channel's shared key and decrypts, parses and
// freshness-checks inbound ones.
package message
