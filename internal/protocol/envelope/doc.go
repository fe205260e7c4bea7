// Package envelope encodes and decodes the outer native messaging structure
// {appId, message} and the control messages that travel beside it.
//
// Wire forms
//
//   - Plain setup:  {"appId": ..., "message": {"command": "setupEncryption", ...}}
//   - Encrypted:    {"appId": ..., "message": {"encryptedString", "encryptionType", "data", "iv", "mac"}}
//   - Control:      {"command": ..., "appId": ..., "messageId": ..., "sharedSecret": ...}
//   - Companion reply: {"appId": ..., "messageId": ..., "message": "2.<iv>|<data>|<mac>"}
//
// The encrypted payload is always written in its flattened object form so
// older companions can parse it; Payload accepts the string, flattened and
// plaintext forms on input.
package envelope
