// Package crypto exposes the primitives the pairing channel is built on.
//
// Contents
//
//   - RSA-2048 key pairs and RSA-OAEP with SHA-1 (GenerateRSAKeyPair,
//     RSAEncryptSHA1, RSADecryptSHA1) for the pairing handshake
//   - SymmetricKey and EncString: AES-256-CBC with an HMAC-SHA256 tag over
//     iv||data, rendered as "2.<iv>|<data>|<mac>"
//   - Word-phrase fingerprints of public keys (Fingerprint, HashPhrase)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Base64 helpers (B64, FromB64)
//
// # Notes
//
// Callers should treat returned secrets as sensitive and rely on Wipe or the
// Destroy methods when practical to reduce lifetime in memory.
package crypto
