// Package store provides file-based persistence for deskbridge.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk with atomic temp-file-and-rename writes.
// All methods are concurrency-safe via internal locking. Stored files live
// under the configured home directory.
//
// The package includes stores for:
//   - The application instance id (AppIDFileStore)
//   - Per-user biometric flags (StateFileStore)
//   - Account verification material (AccountFileStore)
//   - Passphrase-sealed user keys held by the companion (VaultFileStore)
package store
