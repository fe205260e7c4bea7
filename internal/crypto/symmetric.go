package crypto

import (
	"crypto/rand"
	"fmt"
)

// EncType identifies the cipher suite of an EncString.
type EncType int

const (
	// AesCbc256B64 is AES-256-CBC without authentication (32-byte keys).
	AesCbc256B64 EncType = 0
	// AesCbc256HmacSha256B64 is AES-256-CBC with an HMAC-SHA256 tag (64-byte keys).
	AesCbc256HmacSha256B64 EncType = 2
)

const (
	encKeySize = 32
	macKeySize = 32
	// SharedSecretSize is the number of random bytes a companion returns during pairing.
	SharedSecretSize = encKeySize + macKeySize
)

// SymmetricKey is the key material for EncString encryption: a 32-byte AES key
// and, for the authenticated suite, a 32-byte HMAC key.
type SymmetricKey struct {
	Type   EncType
	EncKey []byte
	MacKey []byte
}

// NewSymmetricKey builds a key from raw bytes. 64 bytes select the
// authenticated suite; 32 bytes select plain AES-CBC.
func NewSymmetricKey(raw []byte) (SymmetricKey, error) {
	switch len(raw) {
	case SharedSecretSize:
		k := make([]byte, SharedSecretSize)
		copy(k, raw)
		return SymmetricKey{Type: AesCbc256HmacSha256B64, EncKey: k[:encKeySize], MacKey: k[encKeySize:]}, nil
	case encKeySize:
		k := make([]byte, encKeySize)
		copy(k, raw)
		return SymmetricKey{Type: AesCbc256B64, EncKey: k}, nil
	default:
		return SymmetricKey{}, fmt.Errorf("unsupported symmetric key length %d", len(raw))
	}
}

// GenerateSymmetricKey returns a fresh 64-byte authenticated key.
func GenerateSymmetricKey() (SymmetricKey, error) {
	raw := make([]byte, SharedSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return SymmetricKey{}, err
	}
	defer Wipe(raw)
	return NewSymmetricKey(raw)
}

// Bytes returns the concatenated key material.
func (k SymmetricKey) Bytes() []byte {
	out := make([]byte, 0, len(k.EncKey)+len(k.MacKey))
	out = append(out, k.EncKey...)
	return append(out, k.MacKey...)
}

// KeyB64 is the base64 form used when handing a key across the channel.
func (k SymmetricKey) KeyB64() string { return B64(k.Bytes()) }

// IsZero reports whether k carries no key material.
func (k SymmetricKey) IsZero() bool { return len(k.EncKey) == 0 }

// Destroy wipes the key material in place.
func (k *SymmetricKey) Destroy() {
	Wipe(k.EncKey, k.MacKey)
	k.EncKey, k.MacKey = nil, nil
}
