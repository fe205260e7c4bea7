package store

import (
	"errors"
	"path/filepath"
	"sync"

	"deskbridge/internal/domain"
)

const vaultFile = "vault.json"

// ErrNoUserKey is returned when the vault holds no key for a user.
var ErrNoUserKey = errors.New("no user key in vault")

// VaultFileStore keeps user keys sealed under a passphrase
// (scrypt + XChaCha20-Poly1305, user id bound as associated data).
type VaultFileStore struct {
	dir    string
	mu     sync.Mutex
	params scryptParams
}

// NewVaultFileStore returns a VaultFileStore rooted at dir.
func NewVaultFileStore(dir string) *VaultFileStore {
	return &VaultFileStore{dir: dir, params: scryptParamsDefault()}
}

// SaveUserKey seals key for userID, replacing any previous entry.
func (s *VaultFileStore) SaveUserKey(passphrase string, userID domain.UserID, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bl, err := seal(passphrase, key, []byte(userID), s.params)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, vaultFile)
	entries := make(map[domain.UserID]sealedBlob)
	if err := readJSON(path, &entries); err != nil {
		return err
	}
	entries[userID] = bl
	return writeJSON(path, entries, 0o600)
}

// LoadUserKey opens the key for userID.
func (s *VaultFileStore) LoadUserKey(passphrase string, userID domain.UserID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[domain.UserID]sealedBlob)
	if err := readJSON(filepath.Join(s.dir, vaultFile), &entries); err != nil {
		return nil, err
	}
	bl, ok := entries[userID]
	if !ok {
		return nil, ErrNoUserKey
	}
	return open(passphrase, bl, []byte(userID))
}

// Exists reports whether the vault file is present.
func (s *VaultFileStore) Exists() bool {
	b, err := readFile(filepath.Join(s.dir, vaultFile))
	return err == nil && b != nil
}

// Compile-time assertion that VaultFileStore implements domain.VaultStore.
var _ domain.VaultStore = (*VaultFileStore)(nil)
