package store

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"deskbridge/internal/domain"
)

const appIDFile = "app_id.json"

type appIDRecord struct {
	AppID domain.AppID `json:"app_id"`
}

// AppIDFileStore persists the application instance id for this install.
type AppIDFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAppIDFileStore returns an AppIDFileStore rooted at dir.
func NewAppIDFileStore(dir string) *AppIDFileStore {
	return &AppIDFileStore{dir: dir}
}

// AppID returns the stored id, generating and saving a random UUID on first use.
func (s *AppIDFileStore) AppID() (domain.AppID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, appIDFile)
	var rec appIDRecord
	if err := readJSON(path, &rec); err != nil {
		return "", err
	}
	if rec.AppID != "" {
		return rec.AppID, nil
	}

	rec.AppID = domain.AppID(uuid.NewString())
	if err := writeJSON(path, rec, 0o600); err != nil {
		return "", err
	}
	return rec.AppID, nil
}

// Compile-time assertion that AppIDFileStore implements domain.AppIDStore.
var _ domain.AppIDStore = (*AppIDFileStore)(nil)
