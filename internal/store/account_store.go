package store

import (
	"path/filepath"
	"sort"
	"sync"

	"deskbridge/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists local account verification material to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

// SaveAccount stores or replaces the account for account.UserID.
func (s *AccountFileStore) SaveAccount(account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, accountsFile)
	accounts := make(map[domain.UserID]domain.Account)
	if err := readJSON(path, &accounts); err != nil {
		return err
	}
	accounts[account.UserID] = account
	return writeJSON(path, accounts, 0o600)
}

// LoadAccount retrieves the account for userID.
func (s *AccountFileStore) LoadAccount(userID domain.UserID) (domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[domain.UserID]domain.Account)
	if err := readJSON(filepath.Join(s.dir, accountsFile), &accounts); err != nil {
		return domain.Account{}, false, err
	}
	account, ok := accounts[userID]
	return account, ok, nil
}

// ListAccounts returns every stored account ordered by user id.
func (s *AccountFileStore) ListAccounts() ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[domain.UserID]domain.Account)
	if err := readJSON(filepath.Join(s.dir, accountsFile), &accounts); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
