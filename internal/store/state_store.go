package store

import (
	"path/filepath"
	"sync"

	"deskbridge/internal/domain"
)

const stateFile = "biometric_state.json"

// StateFileStore persists per-user biometric flags.
type StateFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewStateFileStore returns a StateFileStore rooted at dir.
func NewStateFileStore(dir string) *StateFileStore {
	return &StateFileStore{dir: dir}
}

func (s *StateFileStore) load() (map[domain.UserID]domain.BiometricState, error) {
	m := make(map[domain.UserID]domain.BiometricState)
	if err := readJSON(filepath.Join(s.dir, stateFile), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *StateFileStore) update(userID domain.UserID, fn func(*domain.BiometricState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	st := m[userID]
	fn(&st)
	m[userID] = st
	return writeJSON(filepath.Join(s.dir, stateFile), m, 0o600)
}

func (s *StateFileStore) get(userID domain.UserID) (domain.BiometricState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return domain.BiometricState{}, err
	}
	return m[userID], nil
}

// BiometricUnlockEnabled reports whether the user opted into biometric unlock.
func (s *StateFileStore) BiometricUnlockEnabled(userID domain.UserID) (bool, error) {
	st, err := s.get(userID)
	return st.UnlockEnabled, err
}

// SetBiometricUnlockEnabled records the user's opt-in.
func (s *StateFileStore) SetBiometricUnlockEnabled(userID domain.UserID, enabled bool) error {
	return s.update(userID, func(st *domain.BiometricState) { st.UnlockEnabled = enabled })
}

// FingerprintValidated reports whether the last pairing fingerprint was confirmed.
func (s *StateFileStore) FingerprintValidated(userID domain.UserID) (bool, error) {
	st, err := s.get(userID)
	return st.FingerprintValidated, err
}

// SetFingerprintValidated records the outcome of a fingerprint confirmation.
func (s *StateFileStore) SetFingerprintValidated(userID domain.UserID, validated bool) error {
	return s.update(userID, func(st *domain.BiometricState) { st.FingerprintValidated = validated })
}

// Compile-time assertion that StateFileStore implements domain.BiometricStateStore.
var _ domain.BiometricStateStore = (*StateFileStore)(nil)
