package identity

import (
	"fmt"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
)

// Service exposes this install's identity.
//
// It provides:
//   - The application instance id that tags every envelope.
//   - Fingerprint phrases for pairing keys, keyed by user id.
type Service struct {
	appIDs domain.AppIDStore
	words  []string
}

// New returns an identity service backed by the given store. words may be
// nil, in which case fingerprints render as hex groups.
func New(appIDs domain.AppIDStore, words []string) *Service {
	return &Service{appIDs: appIDs, words: words}
}

// AppID returns the persistent application instance id.
func (s *Service) AppID() (domain.AppID, error) {
	id, err := s.appIDs.AppID()
	if err != nil {
		return "", fmt.Errorf("load app id: %w", err)
	}
	return id, nil
}

// Fingerprint renders the phrase for publicKey as seen by userID.
func (s *Service) Fingerprint(userID domain.UserID, publicKey []byte) (domain.Fingerprint, error) {
	if len(publicKey) == 0 {
		return nil, fmt.Errorf("fingerprint: no public key")
	}
	words, err := crypto.Fingerprint(userID.String(), publicKey, s.words)
	if err != nil {
		return nil, err
	}
	return domain.Fingerprint(words), nil
}

// Compile-time assertion that Service implements domain.FingerprintService.
var _ domain.FingerprintService = (*Service)(nil)
