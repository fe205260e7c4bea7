package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
)

var (
	// ErrUnknownAccount is returned for user ids with no stored account.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrLocked is returned when an operation needs the user key and none is installed.
	ErrLocked = errors.New("account is locked")
)

// Service validates and holds user keys.
//
// Each account stores an RSA key pair: the public half in the clear and the
// private half sealed with the user key. A candidate key is valid when it
// opens the private key and the result matches the stored public key.
type Service struct {
	accounts     domain.AccountStore
	fingerprints domain.FingerprintService

	mu       sync.Mutex
	unlocked map[domain.UserID]crypto.SymmetricKey
}

// New returns a key service over the given account store.
func New(accounts domain.AccountStore, fingerprints domain.FingerprintService) *Service {
	return &Service{
		accounts:     accounts,
		fingerprints: fingerprints,
		unlocked:     make(map[domain.UserID]crypto.SymmetricKey),
	}
}

// CreateAccount generates a user key and key pair for userID and stores the
// verification material. The raw user key is returned for sealing into the
// companion's vault; the account is left locked.
func (s *Service) CreateAccount(userID domain.UserID) ([]byte, domain.Account, error) {
	raw := make([]byte, crypto.SharedSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, domain.Account{}, err
	}
	userKey, err := crypto.NewSymmetricKey(raw)
	if err != nil {
		return nil, domain.Account{}, err
	}
	defer userKey.Destroy()

	pair, err := crypto.GenerateRSAKeyPair(crypto.PairingKeyBits)
	if err != nil {
		return nil, domain.Account{}, err
	}
	defer pair.Destroy()

	der, err := crypto.MarshalRSAPrivateKey(pair.Private)
	if err != nil {
		return nil, domain.Account{}, err
	}
	defer crypto.Wipe(der)

	enc, err := crypto.Encrypt(userKey, der)
	if err != nil {
		return nil, domain.Account{}, err
	}
	account := domain.Account{
		UserID:              userID,
		PublicKey:           pair.Public,
		EncryptedPrivateKey: enc.String(),
		CreatedUTC:          time.Now().Unix(),
	}
	if err := s.accounts.SaveAccount(account); err != nil {
		return nil, domain.Account{}, err
	}
	return raw, account, nil
}

// ValidateUserKey reports whether key opens userID's verification material.
func (s *Service) ValidateUserKey(userID domain.UserID, key []byte) (bool, error) {
	account, ok, err := s.accounts.LoadAccount(userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrUnknownAccount
	}
	userKey, err := crypto.NewSymmetricKey(key)
	if err != nil {
		return false, nil
	}
	defer userKey.Destroy()

	pub, err := derivePublicKey(account, userKey)
	if err != nil {
		return false, nil
	}
	return bytes.Equal(pub, account.PublicKey), nil
}

// SetUserKey installs key for userID, unlocking the account.
func (s *Service) SetUserKey(userID domain.UserID, key []byte) error {
	userKey, err := crypto.NewSymmetricKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.unlocked[userID]; ok {
		old.Destroy()
	}
	s.unlocked[userID] = userKey
	return nil
}

// ClearKeys drops any installed key for userID.
func (s *Service) ClearKeys(userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.unlocked[userID]; ok {
		k.Destroy()
		delete(s.unlocked, userID)
	}
	return nil
}

// AuthStatus reports LoggedOut for unknown users, Unlocked when a key is
// installed and Locked otherwise.
func (s *Service) AuthStatus(userID domain.UserID) (domain.AuthStatus, error) {
	_, ok, err := s.accounts.LoadAccount(userID)
	if err != nil {
		return domain.LoggedOut, err
	}
	if !ok {
		return domain.LoggedOut, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.unlocked[userID]; ok {
		return domain.Unlocked, nil
	}
	return domain.Locked, nil
}

// UserFingerprint decrypts the private key with the installed user key and
// renders the fingerprint of its public half.
func (s *Service) UserFingerprint(userID domain.UserID) (domain.Fingerprint, error) {
	account, ok, err := s.accounts.LoadAccount(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownAccount
	}

	s.mu.Lock()
	userKey, unlocked := s.unlocked[userID]
	s.mu.Unlock()
	if !unlocked {
		return nil, ErrLocked
	}

	pub, err := derivePublicKey(account, userKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt verification artifact: %w", err)
	}
	return s.fingerprints.Fingerprint(userID, pub)
}

// PublicFingerprint renders the fingerprint of the stored public key; it does
// not need the account to be unlocked.
func (s *Service) PublicFingerprint(userID domain.UserID) (domain.Fingerprint, error) {
	account, ok, err := s.accounts.LoadAccount(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownAccount
	}
	return s.fingerprints.Fingerprint(userID, account.PublicKey)
}

func derivePublicKey(account domain.Account, userKey crypto.SymmetricKey) ([]byte, error) {
	enc, err := crypto.ParseEncString(account.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	der, err := crypto.Decrypt(userKey, enc)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(der)

	priv, err := crypto.ParseRSAPrivateKey(der)
	if err != nil {
		return nil, err
	}
	return x509.MarshalPKIXPublicKey(&priv.PublicKey)
}

// Compile-time assertion that Service implements domain.KeyService.
var _ domain.KeyService = (*Service)(nil)
