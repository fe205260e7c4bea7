package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
)

var (
	// ErrSessionDestroyed is returned when Complete runs after Destroy.
	ErrSessionDestroyed = errors.New("key exchange session destroyed")
	// ErrNoSharedSecret is returned when the peer's reply carries no secret.
	ErrNoSharedSecret = errors.New("setupEncryption reply without shared secret")
)

// Service starts key exchange sessions.
type Service struct {
	bits int
}

// New returns a Service generating keys of crypto.PairingKeyBits.
func New() *Service { return &Service{bits: crypto.PairingKeyBits} }

// Session is one pairing attempt. It owns the ephemeral private key until
// Complete or Destroy.
type Session struct {
	userID domain.UserID

	mu   sync.Mutex
	pair *crypto.RSAKeyPair
	pub  []byte
}

// Begin generates a fresh key pair. Sessions are never reused: every
// attempt gets a new pair.
func (s *Service) Begin(userID domain.UserID) (*Session, error) {
	pair, err := crypto.GenerateRSAKeyPair(s.bits)
	if err != nil {
		return nil, err
	}
	return &Session{userID: userID, pair: pair, pub: pair.Public}, nil
}

// PublicKey returns the SPKI DER public key sent to the peer.
func (s *Session) PublicKey() []byte { return s.pub }

// SetupMessage builds the unencrypted setupEncryption request.
func (s *Session) SetupMessage(messageID int64, now time.Time) domain.ApplicationMessage {
	return domain.ApplicationMessage{
		Command:   domain.CommandSetupEncryption.String(),
		MessageID: messageID,
		PublicKey: crypto.B64(s.pub),
		UserID:    s.userID,
		Timestamp: now.UnixMilli(),
	}
}

// Complete decrypts the peer's base64 secret blob and derives the symmetric
// key. The private key is destroyed whatever the outcome.
func (s *Session) Complete(sharedSecretB64 string) (crypto.SymmetricKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.destroyLocked()

	if s.pair == nil {
		return crypto.SymmetricKey{}, ErrSessionDestroyed
	}
	if sharedSecretB64 == "" {
		return crypto.SymmetricKey{}, ErrNoSharedSecret
	}
	blob, err := crypto.FromB64(sharedSecretB64)
	if err != nil {
		return crypto.SymmetricKey{}, fmt.Errorf("decode shared secret: %w", err)
	}
	raw, err := crypto.RSADecryptSHA1(s.pair.Private, blob)
	if err != nil {
		return crypto.SymmetricKey{}, fmt.Errorf("decrypt shared secret: %w", err)
	}
	defer crypto.Wipe(raw)
	return crypto.NewSymmetricKey(raw)
}

// Destroy clears the private key.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked()
}

func (s *Session) destroyLocked() {
	if s.pair != nil {
		s.pair.Destroy()
		s.pair = nil
	}
}

// Active reports whether the private key is still held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair != nil
}
