package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
)

// DefaultFreshnessWindow is the maximum clock distance tolerated on inbound messages.
const DefaultFreshnessWindow = 10 * time.Second

var (
	// ErrNoSharedSecret means decryption was requested before a key exists.
	// It reports malformed local state rather than bad input.
	ErrNoSharedSecret = errors.New("no shared secret")
)

// Verdict classifies an inbound message.
type Verdict int

const (
	// Accepted messages were decrypted (or plaintext) and are fresh.
	Accepted Verdict = iota
	// Stale messages fell outside the freshness window and are dropped.
	Stale
	// Undecryptable messages failed to decrypt or parse and are dropped.
	Undecryptable
)

func (v Verdict) String() string {
	switch v {
	case Stale:
		return "stale"
	case Undecryptable:
		return "undecryptable"
	default:
		return "accepted"
	}
}

// Service encrypts and decrypts application messages.
//
// High-level flow:
//   - Outbound: JSON-serialise the message and seal it as an EncString.
//   - Inbound: open the EncString, parse the JSON, then drop it unless its
//     timestamp lies within the freshness window of the local clock.
type Service struct {
	window time.Duration
	now    func() time.Time
}

// New returns a Service with the given freshness window (0 selects the default).
func New(window time.Duration) *Service {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Service{window: window, now: time.Now}
}

// WithClock replaces the clock, for tests and simulations.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.now() }

// EncryptOutbound seals msg with key.
func (s *Service) EncryptOutbound(key crypto.SymmetricKey, msg domain.ApplicationMessage) (crypto.EncString, error) {
	if key.IsZero() {
		return crypto.EncString{}, ErrNoSharedSecret
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return crypto.EncString{}, fmt.Errorf("marshal message: %w", err)
	}
	return crypto.Encrypt(key, raw)
}

// DecryptInbound opens p. Plaintext payloads skip decryption but still pass
// the freshness check. Only ErrNoSharedSecret is returned as an error; bad
// ciphertext and stale messages are reported through the verdict.
func (s *Service) DecryptInbound(key crypto.SymmetricKey, p envelope.Payload) (domain.ApplicationMessage, Verdict, error) {
	var msg domain.ApplicationMessage
	if p.Encrypted() {
		if key.IsZero() {
			return domain.ApplicationMessage{}, Undecryptable, ErrNoSharedSecret
		}
		raw, err := crypto.Decrypt(key, p.Enc)
		if err != nil {
			return domain.ApplicationMessage{}, Undecryptable, nil
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return domain.ApplicationMessage{}, Undecryptable, nil
		}
	} else {
		msg = p.Plain
	}

	if !s.Fresh(msg.Timestamp) {
		return msg, Stale, nil
	}
	return msg, Accepted, nil
}

// Fresh reports whether an epoch-millisecond timestamp lies within the window.
func (s *Service) Fresh(timestampMillis int64) bool {
	d := s.now().UnixMilli() - timestampMillis
	if d < 0 {
		d = -d
	}
	return d <= s.window.Milliseconds()
}
