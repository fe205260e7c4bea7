package biometric

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
)

// Responses a companion sends for biometricUnlock.
const (
	ResponseUnlocked     = "unlocked"
	ResponseNotAvailable = "not available"
	ResponseNotEnabled   = "not enabled"
	ResponseNotSupported = "not supported"
	ResponseNotUnlocked  = "not unlocked"
	ResponseCanceled     = "canceled"
	ResponseAvailable    = "available"
)

// EventUnlocked is broadcast once a released key has been installed and verified.
const EventUnlocked = "unlocked"

// ErrUserKeyWrong is returned when the released key fails validation. Local
// keys for the user have been cleared by the time it is returned.
var ErrUserKeyWrong = errors.New("userkey wrong")

// Error carries the companion's literal reason for refusing an unlock.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var refusals = map[string]bool{
	ResponseNotAvailable: true,
	ResponseNotEnabled:   true,
	ResponseNotSupported: true,
	ResponseNotUnlocked:  true,
	ResponseCanceled:     true,
}

// Flow runs the unlock sub-flow.
type Flow struct {
	keys  domain.KeyService
	state domain.BiometricStateStore
	bus   domain.Broadcaster
}

// New returns a Flow. bus may be nil.
func New(keys domain.KeyService, state domain.BiometricStateStore, bus domain.Broadcaster) *Flow {
	return &Flow{keys: keys, state: state, bus: bus}
}

// Handle applies a decrypted biometricUnlock response for userID.
//
// Steps:
//  1. A refusal response returns *Error with the literal reason.
//  2. If biometric unlock is not enabled locally, an "unlocked" response
//     enables it; nothing else happens on this path.
//  3. An already unlocked account is left alone.
//  4. For "unlocked", the released key (userKeyB64, else keyB64) is validated
//     against the account; a wrong key clears local keys.
//  5. The key is installed and checked by decrypting the fingerprint
//     artifact; failure clears keys again.
//  6. Success broadcasts EventUnlocked.
func (f *Flow) Handle(ctx context.Context, userID domain.UserID, msg domain.ApplicationMessage) error {
	resp, _ := msg.ResponseString()
	if refusals[resp] {
		return &Error{Reason: resp}
	}

	enabled, err := f.state.BiometricUnlockEnabled(userID)
	if err != nil {
		return fmt.Errorf("read biometric state: %w", err)
	}
	if !enabled {
		if resp == ResponseUnlocked {
			log.Info().Str("userId", userID.String()).Msg("Biometric unlock enabled")
			return f.state.SetBiometricUnlockEnabled(userID, true)
		}
		return nil
	}

	status, err := f.keys.AuthStatus(userID)
	if err != nil {
		return fmt.Errorf("read auth status: %w", err)
	}
	if status == domain.Unlocked {
		return nil
	}
	if resp != ResponseUnlocked {
		return nil
	}

	keyB64 := msg.UserKeyB64
	if keyB64 == "" {
		keyB64 = msg.KeyB64
	}
	if keyB64 == "" {
		return fmt.Errorf("%w: response carries no key", ErrUserKeyWrong)
	}
	key, err := crypto.FromB64(keyB64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserKeyWrong, err)
	}
	defer crypto.Wipe(key)

	valid, err := f.keys.ValidateUserKey(userID, key)
	if err != nil || !valid {
		if err != nil {
			log.Error().Err(err).Str("userId", userID.String()).Msg("Unable to validate user key")
		}
		return f.reject(userID)
	}
	if err := f.keys.SetUserKey(userID, key); err != nil {
		return fmt.Errorf("install user key: %w", err)
	}
	if _, err := f.keys.UserFingerprint(userID); err != nil {
		log.Error().Err(err).Str("userId", userID.String()).Msg("Unable to verify key")
		return f.reject(userID)
	}

	if f.bus != nil {
		f.bus.Broadcast(ctx, EventUnlocked, userID)
	}
	return nil
}

func (f *Flow) reject(userID domain.UserID) error {
	if err := f.keys.ClearKeys(userID); err != nil {
		return errors.Join(ErrUserKeyWrong, err)
	}
	return ErrUserKeyWrong
}
