package interfaces

import (
	"context"

	domaintypes "deskbridge/internal/domain/types"
)

// KeyService validates, installs and clears user keys.
type KeyService interface {
	ValidateUserKey(userID domaintypes.UserID, key []byte) (bool, error)
	SetUserKey(userID domaintypes.UserID, key []byte) error
	ClearKeys(userID domaintypes.UserID) error
	AuthStatus(userID domaintypes.UserID) (domaintypes.AuthStatus, error)
	// UserFingerprint decrypts the user's verification artifact with the
	// installed key and renders its fingerprint.
	UserFingerprint(userID domaintypes.UserID) (domaintypes.Fingerprint, error)
}

// FingerprintService renders the fingerprint of a public key for a user.
type FingerprintService interface {
	Fingerprint(userID domaintypes.UserID, publicKey []byte) (domaintypes.Fingerprint, error)
}

// FingerprintUI shows a pairing fingerprint for the user to compare.
type FingerprintUI interface {
	ShowFingerprint(ctx context.Context, fp domaintypes.Fingerprint) error
}

// FingerprintApprover asks the user whether a pairing fingerprint matches.
type FingerprintApprover interface {
	ApproveFingerprint(ctx context.Context, fp domaintypes.Fingerprint) (bool, error)
}

// Broadcaster publishes system events such as "unlocked".
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, userID domaintypes.UserID)
}

// Biometrics is the companion's platform biometric prompt.
type Biometrics interface {
	Status(ctx context.Context) domaintypes.BiometricStatus
	StatusForUser(ctx context.Context, userID domaintypes.UserID) domaintypes.BiometricStatus
	Authenticate(ctx context.Context) (bool, error)
	// UnlockForUser prompts and returns the user key, or nil when the user
	// cancels.
	UnlockForUser(ctx context.Context, userID domaintypes.UserID) ([]byte, error)
}
