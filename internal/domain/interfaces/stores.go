package interfaces

import domaintypes "deskbridge/internal/domain/types"

// AppIDStore returns the persistent application instance id, creating it on first use.
type AppIDStore interface {
	AppID() (domaintypes.AppID, error)
}

// BiometricStateStore persists per-user biometric flags.
type BiometricStateStore interface {
	BiometricUnlockEnabled(userID domaintypes.UserID) (bool, error)
	SetBiometricUnlockEnabled(userID domaintypes.UserID, enabled bool) error
	FingerprintValidated(userID domaintypes.UserID) (bool, error)
	SetFingerprintValidated(userID domaintypes.UserID, validated bool) error
}

// AccountStore persists local account verification material.
type AccountStore interface {
	SaveAccount(account domaintypes.Account) error
	LoadAccount(userID domaintypes.UserID) (domaintypes.Account, bool, error)
	ListAccounts() ([]domaintypes.Account, error)
}

// VaultStore keeps user keys sealed under a passphrase.
type VaultStore interface {
	SaveUserKey(passphrase string, userID domaintypes.UserID, key []byte) error
	LoadUserKey(passphrase string, userID domaintypes.UserID) ([]byte, error)
}
