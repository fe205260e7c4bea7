package companion

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/domain"
	"deskbridge/internal/store"
)

// ErrUnavailable is returned by VaultBiometrics when no authenticator is present.
var ErrUnavailable = errors.New("biometrics unavailable")

// VaultBiometrics releases user keys from a sealed vault. Prompt stands in
// for the platform authenticator; a nil Prompt always approves.
type VaultBiometrics struct {
	Vault      domain.VaultStore
	Passphrase string
	Available  bool
	Prompt     func(ctx context.Context, userID domain.UserID) (bool, error)
}

// Status reports whether the authenticator can be used at all.
func (b *VaultBiometrics) Status(context.Context) domain.BiometricStatus {
	if !b.Available {
		return domain.BiometricsHardwareUnavailable
	}
	return domain.BiometricsAvailable
}

// StatusForUser also checks that the vault holds a key for userID.
func (b *VaultBiometrics) StatusForUser(ctx context.Context, userID domain.UserID) domain.BiometricStatus {
	if s := b.Status(ctx); s != domain.BiometricsAvailable {
		return s
	}
	key, err := b.Vault.LoadUserKey(b.Passphrase, userID)
	switch {
	case errors.Is(err, store.ErrNoUserKey):
		return domain.BiometricsNotEnabledLocally
	case err != nil:
		log.Warn().Err(err).Str("userId", userID.String()).Msg("Unable to open vault")
		return domain.BiometricsUnlockNeeded
	}
	clear(key)
	return domain.BiometricsAvailable
}

// Authenticate runs the prompt without releasing a key.
func (b *VaultBiometrics) Authenticate(ctx context.Context) (bool, error) {
	if !b.Available {
		return false, ErrUnavailable
	}
	return b.prompt(ctx, "")
}

// UnlockForUser prompts, then returns userID's key. A declined prompt
// returns nil, nil.
func (b *VaultBiometrics) UnlockForUser(ctx context.Context, userID domain.UserID) ([]byte, error) {
	if !b.Available {
		return nil, ErrUnavailable
	}
	ok, err := b.prompt(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}
	return b.Vault.LoadUserKey(b.Passphrase, userID)
}

func (b *VaultBiometrics) prompt(ctx context.Context, userID domain.UserID) (bool, error) {
	if b.Prompt == nil {
		return true, nil
	}
	return b.Prompt(ctx, userID)
}

// AutoApprover answers fingerprint checks without a user, logging the phrase
// so it can be compared out of band.
type AutoApprover struct {
	Accept bool
}

// ApproveFingerprint logs fp and returns Accept.
func (a AutoApprover) ApproveFingerprint(_ context.Context, fp domain.Fingerprint) (bool, error) {
	log.Info().Str("fingerprint", fp.String()).Bool("accepted", a.Accept).Msg("Pairing fingerprint")
	return a.Accept, nil
}

var (
	_ domain.Biometrics          = (*VaultBiometrics)(nil)
	_ domain.FingerprintApprover = AutoApprover{}
)
