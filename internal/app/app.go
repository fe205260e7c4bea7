package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/services/biometric"
	"deskbridge/internal/store"
)

var (
	// ErrNoUser is returned when an operation needs a configured user id.
	ErrNoUser = errors.New("no user configured (set user_id or --user)")
	// ErrNoPassphrase is returned when the vault passphrase is not set.
	ErrNoPassphrase = errors.New("vault passphrase required")
)

// App is the user-facing surface over a Wire.
type App struct {
	*Wire
	bus domain.Broadcaster
}

// New wraps w. bus receives unlock events from the per-user unlock path and
// may be nil.
func New(w *Wire, bus domain.Broadcaster) *App {
	return &App{Wire: w, bus: bus}
}

func (a *App) user() (domain.UserID, error) {
	if a.Config.UserID == "" {
		return "", ErrNoUser
	}
	return domain.UserID(a.Config.UserID), nil
}

// Unlock asks the companion to release the user key with the legacy
// biometricUnlock command. The key is installed by the channel's
// biometric flow; the resulting auth status is returned.
func (a *App) Unlock(ctx context.Context) (domain.AuthStatus, error) {
	userID, err := a.user()
	if err != nil {
		return domain.LoggedOut, err
	}
	if _, err := a.Channel.Call(ctx, domain.ApplicationMessage{Command: domain.CommandBiometricUnlock.String()}); err != nil {
		return domain.LoggedOut, err
	}
	return a.Keys.AuthStatus(userID)
}

// UnlockForUser uses unlockWithBiometricsForUser, which is answered by
// message id with a boolean and the key.
func (a *App) UnlockForUser(ctx context.Context) (domain.AuthStatus, error) {
	userID, err := a.user()
	if err != nil {
		return domain.LoggedOut, err
	}
	reply, err := a.Channel.Call(ctx, domain.ApplicationMessage{
		Command: domain.CommandUnlockWithBiometricsForUser.String(),
		UserID:  userID,
	})
	if err != nil {
		return domain.LoggedOut, err
	}
	if ok, _ := reply.ResponseBool(); !ok {
		return domain.LoggedOut, &biometric.Error{Reason: biometric.ResponseCanceled}
	}

	key, err := crypto.FromB64(reply.UserKeyB64)
	if err != nil || len(key) == 0 {
		return domain.LoggedOut, fmt.Errorf("%w: no key in response", biometric.ErrUserKeyWrong)
	}
	defer crypto.Wipe(key)

	valid, err := a.Keys.ValidateUserKey(userID, key)
	if err != nil {
		return domain.LoggedOut, err
	}
	if !valid {
		if err := a.Keys.ClearKeys(userID); err != nil {
			log.Error().Err(err).Msg("Unable to clear keys")
		}
		return domain.LoggedOut, biometric.ErrUserKeyWrong
	}
	if err := a.Keys.SetUserKey(userID, key); err != nil {
		return domain.LoggedOut, err
	}
	if a.bus != nil {
		a.bus.Broadcast(ctx, biometric.EventUnlocked, userID)
	}
	return a.Keys.AuthStatus(userID)
}

// Status is a snapshot of the channel and the companion's biometrics.
type Status struct {
	State        domain.ChannelState
	AppID        domain.AppID
	Paired       bool
	OutdatedPeer bool
	Biometrics   domain.BiometricStatus
	Auth         domain.AuthStatus
}

// Status queries getBiometricsStatusForUser, connecting as needed.
func (a *App) Status(ctx context.Context) (Status, error) {
	userID, err := a.user()
	if err != nil {
		return Status{}, err
	}
	reply, err := a.Channel.Call(ctx, domain.ApplicationMessage{
		Command: domain.CommandGetBiometricsStatusForUser.String(),
		UserID:  userID,
	})
	if err != nil {
		return Status{}, err
	}
	var bs domain.BiometricStatus
	if err := json.Unmarshal(reply.Response, &bs); err != nil {
		return Status{}, fmt.Errorf("decode biometrics status: %w", err)
	}
	auth, err := a.Keys.AuthStatus(userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:        a.Channel.State(),
		AppID:        a.Channel.AppID(),
		Paired:       a.Channel.Paired(),
		OutdatedPeer: a.Channel.OutdatedPeer(),
		Biometrics:   bs,
		Auth:         auth,
	}, nil
}

// Available asks the legacy biometricUnlockAvailable question.
func (a *App) Available(ctx context.Context) (bool, error) {
	reply, err := a.Channel.Call(ctx, domain.ApplicationMessage{Command: domain.CommandBiometricUnlockAvailable.String()})
	if err != nil {
		return false, err
	}
	s, _ := reply.ResponseString()
	return s == biometric.ResponseAvailable, nil
}

// Authenticate asks the companion to run its prompt without releasing a key.
func (a *App) Authenticate(ctx context.Context) (bool, error) {
	reply, err := a.Channel.Call(ctx, domain.ApplicationMessage{Command: domain.CommandAuthenticateWithBiometrics.String()})
	if err != nil {
		return false, err
	}
	ok, _ := reply.ResponseBool()
	return ok, nil
}

// CreateAccount provisions userID on both sides: verification material in
// the client and companion account stores, the user key sealed into the
// companion vault under passphrase. Biometric unlock is enabled on both.
func (a *App) CreateAccount(userID domain.UserID, passphrase string) (domain.Account, error) {
	if passphrase == "" {
		return domain.Account{}, ErrNoPassphrase
	}
	userKey, account, err := a.Keys.CreateAccount(userID)
	if err != nil {
		return domain.Account{}, err
	}
	defer crypto.Wipe(userKey)

	home := a.Config.CompanionHome()
	if err := store.NewAccountFileStore(home).SaveAccount(account); err != nil {
		return domain.Account{}, err
	}
	if err := store.NewVaultFileStore(home).SaveUserKey(passphrase, userID, userKey); err != nil {
		return domain.Account{}, err
	}
	if err := store.NewStateFileStore(home).SetBiometricUnlockEnabled(userID, true); err != nil {
		return domain.Account{}, err
	}
	if err := a.State.SetBiometricUnlockEnabled(userID, true); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}
