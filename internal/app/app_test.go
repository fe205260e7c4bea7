package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"deskbridge/internal/app"
	"deskbridge/internal/domain"
	"deskbridge/internal/services/biometric"
)

const passEnv = "DESKBRIDGE_TEST_PASSPHRASE"

// newBundled builds an App whose companion runs in process.
func newBundled(t *testing.T, user string) *app.App {
	t.Helper()
	t.Setenv(passEnv, "hunter2")

	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.UserID = user
	cfg.Bundled = true
	cfg.Companion.PassphraseEnv = passEnv

	w, err := app.NewWire(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return app.New(w, app.LogBroadcaster{})
}

func TestApp_UnlockThroughBundledCompanion(t *testing.T) {
	a := newBundled(t, "alice")
	if _, err := a.CreateAccount("alice", a.Config.Passphrase()); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Biometrics != domain.BiometricsAvailable || st.Auth != domain.Locked || st.State != domain.Connected {
		t.Fatalf("unexpected status %+v", st)
	}

	auth, err := a.Unlock(ctx)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if auth != domain.Unlocked {
		t.Fatalf("auth = %v; want unlocked", auth)
	}
}

func TestApp_UnlockForUser(t *testing.T) {
	a := newBundled(t, "bob")
	if _, err := a.CreateAccount("bob", a.Config.Passphrase()); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	auth, err := a.UnlockForUser(context.Background())
	if err != nil {
		t.Fatalf("UnlockForUser: %v", err)
	}
	if auth != domain.Unlocked {
		t.Fatalf("auth = %v; want unlocked", auth)
	}
}

func TestApp_UnlockWithoutVaultEntryIsCanceled(t *testing.T) {
	a := newBundled(t, "carol")
	if _, _, err := a.Keys.CreateAccount("carol"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	_, err := a.UnlockForUser(context.Background())
	var be *biometric.Error
	if !errors.As(err, &be) || be.Reason != biometric.ResponseCanceled {
		t.Fatalf("want canceled, got %v", err)
	}
}

func TestApp_RequiresUser(t *testing.T) {
	a := newBundled(t, "")
	if _, err := a.Unlock(context.Background()); !errors.Is(err, app.ErrNoUser) {
		t.Fatalf("want ErrNoUser, got %v", err)
	}
	if _, err := a.CreateAccount("dave", ""); !errors.Is(err, app.ErrNoPassphrase) {
		t.Fatalf("want ErrNoPassphrase, got %v", err)
	}
}
