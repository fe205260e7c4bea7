package companion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"deskbridge/internal/channel"
	"deskbridge/internal/companion"
	"deskbridge/internal/domain"
	"deskbridge/internal/services/biometric"
	"deskbridge/internal/services/identity"
	"deskbridge/internal/services/keys"
	"deskbridge/internal/services/message"
	"deskbridge/internal/services/session"
	"deskbridge/internal/store"
	"deskbridge/internal/transport"
)

type fingerprints chan domain.Fingerprint

func (c fingerprints) ApproveFingerprint(_ context.Context, fp domain.Fingerprint) (bool, error) {
	c <- fp
	return true, nil
}

func (c fingerprints) ShowFingerprint(_ context.Context, fp domain.Fingerprint) error {
	c <- fp
	return nil
}

func TestServe_PairAndUnlockEndToEnd(t *testing.T) {
	home := t.TempDir()
	accounts := store.NewAccountFileStore(home)
	ids := identity.New(store.NewAppIDFileStore(home), nil)
	keySvc := keys.New(accounts, ids)

	userKey, _, err := keySvc.CreateAccount(user)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	vault := store.NewVaultFileStore(home)
	if err := vault.SaveUserKey(passphrase, user, userKey); err != nil {
		t.Fatalf("SaveUserKey: %v", err)
	}

	desktopState := store.NewStateFileStore(t.TempDir())
	browserState := store.NewStateFileStore(t.TempDir())
	for _, s := range []*store.StateFileStore{desktopState, browserState} {
		if err := s.SetBiometricUnlockEnabled(user, true); err != nil {
			t.Fatalf("SetBiometricUnlockEnabled: %v", err)
		}
	}

	approved, shown := make(fingerprints, 1), make(fingerprints, 1)
	h, err := companion.NewHandler(companion.Config{
		Accounts:     accounts,
		State:        desktopState,
		Biometrics:   &companion.VaultBiometrics{Vault: vault, Passphrase: passphrase, Available: true},
		Fingerprints: ids,
		Approver:     approved,
		Messages:     message.New(0),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	client, host := transport.Pipe()
	served := make(chan error, 1)
	go func() { served <- companion.Serve(context.Background(), host, h) }()

	appID, err := ids.AppID()
	if err != nil {
		t.Fatalf("AppID: %v", err)
	}
	ch, err := channel.New(channel.Config{
		Dialer: transport.DialerFunc(func(context.Context) (domain.Port, error) {
			return client, nil
		}),
		AppID:        appID,
		UserID:       user,
		Sessions:     session.New(),
		Messages:     message.New(0),
		Biometric:    biometric.New(keySvc, browserState, nil),
		State:        browserState,
		Fingerprints: ids,
		UI:           shown,
	})
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := ch.Call(ctx, domain.ApplicationMessage{Command: "biometricUnlock"})
	if err != nil {
		t.Fatalf("Call(biometricUnlock): %v", err)
	}
	if s, _ := reply.ResponseString(); s != biometric.ResponseUnlocked {
		t.Fatalf("response = %q", s)
	}
	if st, err := keySvc.AuthStatus(user); err != nil || st != domain.Unlocked {
		t.Fatalf("auth status = %v (%v); want unlocked", st, err)
	}

	// Both sides render the same phrase for the pairing key.
	a, b := <-approved, <-shown
	if a.String() != b.String() {
		t.Fatalf("fingerprints differ: companion %q, client %q", a, b)
	}
	if ok, _ := browserState.FingerprintValidated(user); !ok {
		t.Fatal("fingerprint validation not recorded")
	}

	status, err := ch.Call(ctx, domain.ApplicationMessage{Command: "getBiometricsStatusForUser"})
	if err != nil {
		t.Fatalf("Call(getBiometricsStatusForUser): %v", err)
	}
	if string(status.Response) != "0" {
		t.Fatalf("status = %s; want 0", status.Response)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the client hung up")
	}
}

func TestServe_RefuseLooksLikeClosedDesktop(t *testing.T) {
	client, host := transport.Pipe()
	go func() { _ = companion.Refuse(context.Background(), host) }()

	ch, err := channel.New(channel.Config{
		Dialer: transport.DialerFunc(func(context.Context) (domain.Port, error) {
			return client, nil
		}),
		AppID:    app,
		Sessions: session.New(),
		Messages: message.New(0),
	})
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	defer ch.Close()

	if err := ch.Connect(context.Background()); !errors.Is(err, channel.ErrStartDesktop) {
		t.Fatalf("want ErrStartDesktop, got %v", err)
	}
}

func TestDialer_BundledPlaintextRoundTrip(t *testing.T) {
	home := t.TempDir()
	accounts := store.NewAccountFileStore(home)
	if err := accounts.SaveAccount(domain.Account{UserID: user}); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}
	h, err := companion.NewHandler(companion.Config{
		Accounts:   accounts,
		State:      store.NewStateFileStore(home),
		Biometrics: &companion.VaultBiometrics{Vault: store.NewVaultFileStore(home), Available: true},
		Messages:   message.New(0),
		Bundled:    true,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	ch, err := channel.New(channel.Config{
		Dialer:   companion.Dialer(h),
		AppID:    app,
		UserID:   user,
		Bundled:  true,
		Sessions: session.New(),
		Messages: message.New(0),
	})
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	defer ch.Close()

	reply, err := ch.Call(context.Background(), domain.ApplicationMessage{Command: "getBiometricsStatus"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(reply.Response) != "0" {
		t.Fatalf("status = %s; want 0", reply.Response)
	}
	if ch.Paired() || h.Paired(app) {
		t.Fatal("bundled mode ran a handshake")
	}
}
