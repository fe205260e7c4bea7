package app

import (
	"fmt"
	"os"

	"deskbridge/internal/channel"
	"deskbridge/internal/companion"
	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/services/biometric"
	"deskbridge/internal/services/identity"
	"deskbridge/internal/services/keys"
	"deskbridge/internal/services/message"
	"deskbridge/internal/services/session"
	"deskbridge/internal/store"
	"deskbridge/internal/transport"
)

// Wire bundles all stores, services and the channel for the CLI.
type Wire struct {
	Config *Config

	AppIDs   *store.AppIDFileStore
	State    *store.StateFileStore
	Accounts *store.AccountFileStore

	Identity  *identity.Service
	Keys      *keys.Service
	Sessions  *session.Service
	Messages  *message.Service
	Biometric *biometric.Flow

	Channel *channel.Channel
}

// NewWire constructs the client dependency graph from cfg. ui shows pairing
// fingerprints; bus receives unlock events. Either may be nil.
func NewWire(cfg *Config, ui domain.FingerprintUI, bus domain.Broadcaster) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	words, err := loadWords(cfg)
	if err != nil {
		return nil, err
	}

	// File-based stores
	w := &Wire{
		Config:   cfg,
		AppIDs:   store.NewAppIDFileStore(cfg.Home),
		State:    store.NewStateFileStore(cfg.Home),
		Accounts: store.NewAccountFileStore(cfg.Home),
		Sessions: session.New(),
		Messages: message.New(cfg.FreshnessWindow),
	}

	// High-level services
	w.Identity = identity.New(w.AppIDs, words)
	w.Keys = keys.New(w.Accounts, w.Identity)
	w.Biometric = biometric.New(w.Keys, w.State, bus)

	appID, err := w.Identity.AppID()
	if err != nil {
		return nil, err
	}
	dialer, err := w.dialer()
	if err != nil {
		return nil, err
	}

	w.Channel, err = channel.New(channel.Config{
		Dialer:           dialer,
		AppID:            appID,
		UserID:           domain.UserID(cfg.UserID),
		Bundled:          cfg.Bundled,
		Sessions:         w.Sessions,
		Messages:         w.Messages,
		Biometric:        w.Biometric,
		State:            w.State,
		Fingerprints:     w.Identity,
		UI:               ui,
		ConnectTimeout:   cfg.Timeouts.Connect,
		HandshakeTimeout: cfg.Timeouts.Handshake,
		RequestTimeout:   cfg.Timeouts.Request,
		LegacyWait:       cfg.Timeouts.LegacyWait,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// dialer runs the companion in process when bundled, else spawns the host.
func (w *Wire) dialer() (domain.Dialer, error) {
	if !w.Config.Bundled {
		args := append(append([]string(nil), w.Config.Host.Args...), "--home", w.Config.Home)
		return &transport.ExecDialer{Path: w.Config.Host.Path, Args: args}, nil
	}
	h, _, err := NewCompanion(w.Config)
	if err != nil {
		return nil, err
	}
	return companion.Dialer(h), nil
}

// Close releases the channel.
func (w *Wire) Close() error { return w.Channel.Close() }

// NewCompanion builds the desktop handler over the companion home.
func NewCompanion(cfg *Config) (*companion.Handler, *store.VaultFileStore, error) {
	home := cfg.CompanionHome()
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, nil, err
	}
	words, err := loadWords(cfg)
	if err != nil {
		return nil, nil, err
	}

	vault := store.NewVaultFileStore(home)
	hc := companion.Config{
		Accounts: store.NewAccountFileStore(home),
		State:    store.NewStateFileStore(home),
		Biometrics: &companion.VaultBiometrics{
			Vault:      vault,
			Passphrase: cfg.Passphrase(),
			Available:  cfg.Companion.BiometricsAvailable,
		},
		Fingerprints: identity.New(store.NewAppIDFileStore(home), words),
		Messages:     message.New(cfg.FreshnessWindow),
		DefaultUser:  domain.UserID(cfg.Companion.DefaultUser),
		Bundled:      cfg.Bundled,
	}
	if cfg.Companion.VerifyFingerprint {
		hc.Approver = companion.AutoApprover{Accept: cfg.Companion.AutoApprove}
	}
	h, err := companion.NewHandler(hc)
	if err != nil {
		return nil, nil, err
	}
	return h, vault, nil
}

func loadWords(cfg *Config) ([]string, error) {
	if cfg.Fingerprint.Wordlist == "" {
		return nil, nil
	}
	words, err := crypto.LoadWordList(cfg.Fingerprint.Wordlist)
	if err != nil {
		return nil, fmt.Errorf("load word list: %w", err)
	}
	return words, nil
}
