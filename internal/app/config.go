package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"deskbridge/internal/channel"
	"deskbridge/internal/services/message"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the client state directory, e.g. $HOME/.deskbridge.
	Home     string `yaml:"home"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// UserID is the account the channel acts for.
	UserID string `yaml:"user_id"`

	// Bundled runs the companion in process and skips pairing.
	Bundled bool `yaml:"bundled"`

	Host            HostConfig        `yaml:"host"`
	Timeouts        TimeoutConfig     `yaml:"timeouts"`
	FreshnessWindow time.Duration     `yaml:"freshness_window"`
	Fingerprint     FingerprintConfig `yaml:"fingerprint"`
	Companion       CompanionConfig   `yaml:"companion"`
}

// HostConfig locates the companion executable.
type HostConfig struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

// TimeoutConfig bounds the channel's waits.
type TimeoutConfig struct {
	Connect    time.Duration `yaml:"connect"`
	Handshake  time.Duration `yaml:"handshake"`
	Request    time.Duration `yaml:"request"`
	LegacyWait time.Duration `yaml:"legacy_wait"`
}

// FingerprintConfig selects the word list for fingerprint phrases. An empty
// Wordlist renders hex groups.
type FingerprintConfig struct {
	Wordlist string `yaml:"wordlist"`
}

// CompanionConfig configures the desktop side.
type CompanionConfig struct {
	// Home holds the vault and desktop biometric state; defaults to
	// <home>/companion.
	Home                string `yaml:"home"`
	VerifyFingerprint   bool   `yaml:"verify_fingerprint"`
	AutoApprove         bool   `yaml:"auto_approve"`
	BiometricsAvailable bool   `yaml:"biometrics_available"`
	DefaultUser         string `yaml:"default_user"`
	// PassphraseEnv names the environment variable holding the vault passphrase.
	PassphraseEnv string `yaml:"passphrase_env"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := ".deskbridge"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".deskbridge")
	}
	return &Config{
		Home:     home,
		LogLevel: "info",
		Host: HostConfig{
			Path: "deskbridge-companion",
		},
		Timeouts: TimeoutConfig{
			Connect:    channel.DefaultConnectTimeout,
			Handshake:  channel.DefaultHandshakeTimeout,
			Request:    channel.DefaultRequestTimeout,
			LegacyWait: channel.DefaultLegacyWait,
		},
		FreshnessWindow: message.DefaultFreshnessWindow,
		Companion: CompanionConfig{
			VerifyFingerprint:   true,
			AutoApprove:         true,
			BiometricsAvailable: true,
			PassphraseEnv:       "DESKBRIDGE_VAULT_PASSPHRASE",
		},
	}
}

// DefaultConfigPath is the per-user config file location, or "" when the
// platform has no config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "deskbridge", "config.yaml")
}

// LoadConfig loads configuration from a YAML file over the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// CompanionHome resolves the companion's state directory.
func (c *Config) CompanionHome() string {
	if c.Companion.Home != "" {
		return c.Companion.Home
	}
	return filepath.Join(c.Home, "companion")
}

// Passphrase reads the vault passphrase from the configured variable.
func (c *Config) Passphrase() string {
	if c.Companion.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Companion.PassphraseEnv)
}
