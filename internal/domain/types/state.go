package types

// ChannelState is the connection state of a Channel.
type ChannelState int

const (
	Disconnected ChannelState = iota
	Connecting
	Connected
)

func (s ChannelState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// AuthStatus is the lock state of a local account.
type AuthStatus int

const (
	LoggedOut AuthStatus = iota
	Locked
	Unlocked
)

func (s AuthStatus) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "logged out"
	}
}

// BiometricStatus is the companion's view of its biometric hardware,
// as reported by getBiometricsStatus.
type BiometricStatus int

const (
	BiometricsAvailable BiometricStatus = iota
	BiometricsUnlockNeeded
	BiometricsHardwareUnavailable
	BiometricsAutoSetupNeeded
	BiometricsManualSetupNeeded
	BiometricsPlatformUnsupported
	BiometricsDesktopDisconnected
	BiometricsNotEnabledLocally
	BiometricsNotEnabledInConnectedDesktopApp
)

// BiometricState is the per-user persisted flag set.
type BiometricState struct {
	UnlockEnabled        bool `json:"biometric_unlock_enabled"`
	FingerprintValidated bool `json:"fingerprint_validated"`
}
