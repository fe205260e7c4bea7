package types

// Command is the closed set of commands understood on the channel.
// Wire values outside the set parse to CommandUnknown.
type Command int

const (
	CommandUnknown Command = iota
	// CommandNone is an outer envelope without a command: an application message.
	CommandNone

	// Control plane, sent in the clear.
	CommandConnected
	CommandDisconnected
	CommandSetupEncryption
	CommandInvalidateEncryption
	CommandVerifyFingerprint
	CommandWrongUserID

	// Legacy application commands, answered without a message id.
	CommandBiometricUnlock
	CommandBiometricUnlockAvailable

	// Application commands answered by message id.
	CommandAuthenticateWithBiometrics
	CommandGetBiometricsStatus
	CommandGetBiometricsStatusForUser
	CommandUnlockWithBiometricsForUser
)

var commandNames = map[Command]string{
	CommandConnected:                   "connected",
	CommandDisconnected:                "disconnected",
	CommandSetupEncryption:             "setupEncryption",
	CommandInvalidateEncryption:        "invalidateEncryption",
	CommandVerifyFingerprint:           "verifyFingerprint",
	CommandWrongUserID:                 "wrongUserId",
	CommandBiometricUnlock:             "biometricUnlock",
	CommandBiometricUnlockAvailable:    "biometricUnlockAvailable",
	CommandAuthenticateWithBiometrics:  "authenticateWithBiometrics",
	CommandGetBiometricsStatus:         "getBiometricsStatus",
	CommandGetBiometricsStatusForUser:  "getBiometricsStatusForUser",
	CommandUnlockWithBiometricsForUser: "unlockWithBiometricsForUser",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, n := range commandNames {
		m[n] = c
	}
	return m
}()

// ParseCommand maps a wire value onto the command set.
func ParseCommand(s string) Command {
	if s == "" {
		return CommandNone
	}
	if c, ok := commandsByName[s]; ok {
		return c
	}
	return CommandUnknown
}

// String returns the wire value.
func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	if c == CommandNone {
		return ""
	}
	return "unknown"
}

// Legacy reports whether the peer answers c without echoing a message id.
func (c Command) Legacy() bool {
	return c == CommandBiometricUnlock || c == CommandBiometricUnlockAvailable
}
