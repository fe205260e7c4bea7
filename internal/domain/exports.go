package domain

import (
	interfaces "deskbridge/internal/domain/interfaces"
	types "deskbridge/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID             = types.UserID
	AppID              = types.AppID
	Fingerprint        = types.Fingerprint
	Command            = types.Command
	ApplicationMessage = types.ApplicationMessage
	ChannelState       = types.ChannelState
	AuthStatus         = types.AuthStatus
	BiometricStatus    = types.BiometricStatus
	BiometricState     = types.BiometricState
	Account            = types.Account
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Port                = interfaces.Port
	Dialer              = interfaces.Dialer
	KeyService          = interfaces.KeyService
	FingerprintService  = interfaces.FingerprintService
	FingerprintUI       = interfaces.FingerprintUI
	FingerprintApprover = interfaces.FingerprintApprover
	Broadcaster         = interfaces.Broadcaster
	Biometrics          = interfaces.Biometrics
	AppIDStore          = interfaces.AppIDStore
	BiometricStateStore = interfaces.BiometricStateStore
	AccountStore        = interfaces.AccountStore
	VaultStore          = interfaces.VaultStore
)

// Re-exported constants.
const (
	CommandUnknown                     = types.CommandUnknown
	CommandNone                        = types.CommandNone
	CommandConnected                   = types.CommandConnected
	CommandDisconnected                = types.CommandDisconnected
	CommandSetupEncryption             = types.CommandSetupEncryption
	CommandInvalidateEncryption        = types.CommandInvalidateEncryption
	CommandVerifyFingerprint           = types.CommandVerifyFingerprint
	CommandWrongUserID                 = types.CommandWrongUserID
	CommandBiometricUnlock             = types.CommandBiometricUnlock
	CommandBiometricUnlockAvailable    = types.CommandBiometricUnlockAvailable
	CommandAuthenticateWithBiometrics  = types.CommandAuthenticateWithBiometrics
	CommandGetBiometricsStatus         = types.CommandGetBiometricsStatus
	CommandGetBiometricsStatusForUser  = types.CommandGetBiometricsStatusForUser
	CommandUnlockWithBiometricsForUser = types.CommandUnlockWithBiometricsForUser

	Disconnected = types.Disconnected
	Connecting   = types.Connecting
	Connected    = types.Connected

	LoggedOut = types.LoggedOut
	Locked    = types.Locked
	Unlocked  = types.Unlocked

	BiometricsAvailable                       = types.BiometricsAvailable
	BiometricsUnlockNeeded                    = types.BiometricsUnlockNeeded
	BiometricsHardwareUnavailable             = types.BiometricsHardwareUnavailable
	BiometricsAutoSetupNeeded                 = types.BiometricsAutoSetupNeeded
	BiometricsManualSetupNeeded               = types.BiometricsManualSetupNeeded
	BiometricsPlatformUnsupported             = types.BiometricsPlatformUnsupported
	BiometricsDesktopDisconnected             = types.BiometricsDesktopDisconnected
	BiometricsNotEnabledLocally               = types.BiometricsNotEnabledLocally
	BiometricsNotEnabledInConnectedDesktopApp = types.BiometricsNotEnabledInConnectedDesktopApp
)

// ParseCommand maps a wire value onto the command set.
func ParseCommand(s string) Command { return types.ParseCommand(s) }
