package channel

import (
	"errors"

	"deskbridge/internal/services/biometric"
	"deskbridge/internal/services/message"
)

// Errors surfaced to callers. Their texts are the literal reasons used on the
// wire and by the browser UI.
var (
	// ErrStartDesktop means the companion reported it is not running while connecting.
	ErrStartDesktop = errors.New("startDesktop")
	// ErrDesktopIntegrationDisabled means the port failed with an error.
	ErrDesktopIntegrationDisabled = errors.New("desktopIntegrationDisabled")
	// ErrPortClosed means the port closed without an error.
	ErrPortClosed = errors.New("port closed")
	// ErrInvalidateEncryption means the companion discarded the shared secret.
	ErrInvalidateEncryption = errors.New("invalidateEncryption")
	// ErrWrongUserID means the companion is not logged into the active account.
	ErrWrongUserID = errors.New("wrongUserId")
	// ErrTimeout means no answer arrived in time.
	ErrTimeout = errors.New("timeout")
	// ErrDisconnected fails requests still pending when the port goes away.
	ErrDisconnected = errors.New("disconnected")
	// ErrErrorConnecting wraps failures to deliver a request.
	ErrErrorConnecting = errors.New("errorConnecting")
	// ErrBusy is returned when a legacy request cannot get the channel to itself.
	ErrBusy = errors.New("another request is in flight")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("channel closed")

	ErrUserKeyWrong   = biometric.ErrUserKeyWrong
	ErrNoSharedSecret = message.ErrNoSharedSecret
)

// BiometricError carries a companion's literal refusal reason.
type BiometricError = biometric.Error
