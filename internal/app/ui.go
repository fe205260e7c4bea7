package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/domain"
)

// ConsoleUI prints pairing fingerprints for the user to compare with the
// companion's.
type ConsoleUI struct {
	Out io.Writer
}

// ShowFingerprint writes fp to Out.
func (u ConsoleUI) ShowFingerprint(_ context.Context, fp domain.Fingerprint) error {
	_, err := fmt.Fprintf(u.Out, "Verify the companion shows this fingerprint: %s\n", fp)
	return err
}

// LogBroadcaster records system events in the log.
type LogBroadcaster struct{}

// Broadcast logs event for userID.
func (LogBroadcaster) Broadcast(_ context.Context, event string, userID domain.UserID) {
	log.Info().Str("event", event).Str("userId", userID.String()).Msg("Broadcast")
}

var (
	_ domain.FingerprintUI = ConsoleUI{}
	_ domain.Broadcaster   = LogBroadcaster{}
)
