package companion

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
	"deskbridge/internal/transport"
)

// Serve announces the companion on port and handles frames until the client
// hangs up or ctx ends. A clean hangup returns nil.
func Serve(ctx context.Context, port domain.Port, h *Handler) error {
	if err := port.Send(ctx, envelope.Control(domain.CommandConnected, "")); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	frames := make(chan json.RawMessage)
	g.Go(func() error {
		defer close(frames)
		for {
			raw, err := port.Recv()
			if errors.Is(err, transport.ErrInvalidFrame) {
				log.Warn().Err(err).Msg("Dropping undecodable native message")
				continue
			}
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrClosed) {
					log.Info().Msg("Client hung up")
					return nil
				}
				return err
			}
			select {
			case frames <- raw:
			case <-ctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		for raw := range frames {
			if err := h.Handle(ctx, port, raw); err != nil {
				log.Error().Err(err).Msg("Failed to handle native message")
			}
		}
		return nil
	})
	return g.Wait()
}

// Refuse tells a client the companion cannot serve it, as a closed desktop
// app would.
func Refuse(ctx context.Context, port domain.Port) error {
	return port.Send(ctx, envelope.Control(domain.CommandDisconnected, ""))
}

// Dialer runs h in process: every Dial serves a fresh in-memory pipe.
func Dialer(h *Handler) domain.Dialer {
	return transport.DialerFunc(func(context.Context) (domain.Port, error) {
		client, host := transport.Pipe()
		go func() {
			if err := Serve(context.Background(), host, h); err != nil {
				log.Error().Err(err).Msg("In-process companion stopped")
			}
		}()
		return client, nil
	})
}
