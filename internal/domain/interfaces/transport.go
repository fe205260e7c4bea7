package interfaces

import (
	"context"
	"encoding/json"
)

// Port is an open native messaging connection. Send writes one framed JSON
// value; Recv blocks for the next one and returns an error once the port is
// closed or the peer goes away.
type Port interface {
	Send(ctx context.Context, v any) error
	Recv() (json.RawMessage, error)
	Close() error
}

// Dialer opens a fresh Port to the companion.
type Dialer interface {
	Dial(ctx context.Context) (Port, error)
}
