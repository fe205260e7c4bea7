package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/domain"
)

// ErrClosed is returned by a port after Close.
var ErrClosed = errors.New("port closed")

// StreamPort frames messages over a reader/writer pair.
type StreamPort struct {
	r      *bufio.Reader
	w      io.Writer
	closer func() error

	writeMu sync.Mutex
	readMu  sync.Mutex

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewStreamPort returns a port reading frames from r and writing to w.
// closer, if non-nil, runs once on Close.
func NewStreamPort(r io.Reader, w io.Writer, closer func() error) *StreamPort {
	return &StreamPort{
		r:      bufio.NewReader(r),
		w:      w,
		closer: closer,
		closed: make(chan struct{}),
	}
}

// Stdio returns a port over the process's stdin and stdout, the way a
// native messaging host is connected to the browser.
func Stdio() *StreamPort {
	return NewStreamPort(os.Stdin, os.Stdout, nil)
}

// Send writes v as one frame.
func (p *StreamPort) Send(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := WriteFrame(p.w, v); err != nil {
		if p.isClosed() {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Recv blocks for the next frame.
func (p *StreamPort) Recv() (json.RawMessage, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	raw, err := ReadFrame(p.r)
	if err != nil {
		if p.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}
	log.Debug().Int("length", len(raw)).Msg("Read native message")
	return raw, nil
}

// Close runs the closer once. Pending Recv calls return ErrClosed when the
// closer unblocks the underlying reader.
func (p *StreamPort) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.closer != nil {
			p.closeErr = p.closer()
		}
	})
	return p.closeErr
}

func (p *StreamPort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// DialerFunc adapts a function to domain.Dialer.
type DialerFunc func(ctx context.Context) (domain.Port, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context) (domain.Port, error) { return f(ctx) }

// Compile-time assertions.
var (
	_ domain.Port   = (*StreamPort)(nil)
	_ domain.Dialer = DialerFunc(nil)
)
