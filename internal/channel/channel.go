package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
	"deskbridge/internal/services/message"
	"deskbridge/internal/services/session"
	"deskbridge/internal/transport"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 60 * time.Second
	DefaultRequestTimeout   = 60 * time.Second
	DefaultLegacyWait       = 5 * time.Second

	legacyPoll = 100 * time.Millisecond
)

// BiometricHandler processes biometricUnlock responses.
type BiometricHandler interface {
	Handle(ctx context.Context, userID domain.UserID, msg domain.ApplicationMessage) error
}

// Config wires a Channel. Dialer, AppID, Sessions and Messages are required.
type Config struct {
	Dialer domain.Dialer
	AppID  domain.AppID
	UserID domain.UserID

	// Bundled skips pairing: the companion is reached through a trusted
	// host and application messages travel in plaintext.
	Bundled bool

	Sessions     *session.Service
	Messages     *message.Service
	Biometric    BiometricHandler
	State        domain.BiometricStateStore
	Fingerprints domain.FingerprintService
	UI           domain.FingerprintUI

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration
	LegacyWait       time.Duration

	// OnLateSettle observes responses that arrive for a request already
	// rejected by the biometric flow.
	OnLateSettle func(messageID int64, msg domain.ApplicationMessage)
}

type future struct {
	done chan struct{}
	err  error
}

func newFuture() *future { return &future{done: make(chan struct{})} }

// resolve must be called with Channel.mu held.
func (f *future) resolve(err error) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	f.err = err
	close(f.done)
	return true
}

// Channel is the client end of a paired native messaging channel.
type Channel struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      domain.ChannelState
	port       domain.Port
	gen        uint64
	connecting *future
	setup      *future
	session    *session.Session
	key        crypto.SymmetricKey
	validating bool
	outdated   bool
	closed     bool

	nextID  atomic.Int64
	pending *Correlator
}

// New validates cfg and returns a disconnected Channel.
func New(cfg Config) (*Channel, error) {
	switch {
	case cfg.Dialer == nil:
		return nil, errors.New("channel: dialer is required")
	case cfg.AppID == "":
		return nil, errors.New("channel: app id is required")
	case cfg.Sessions == nil || cfg.Messages == nil:
		return nil, errors.New("channel: session and message services are required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.LegacyWait <= 0 {
		cfg.LegacyWait = DefaultLegacyWait
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		state:    domain.Disconnected,
		outdated: true,
		pending:  NewCorrelator(),
	}, nil
}

// State returns the connection state.
func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AppID returns the installation id sent on every envelope.
func (c *Channel) AppID() domain.AppID { return c.cfg.AppID }

// Paired reports whether a shared secret is established.
func (c *Channel) Paired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.key.IsZero()
}

// OutdatedPeer reports whether the last handshake reply came from a
// companion that does not echo message ids.
func (c *Channel) OutdatedPeer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outdated
}

// Pending returns the number of requests awaiting a response.
func (c *Channel) Pending() int { return c.pending.Len() }

// Connect opens the port and waits for the companion's connected signal.
// Concurrent callers share one attempt.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.state {
	case domain.Connected:
		c.mu.Unlock()
		return nil
	case domain.Connecting:
		f := c.connecting
		c.mu.Unlock()
		return c.awaitConnect(ctx, f)
	}
	f := newFuture()
	c.state = domain.Connecting
	c.connecting = f
	c.mu.Unlock()

	log.Info().Str("appId", c.cfg.AppID.String()).Msg("Connecting to companion")
	if c.cfg.State != nil {
		if err := c.cfg.State.SetFingerprintValidated(c.cfg.UserID, false); err != nil {
			log.Warn().Err(err).Msg("Unable to reset fingerprint validation")
		}
	}

	port, err := c.cfg.Dialer.Dial(ctx)

	c.mu.Lock()
	if err != nil {
		p := c.resetLocked(fmt.Errorf("%w: %w", ErrDesktopIntegrationDisabled, err))
		c.mu.Unlock()
		closePort(p)
		log.Error().Err(err).Msg("Unable to open native messaging port")
		<-f.done
		return f.err
	}
	if c.connecting != f {
		// Closed while dialing.
		c.mu.Unlock()
		closePort(port)
		<-f.done
		return f.err
	}
	c.gen++
	gen := c.gen
	c.port = port
	if c.cfg.Bundled {
		c.state = domain.Connected
		c.connecting = nil
		f.resolve(nil)
	}
	c.mu.Unlock()

	go c.readLoop(gen, port)
	return c.awaitConnect(ctx, f)
}

func (c *Channel) awaitConnect(ctx context.Context, f *future) error {
	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-f.done:
	case <-timer.C:
		c.abort(f, fmt.Errorf("connect: %w", ErrTimeout))
	case <-ctx.Done():
		c.abort(f, ctx.Err())
	}
	<-f.done
	return f.err
}

// abort fails an in-flight connect or handshake and drops the connection
// it belonged to.
func (c *Channel) abort(f *future, err error) {
	c.mu.Lock()
	var p domain.Port
	if f == c.connecting && f.resolve(err) {
		p = c.resetLocked(err)
	} else if f == c.setup && f.resolve(err) {
		c.setup = nil
		if c.session != nil {
			c.session.Destroy()
			c.session = nil
		}
	} else {
		f.resolve(err)
	}
	c.mu.Unlock()
	closePort(p)
}

// resetLocked returns the channel to Disconnected, failing any in-flight
// connect or handshake with reason. The caller closes the returned port
// after releasing the lock.
func (c *Channel) resetLocked(reason error) domain.Port {
	c.key = crypto.SymmetricKey{}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.setup != nil {
		c.setup.resolve(reason)
		c.setup = nil
	}
	if c.connecting != nil {
		c.connecting.resolve(reason)
		c.connecting = nil
	}
	c.state = domain.Disconnected
	c.gen++
	p := c.port
	c.port = nil
	return p
}

func (c *Channel) disconnect(reason error) {
	c.mu.Lock()
	p := c.resetLocked(reason)
	c.mu.Unlock()
	closePort(p)
}

func closePort(p domain.Port) {
	if p == nil {
		return
	}
	if err := p.Close(); err != nil {
		log.Debug().Err(err).Msg("Closing native messaging port")
	}
}

// Send delivers msg without waiting for a response. It connects and pairs
// as needed. UserID and Timestamp are stamped here.
func (c *Channel) Send(ctx context.Context, msg domain.ApplicationMessage) error {
	if c.State() != domain.Connected {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	if msg.UserID == "" {
		msg.UserID = c.cfg.UserID
	}

	if c.cfg.Bundled {
		msg.Timestamp = c.cfg.Messages.Now().UnixMilli()
		out, err := envelope.EncodePlain(c.cfg.AppID, msg)
		if err != nil {
			return err
		}
		return c.post(ctx, out)
	}

	key, err := c.sharedKey(ctx)
	if err != nil {
		return err
	}
	// Stamped after pairing so a slow fingerprint approval cannot age it.
	msg.Timestamp = c.cfg.Messages.Now().UnixMilli()
	enc, err := c.cfg.Messages.EncryptOutbound(key, msg)
	if err != nil {
		return err
	}
	out, err := envelope.EncodeEncrypted(c.cfg.AppID, enc)
	if err != nil {
		return err
	}
	return c.post(ctx, out)
}

// Call sends msg under a fresh message id and waits for the matching
// response. Legacy commands first wait for the channel to go idle, since
// their responses are matched to the oldest pending request.
func (c *Channel) Call(ctx context.Context, msg domain.ApplicationMessage) (domain.ApplicationMessage, error) {
	if msg.Kind().Legacy() && !c.pending.WaitIdle(ctx, c.cfg.LegacyWait, legacyPoll) {
		log.Info().Str("command", msg.Command).Msg("Another request is still pending, not sending")
		if err := ctx.Err(); err != nil {
			return domain.ApplicationMessage{}, err
		}
		return domain.ApplicationMessage{}, ErrBusy
	}

	id := c.nextID.Add(1)
	msg.MessageID = id
	done := c.pending.Register(id)

	if err := c.Send(ctx, msg); err != nil {
		c.pending.Forget(id)
		log.Info().Err(err).Str("command", msg.Command).Msg("Error sending message to companion")
		return domain.ApplicationMessage{}, fmt.Errorf("%w: %w", ErrErrorConnecting, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.Msg, r.Err
	case <-timer.C:
		c.pending.Forget(id)
		log.Info().Int64("messageId", id).Str("command", msg.Command).Msg("Message did not get a response before timing out")
		return domain.ApplicationMessage{}, ErrTimeout
	case <-ctx.Done():
		c.pending.Forget(id)
		return domain.ApplicationMessage{}, ctx.Err()
	}
}

// sharedKey returns the established secret or runs the pairing handshake.
func (c *Channel) sharedKey(ctx context.Context) (crypto.SymmetricKey, error) {
	c.mu.Lock()
	if !c.key.IsZero() {
		k := c.key
		c.mu.Unlock()
		return k, nil
	}
	f := c.setup
	if f == nil {
		f = newFuture()
		c.setup = f
		c.mu.Unlock()
		c.beginSetup(f)
	} else {
		c.mu.Unlock()
	}

	timer := time.NewTimer(c.cfg.HandshakeTimeout)
	defer timer.Stop()
	select {
	case <-f.done:
	case <-timer.C:
		c.abort(f, fmt.Errorf("handshake: %w", ErrTimeout))
	case <-ctx.Done():
		c.abort(f, ctx.Err())
	}
	<-f.done
	if f.err != nil {
		return crypto.SymmetricKey{}, f.err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key.IsZero() {
		return crypto.SymmetricKey{}, ErrNoSharedSecret
	}
	return c.key, nil
}

// beginSetup generates the key pair for f and posts the unencrypted
// setupEncryption request in the background.
func (c *Channel) beginSetup(f *future) {
	s, err := c.cfg.Sessions.Begin(c.cfg.UserID)

	c.mu.Lock()
	if err != nil {
		if c.setup == f {
			c.setup = nil
		}
		f.resolve(fmt.Errorf("generate pairing key: %w", err))
		c.mu.Unlock()
		return
	}
	if c.setup != f {
		c.mu.Unlock()
		s.Destroy()
		return
	}
	c.session = s
	c.mu.Unlock()

	req := s.SetupMessage(c.nextID.Add(1), c.cfg.Messages.Now())
	go func() {
		out, err := envelope.EncodePlain(c.cfg.AppID, req)
		if err == nil {
			err = c.post(c.ctx, out)
		}
		if err != nil {
			log.Error().Err(err).Msg("Unable to send setupEncryption")
			c.abort(f, err)
		}
	}()
}

// post writes one envelope to the current port. A write failure drops the
// connection.
func (c *Channel) post(ctx context.Context, v any) error {
	c.mu.Lock()
	p, gen := c.port, c.gen
	c.mu.Unlock()
	if p == nil {
		return ErrDisconnected
	}

	err := p.Send(ctx, v)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	log.Info().Err(err).Msg("Disconnected from companion: native port write failed")

	c.mu.Lock()
	var stale domain.Port
	if gen == c.gen {
		stale = c.resetLocked(ErrDisconnected)
	}
	c.mu.Unlock()
	closePort(stale)
	c.pending.FailAll(ErrDisconnected)
	return err
}

// Close tears down the port and fails everything pending.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	p := c.resetLocked(ErrClosed)
	c.mu.Unlock()

	c.cancel()
	closePort(p)
	c.pending.FailAll(ErrClosed)
	return nil
}

func (c *Channel) readLoop(gen uint64, p domain.Port) {
	for {
		raw, err := p.Recv()
		if errors.Is(err, transport.ErrInvalidFrame) {
			log.Warn().Err(err).Msg("Dropping undecodable native message")
			continue
		}
		if err != nil {
			c.onPortError(gen, err)
			return
		}
		if !c.current(gen) {
			return
		}
		c.dispatch(raw)
	}
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Channel) onPortError(gen uint64, err error) {
	reason := ErrDesktopIntegrationDisabled
	if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrClosed) {
		reason = ErrPortClosed
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	p := c.resetLocked(reason)
	c.mu.Unlock()

	log.Error().Err(err).Msg("Native messaging port disconnected")
	closePort(p)
	c.pending.FailAll(fmt.Errorf("%w: %w", ErrDisconnected, reason))
}
