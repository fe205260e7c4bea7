package channel

import (
	"github.com/rs/zerolog/log"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
	"deskbridge/internal/services/message"
)

// dispatch handles one inbound frame. It runs on the read loop, so frames
// are processed in arrival order.
func (c *Channel) dispatch(raw []byte) {
	in, err := envelope.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping malformed native message")
		return
	}

	switch in.Kind() {
	case domain.CommandConnected:
		c.onConnected()
	case domain.CommandDisconnected:
		c.onDisconnected()
	case domain.CommandSetupEncryption:
		if c.foreign(in) {
			return
		}
		c.onSetupEncryption(in)
	case domain.CommandInvalidateEncryption:
		if c.foreign(in) {
			return
		}
		log.Warn().Msg("Secure channel encountered an error; disconnecting and wiping keys")
		c.disconnect(ErrInvalidateEncryption)
		c.failTargets(in.MessageID, ErrInvalidateEncryption)
	case domain.CommandVerifyFingerprint:
		if c.foreign(in) {
			return
		}
		c.onVerifyFingerprint()
	case domain.CommandWrongUserID:
		if c.foreign(in) {
			return
		}
		log.Warn().Msg("Companion is logged into a different account")
		c.disconnect(ErrWrongUserID)
		c.failTargets(in.MessageID, ErrWrongUserID)
	case domain.CommandNone:
		if !c.cfg.Bundled && c.foreign(in) {
			return
		}
		c.onMessage(in)
	default:
		log.Warn().Str("command", in.Command).Msg("Ignoring unknown control command")
	}
}

func (c *Channel) foreign(in envelope.Outer) bool {
	if in.AppID == c.cfg.AppID {
		return false
	}
	log.Debug().Str("appId", in.AppID.String()).Str("command", in.Command).Msg("Ignoring message for another app")
	return true
}

func (c *Channel) onConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.Connecting {
		return
	}
	c.state = domain.Connected
	if c.connecting != nil {
		c.connecting.resolve(nil)
		c.connecting = nil
	}
	log.Info().Msg("Connected to companion")
}

func (c *Channel) onDisconnected() {
	c.mu.Lock()
	reason := ErrDisconnected
	if c.state == domain.Connecting {
		reason = ErrStartDesktop
	}
	p := c.resetLocked(reason)
	c.mu.Unlock()

	log.Info().Err(reason).Msg("Disconnected from companion")
	closePort(p)
	c.pending.FailAll(ErrDisconnected)
}

func (c *Channel) onSetupEncryption(in envelope.Outer) {
	c.mu.Lock()
	s, f := c.session, c.setup
	if s == nil || f == nil {
		c.mu.Unlock()
		log.Warn().Msg("Unexpected setupEncryption reply")
		return
	}
	c.session = nil
	c.setup = nil

	key, err := s.Complete(in.SharedSecret)
	if err != nil {
		f.resolve(err)
		c.mu.Unlock()
		log.Error().Err(err).Msg("Unable to decrypt shared secret")
		return
	}
	validating := c.validating
	c.validating = false
	c.key = key
	c.outdated = in.MessageID == nil
	outdated := c.outdated
	f.resolve(nil)
	c.mu.Unlock()

	if validating && c.cfg.State != nil {
		if err := c.cfg.State.SetFingerprintValidated(c.cfg.UserID, true); err != nil {
			log.Warn().Err(err).Msg("Unable to record fingerprint validation")
		}
	}
	log.Info().Bool("outdatedPeer", outdated).Msg("Secure channel established")
}

func (c *Channel) onVerifyFingerprint() {
	c.mu.Lock()
	if !c.key.IsZero() {
		c.mu.Unlock()
		return
	}
	c.validating = true
	var pub []byte
	if c.session != nil {
		pub = c.session.PublicKey()
	}
	c.mu.Unlock()

	log.Info().Msg("Companion requested trust verification by fingerprint")
	if pub == nil || c.cfg.Fingerprints == nil || c.cfg.UI == nil {
		return
	}
	go func() {
		fp, err := c.cfg.Fingerprints.Fingerprint(c.cfg.UserID, pub)
		if err != nil {
			log.Error().Err(err).Msg("Unable to compute fingerprint")
			return
		}
		if err := c.cfg.UI.ShowFingerprint(c.ctx, fp); err != nil {
			log.Error().Err(err).Msg("Unable to show fingerprint")
		}
	}()
}

// failTargets rejects the named request, or every request when none is named.
func (c *Channel) failTargets(id *int64, err error) {
	if id == nil {
		c.pending.FailAll(err)
		return
	}
	if !c.pending.Fail(*id, err) {
		log.Debug().Int64("messageId", *id).Err(err).Msg("No pending request to reject")
	}
}

func (c *Channel) onMessage(in envelope.Outer) {
	payload, err := envelope.ParsePayload(in.Message)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping native message without a usable payload")
		return
	}
	if !payload.Encrypted() && !c.cfg.Bundled {
		log.Warn().Msg("Dropping unencrypted application message")
		return
	}

	c.mu.Lock()
	key := c.key
	c.mu.Unlock()

	msg, verdict, err := c.cfg.Messages.DecryptInbound(key, payload)
	if err != nil {
		log.Error().Err(err).Msg("Received an encrypted message before pairing")
		return
	}
	switch verdict {
	case message.Stale:
		log.Error().Int64("timestamp", msg.Timestamp).Msg("Received an old native message, ignoring")
		return
	case message.Undecryptable:
		log.Error().Msg("Unable to decrypt native message, ignoring")
		return
	}
	c.route(msg)
}

func (c *Channel) route(msg domain.ApplicationMessage) {
	switch msg.Kind() {
	case domain.CommandUnknown, domain.CommandNone:
		log.Error().Str("command", msg.Command).Msg("Received unknown command")
	case domain.CommandBiometricUnlock:
		c.routeBiometricUnlock(msg)
	default:
		id, ok := c.target(msg)
		if !ok || !c.pending.Settle(id, msg) {
			log.Warn().Str("command", msg.Command).Int64("messageId", msg.MessageID).Msg("Response without a pending request")
		}
	}
}

// routeBiometricUnlock runs the unlock flow, then settles the request. A
// flow error rejects the request first, so the settlement that follows has
// nothing left to resolve and is handed to OnLateSettle.
func (c *Channel) routeBiometricUnlock(msg domain.ApplicationMessage) {
	id, ok := c.target(msg)

	var rejected bool
	if c.cfg.Biometric != nil {
		if err := c.cfg.Biometric.Handle(c.ctx, c.cfg.UserID, msg); err != nil {
			log.Info().Err(err).Msg("Biometric unlock was not completed")
			if ok {
				rejected = c.pending.Fail(id, err)
			}
		}
	}
	if !ok {
		log.Warn().Msg("biometricUnlock response without a pending request")
		return
	}
	if c.pending.Settle(id, msg) || !rejected {
		return
	}
	log.Debug().Int64("messageId", id).Msg("Late settlement after rejection")
	if c.cfg.OnLateSettle != nil {
		c.cfg.OnLateSettle(id, msg)
	}
}

// target picks the request msg answers: the echoed id when it is pending,
// else the oldest request for legacy commands.
func (c *Channel) target(msg domain.ApplicationMessage) (int64, bool) {
	if msg.MessageID != 0 && c.pending.Has(msg.MessageID) {
		return msg.MessageID, true
	}
	if msg.Kind().Legacy() {
		return c.pending.Oldest()
	}
	return 0, false
}
