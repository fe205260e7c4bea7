package companion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
	"deskbridge/internal/services/biometric"
	"deskbridge/internal/services/message"
)

// Sender writes one envelope to the client.
type Sender interface {
	Send(ctx context.Context, v any) error
}

// Config wires a Handler. Approver may be nil to skip fingerprint
// verification; DefaultUser answers legacy unlocks that name no user.
// Bundled accepts and answers plaintext application messages from a
// client running in the same trust domain.
type Config struct {
	Accounts     domain.AccountStore
	State        domain.BiometricStateStore
	Biometrics   domain.Biometrics
	Fingerprints domain.FingerprintService
	Approver     domain.FingerprintApprover
	Messages     *message.Service
	DefaultUser  domain.UserID
	Bundled      bool
}

// Handler answers client envelopes.
type Handler struct {
	cfg Config

	mu      sync.Mutex
	secrets map[domain.AppID]crypto.SymmetricKey
}

// NewHandler returns a Handler with no paired clients.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Accounts == nil || cfg.State == nil || cfg.Biometrics == nil || cfg.Messages == nil {
		return nil, errors.New("companion: accounts, state, biometrics and messages are required")
	}
	if cfg.Approver != nil && cfg.Fingerprints == nil {
		return nil, errors.New("companion: fingerprint verification needs a fingerprint service")
	}
	return &Handler{cfg: cfg, secrets: make(map[domain.AppID]crypto.SymmetricKey)}, nil
}

// Paired reports whether appID holds a shared secret.
func (h *Handler) Paired(appID domain.AppID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.secrets[appID]
	return ok
}

func (h *Handler) secret(appID domain.AppID) crypto.SymmetricKey {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.secrets[appID]
}

func (h *Handler) forget(appID domain.AppID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.secrets, appID)
}

// Handle processes one frame. Malformed, stale and unknown messages are
// logged and dropped; the returned error reports storage or write failures.
func (h *Handler) Handle(ctx context.Context, out Sender, raw []byte) error {
	in, err := envelope.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping malformed envelope")
		return nil
	}
	payload, err := envelope.ParsePayload(in.Message)
	if err != nil {
		log.Warn().Err(err).Str("appId", in.AppID.String()).Msg("Dropping envelope without a usable message")
		return nil
	}

	if !payload.Encrypted() {
		if payload.Plain.Kind() == domain.CommandSetupEncryption {
			return h.setup(ctx, out, in.AppID, payload.Plain)
		}
		if h.cfg.Bundled {
			return h.handlePlain(ctx, out, in.AppID, payload.Plain)
		}
		log.Warn().Str("command", payload.Plain.Command).Msg("Dropping unencrypted message")
		return nil
	}

	key := h.secret(in.AppID)
	if key.IsZero() {
		log.Info().Str("appId", in.AppID.String()).Msg("Secret for secure channel is missing. Invalidating encryption")
		return out.Send(ctx, envelope.Control(domain.CommandInvalidateEncryption, in.AppID))
	}

	msg, verdict, err := h.cfg.Messages.DecryptInbound(key, payload)
	if err != nil {
		return err
	}
	switch verdict {
	case message.Undecryptable:
		log.Info().Str("appId", in.AppID.String()).Msg("Secure channel failed to decrypt message. Invalidating encryption")
		h.forget(in.AppID)
		return out.Send(ctx, envelope.Control(domain.CommandInvalidateEncryption, in.AppID))
	case message.Stale:
		log.Info().Int64("timestamp", msg.Timestamp).Msg("Received a too old message. Ignoring")
		return nil
	}

	reply, ok, err := h.respond(ctx, msg)
	if err != nil || !ok {
		return err
	}
	return h.send(ctx, out, in.AppID, reply)
}

func (h *Handler) setup(ctx context.Context, out Sender, appID domain.AppID, req domain.ApplicationMessage) error {
	pub, err := crypto.FromB64(req.PublicKey)
	if err != nil || len(pub) == 0 {
		log.Warn().Err(err).Msg("setupEncryption without a usable public key")
		return nil
	}

	_, known, err := h.cfg.Accounts.LoadAccount(req.UserID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if !known {
		log.Info().Str("userId", req.UserID.String()).Msg("Received message for user that is not logged into the companion")
		return out.Send(ctx, envelope.Control(domain.CommandWrongUserID, appID))
	}

	if h.cfg.Approver != nil {
		log.Info().Msg("Requesting fingerprint verification")
		if err := out.Send(ctx, envelope.Control(domain.CommandVerifyFingerprint, appID)); err != nil {
			return err
		}
		fp, err := h.cfg.Fingerprints.Fingerprint(req.UserID, pub)
		if err != nil {
			return fmt.Errorf("fingerprint: %w", err)
		}
		ok, err := h.cfg.Approver.ApproveFingerprint(ctx, fp)
		if err != nil || !ok {
			log.Info().Err(err).Msg("Fingerprint verification failed")
			return nil
		}
	}

	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return err
	}
	blob, err := crypto.RSAEncryptSHA1(pub, key.Bytes())
	if err != nil {
		log.Warn().Err(err).Msg("Unable to encrypt shared secret to client key")
		return nil
	}

	h.mu.Lock()
	h.secrets[appID] = key
	h.mu.Unlock()

	log.Info().Str("appId", appID.String()).Msg("Setting up secure channel")
	newPeer := int64(-1)
	return out.Send(ctx, envelope.Outer{
		Command:      domain.CommandSetupEncryption.String(),
		AppID:        appID,
		MessageID:    &newPeer,
		SharedSecret: crypto.B64(blob),
	})
}

func (h *Handler) handlePlain(ctx context.Context, out Sender, appID domain.AppID, msg domain.ApplicationMessage) error {
	if !h.cfg.Messages.Fresh(msg.Timestamp) {
		log.Info().Int64("timestamp", msg.Timestamp).Msg("Received a too old message. Ignoring")
		return nil
	}
	reply, ok, err := h.respond(ctx, msg)
	if err != nil || !ok {
		return err
	}
	reply.Timestamp = h.cfg.Messages.Now().UnixMilli()
	o, err := envelope.EncodePlain(appID, reply)
	if err != nil {
		return err
	}
	if id := reply.MessageID; id != 0 {
		o.MessageID = &id
	}
	return out.Send(ctx, o)
}

func (h *Handler) send(ctx context.Context, out Sender, appID domain.AppID, msg domain.ApplicationMessage) error {
	msg.Timestamp = h.cfg.Messages.Now().UnixMilli()
	enc, err := h.cfg.Messages.EncryptOutbound(h.secret(appID), msg)
	if err != nil {
		return err
	}
	o, err := envelope.EncodeReply(appID, msg.MessageID, enc)
	if err != nil {
		return err
	}
	return out.Send(ctx, o)
}

// respond builds the reply for an application command. ok is false when
// nothing should be sent.
func (h *Handler) respond(ctx context.Context, msg domain.ApplicationMessage) (domain.ApplicationMessage, bool, error) {
	b := h.cfg.Biometrics
	reply := domain.ApplicationMessage{Command: msg.Command, MessageID: msg.MessageID}

	switch msg.Kind() {
	case domain.CommandUnlockWithBiometricsForUser:
		key, err := b.UnlockForUser(ctx, msg.UserID)
		if err != nil || key == nil {
			log.Info().Err(err).Str("userId", msg.UserID.String()).Msg("Biometric unlock for user not completed")
			return reply.WithResponse(false), true, nil
		}
		log.Info().Str("userId", msg.UserID.String()).Msg("Biometric unlock for user")
		reply = reply.WithResponse(true)
		reply.UserKeyB64 = crypto.B64(key)
		return reply, true, nil

	case domain.CommandAuthenticateWithBiometrics:
		ok, err := b.Authenticate(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Biometric authentication failed")
		}
		return reply.WithResponse(ok && err == nil), true, nil

	case domain.CommandGetBiometricsStatus:
		return reply.WithResponse(b.Status(ctx)), true, nil

	case domain.CommandGetBiometricsStatusForUser:
		s := b.StatusForUser(ctx, msg.UserID)
		if s == domain.BiometricsNotEnabledLocally {
			s = domain.BiometricsNotEnabledInConnectedDesktopApp
		}
		return reply.WithResponse(s), true, nil

	case domain.CommandBiometricUnlockAvailable:
		resp := biometric.ResponseNotAvailable
		if b.Status(ctx) == domain.BiometricsAvailable {
			resp = biometric.ResponseAvailable
		}
		return domain.ApplicationMessage{Command: msg.Command}.WithResponse(resp), true, nil

	case domain.CommandBiometricUnlock:
		r, err := h.legacyUnlock(ctx, msg)
		return r, err == nil, err

	default:
		log.Error().Str("command", msg.Command).Msg("Got unknown command")
		return domain.ApplicationMessage{}, false, nil
	}
}

// legacyUnlock answers biometricUnlock. Replies carry no message id.
func (h *Handler) legacyUnlock(ctx context.Context, msg domain.ApplicationMessage) (domain.ApplicationMessage, error) {
	reply := func(resp string) domain.ApplicationMessage {
		return domain.ApplicationMessage{Command: domain.CommandBiometricUnlock.String()}.WithResponse(resp)
	}

	available := h.cfg.Biometrics.Status(ctx) == domain.BiometricsAvailable
	userID := msg.UserID
	if userID == "" {
		userID = h.cfg.DefaultUser
	}

	enabled := false
	if userID != "" {
		var err error
		if enabled, err = h.cfg.State.BiometricUnlockEnabled(userID); err != nil {
			return domain.ApplicationMessage{}, fmt.Errorf("load biometric state: %w", err)
		}
	}

	switch {
	case enabled && !available:
		return reply(biometric.ResponseNotAvailable), nil
	case !available:
		return reply(biometric.ResponseNotSupported), nil
	case userID == "":
		return reply(biometric.ResponseNotUnlocked), nil
	case !enabled:
		return reply(biometric.ResponseNotEnabled), nil
	}

	key, err := h.cfg.Biometrics.UnlockForUser(ctx, userID)
	if err != nil || key == nil {
		log.Info().Err(err).Str("userId", userID.String()).Msg("Biometric unlock canceled")
		return reply(biometric.ResponseCanceled), nil
	}
	r := reply(biometric.ResponseUnlocked)
	r.UserKeyB64 = crypto.B64(key)
	return r, nil
}
