package companion_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"deskbridge/internal/companion"
	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/envelope"
	"deskbridge/internal/services/biometric"
	"deskbridge/internal/services/identity"
	"deskbridge/internal/services/message"
	"deskbridge/internal/services/session"
	"deskbridge/internal/store"
)

const (
	app        domain.AppID  = "app-1"
	user       domain.UserID = "user-1"
	passphrase               = "correct horse"
)

// recorder captures what the handler sends, decoded back into envelopes.
type recorder struct {
	mu   sync.Mutex
	sent []envelope.Outer
}

func (r *recorder) Send(_ context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	o, err := envelope.Decode(raw)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, o)
	r.mu.Unlock()
	return nil
}

func (r *recorder) take(t *testing.T) []envelope.Outer {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

type fixture struct {
	h     *companion.Handler
	state *store.StateFileStore
	vault *store.VaultFileStore
	bio   *companion.VaultBiometrics
}

func newFixture(t *testing.T, approver domain.FingerprintApprover) *fixture {
	t.Helper()
	home := t.TempDir()

	accounts := store.NewAccountFileStore(home)
	if err := accounts.SaveAccount(domain.Account{UserID: user}); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}
	f := &fixture{
		state: store.NewStateFileStore(home),
		vault: store.NewVaultFileStore(home),
	}
	f.bio = &companion.VaultBiometrics{Vault: f.vault, Passphrase: passphrase, Available: true}

	h, err := companion.NewHandler(companion.Config{
		Accounts:     accounts,
		State:        f.state,
		Biometrics:   f.bio,
		Fingerprints: identity.New(store.NewAppIDFileStore(home), nil),
		Approver:     approver,
		Messages:     message.New(0),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	f.h = h
	return f
}

func frame(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func setupFrame(t *testing.T, s *session.Session) []byte {
	t.Helper()
	out, err := envelope.EncodePlain(app, s.SetupMessage(1, time.Now()))
	if err != nil {
		t.Fatalf("EncodePlain: %v", err)
	}
	return frame(t, out)
}

// pair runs the handshake and returns the client's view of the secret.
func pair(t *testing.T, h *companion.Handler) crypto.SymmetricKey {
	t.Helper()
	s, err := session.New().Begin(user)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec := &recorder{}
	if err := h.Handle(context.Background(), rec, setupFrame(t, s)); err != nil {
		t.Fatalf("Handle(setup): %v", err)
	}
	sent := rec.take(t)
	if len(sent) != 1 || sent[0].Kind() != domain.CommandSetupEncryption {
		t.Fatalf("unexpected handshake reply %+v", sent)
	}
	if sent[0].MessageID == nil || *sent[0].MessageID != -1 {
		t.Fatalf("handshake reply must carry messageId -1, got %v", sent[0].MessageID)
	}
	key, err := s.Complete(sent[0].SharedSecret)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return key
}

func request(t *testing.T, key crypto.SymmetricKey, msg domain.ApplicationMessage) []byte {
	t.Helper()
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	enc, err := crypto.Encrypt(key, frame(t, msg))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	out, err := envelope.EncodeEncrypted(app, enc)
	if err != nil {
		t.Fatalf("EncodeEncrypted: %v", err)
	}
	return frame(t, out)
}

// roundTrip sends msg and decrypts the single reply.
func roundTrip(t *testing.T, h *companion.Handler, key crypto.SymmetricKey, msg domain.ApplicationMessage) (envelope.Outer, domain.ApplicationMessage) {
	t.Helper()
	rec := &recorder{}
	if err := h.Handle(context.Background(), rec, request(t, key, msg)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	sent := rec.take(t)
	if len(sent) != 1 {
		t.Fatalf("want one reply, got %d", len(sent))
	}
	pl, err := envelope.ParsePayload(sent[0].Message)
	if err != nil || pl.Kind != envelope.PayloadEncString {
		t.Fatalf("reply is not an EncString: %+v (%v)", pl, err)
	}
	raw, err := crypto.Decrypt(key, pl.Enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	var reply domain.ApplicationMessage
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	return sent[0], reply
}

func TestHandler_UnknownUserGetsWrongUserID(t *testing.T) {
	f := newFixture(t, nil)
	s, err := session.New().Begin("stranger")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec := &recorder{}
	if err := f.h.Handle(context.Background(), rec, setupFrame(t, s)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	sent := rec.take(t)
	if len(sent) != 1 || sent[0].Kind() != domain.CommandWrongUserID || sent[0].AppID != app {
		t.Fatalf("unexpected reply %+v", sent)
	}
	if f.h.Paired(app) {
		t.Fatal("secret stored for an unknown user")
	}
}

type approverFunc func(domain.Fingerprint) bool

func (f approverFunc) ApproveFingerprint(_ context.Context, fp domain.Fingerprint) (bool, error) {
	return f(fp), nil
}

func TestHandler_FingerprintRejectedStopsPairing(t *testing.T) {
	var seen domain.Fingerprint
	f := newFixture(t, approverFunc(func(fp domain.Fingerprint) bool {
		seen = fp
		return false
	}))
	s, err := session.New().Begin(user)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec := &recorder{}
	if err := f.h.Handle(context.Background(), rec, setupFrame(t, s)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	sent := rec.take(t)
	if len(sent) != 1 || sent[0].Kind() != domain.CommandVerifyFingerprint {
		t.Fatalf("want only verifyFingerprint, got %+v", sent)
	}
	if len(seen) != 4 {
		t.Fatalf("approver saw %v; want a four word hex phrase", seen)
	}
	if f.h.Paired(app) {
		t.Fatal("paired despite rejected fingerprint")
	}
}

func TestHandler_UnpairedOrGarbledMessagesInvalidate(t *testing.T) {
	f := newFixture(t, nil)
	stray, err := crypto.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey: %v", err)
	}

	rec := &recorder{}
	msg := domain.ApplicationMessage{Command: "getBiometricsStatus", MessageID: 3}
	if err := f.h.Handle(context.Background(), rec, request(t, stray, msg)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sent := rec.take(t); len(sent) != 1 || sent[0].Kind() != domain.CommandInvalidateEncryption {
		t.Fatalf("unpaired: want invalidateEncryption, got %+v", sent)
	}

	pair(t, f.h)
	if err := f.h.Handle(context.Background(), rec, request(t, stray, msg)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sent := rec.take(t); len(sent) != 1 || sent[0].Kind() != domain.CommandInvalidateEncryption {
		t.Fatalf("wrong key: want invalidateEncryption, got %+v", sent)
	}
	if f.h.Paired(app) {
		t.Fatal("secret kept after a message failed to decrypt")
	}
}

func TestHandler_StaleMessagesIgnored(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)

	rec := &recorder{}
	msg := domain.ApplicationMessage{
		Command:   "getBiometricsStatus",
		MessageID: 2,
		Timestamp: time.Now().Add(-30 * time.Second).UnixMilli(),
	}
	if err := f.h.Handle(context.Background(), rec, request(t, key, msg)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sent := rec.take(t); len(sent) != 0 {
		t.Fatalf("stale message answered: %+v", sent)
	}
}

func TestHandler_StatusCommandsEchoMessageID(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)

	outer, reply := roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "getBiometricsStatus", MessageID: 7})
	if outer.MessageID == nil || *outer.MessageID != 7 || reply.MessageID != 7 {
		t.Fatalf("message id not echoed: outer %v inner %d", outer.MessageID, reply.MessageID)
	}
	if string(reply.Response) != "0" {
		t.Fatalf("status = %s; want 0 (available)", reply.Response)
	}

	// No key in the vault yet: reported as not enabled on the desktop side.
	_, reply = roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "getBiometricsStatusForUser", MessageID: 8, UserID: user})
	var status domain.BiometricStatus
	if err := json.Unmarshal(reply.Response, &status); err != nil || status != domain.BiometricsNotEnabledInConnectedDesktopApp {
		t.Fatalf("status for user = %s", reply.Response)
	}
}

func TestHandler_UnlockWithBiometricsForUser(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)

	_, reply := roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "unlockWithBiometricsForUser", MessageID: 4, UserID: user})
	if ok, _ := reply.ResponseBool(); ok || reply.UserKeyB64 != "" {
		t.Fatalf("unlock without a vault entry succeeded: %+v", reply)
	}

	userKey := make([]byte, 64)
	userKey[0] = 9
	if err := f.vault.SaveUserKey(passphrase, user, userKey); err != nil {
		t.Fatalf("SaveUserKey: %v", err)
	}
	_, reply = roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "unlockWithBiometricsForUser", MessageID: 5, UserID: user})
	if ok, _ := reply.ResponseBool(); !ok || reply.UserKeyB64 != crypto.B64(userKey) {
		t.Fatalf("unexpected unlock reply %+v", reply)
	}
}

func TestHandler_LegacyBiometricUnlockResponses(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)
	unlock := domain.ApplicationMessage{Command: "biometricUnlock", UserID: user}

	expect := func(want string) domain.ApplicationMessage {
		t.Helper()
		outer, reply := roundTrip(t, f.h, key, unlock)
		if got, _ := reply.ResponseString(); got != want {
			t.Fatalf("response = %q; want %q", got, want)
		}
		if outer.MessageID != nil {
			t.Fatalf("legacy reply carried message id %d", *outer.MessageID)
		}
		return reply
	}

	expect(biometric.ResponseNotEnabled)

	if err := f.state.SetBiometricUnlockEnabled(user, true); err != nil {
		t.Fatalf("SetBiometricUnlockEnabled: %v", err)
	}
	expect(biometric.ResponseCanceled) // enabled, but the vault has no key

	userKey := make([]byte, 64)
	if err := f.vault.SaveUserKey(passphrase, user, userKey); err != nil {
		t.Fatalf("SaveUserKey: %v", err)
	}
	if r := expect(biometric.ResponseUnlocked); r.UserKeyB64 != crypto.B64(userKey) {
		t.Fatal("unlocked reply without the user key")
	}

	f.bio.Available = false
	expect(biometric.ResponseNotAvailable)
	if err := f.state.SetBiometricUnlockEnabled(user, false); err != nil {
		t.Fatalf("SetBiometricUnlockEnabled: %v", err)
	}
	expect(biometric.ResponseNotSupported)
}

func TestHandler_LegacyAvailability(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)

	_, reply := roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "biometricUnlockAvailable"})
	if s, _ := reply.ResponseString(); s != biometric.ResponseAvailable {
		t.Fatalf("response = %q", s)
	}
	f.bio.Available = false
	_, reply = roundTrip(t, f.h, key, domain.ApplicationMessage{Command: "biometricUnlockAvailable"})
	if s, _ := reply.ResponseString(); s != biometric.ResponseNotAvailable {
		t.Fatalf("response = %q", s)
	}
}

func TestHandler_UnknownCommandIgnored(t *testing.T) {
	f := newFixture(t, nil)
	key := pair(t, f.h)

	rec := &recorder{}
	if err := f.h.Handle(context.Background(), rec, request(t, key, domain.ApplicationMessage{Command: "selfDestruct", MessageID: 1})); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sent := rec.take(t); len(sent) != 0 {
		t.Fatalf("unknown command answered: %+v", sent)
	}
}
