package session_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/services/session"
)

func TestSession_CompleteDerivesPeerSecret(t *testing.T) {
	s, err := session.New().Begin("user-1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	now := time.UnixMilli(1_700_000_000_000)
	setup := s.SetupMessage(7, now)
	if setup.Kind() != domain.CommandSetupEncryption || setup.UserID != "user-1" ||
		setup.Timestamp != now.UnixMilli() || setup.MessageID != 7 {
		t.Fatalf("unexpected setup message %+v", setup)
	}

	// Play the companion: encrypt 64 random bytes to the published key.
	pub, err := crypto.FromB64(setup.PublicKey)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	peer, err := crypto.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey: %v", err)
	}
	blob, err := crypto.RSAEncryptSHA1(pub, peer.Bytes())
	if err != nil {
		t.Fatalf("RSAEncryptSHA1: %v", err)
	}

	key, err := s.Complete(crypto.B64(blob))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !bytes.Equal(key.Bytes(), peer.Bytes()) {
		t.Fatal("derived key differs from the secret the peer sent")
	}
	if s.Active() {
		t.Fatal("private key kept after Complete")
	}
	if _, err := s.Complete(crypto.B64(blob)); !errors.Is(err, session.ErrSessionDestroyed) {
		t.Fatalf("second Complete: want ErrSessionDestroyed, got %v", err)
	}
}

func TestSession_FreshKeyPerAttempt(t *testing.T) {
	svc := session.New()
	a, err := svc.Begin("u")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	b, err := svc.Begin("u")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Fatal("two attempts share a key pair")
	}
}

func TestSession_BadBlobDestroysKey(t *testing.T) {
	s, err := session.New().Begin("u")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Complete(crypto.B64([]byte("garbage"))); err == nil {
		t.Fatal("expected error for undecryptable blob")
	}
	if s.Active() {
		t.Fatal("private key kept after failed Complete")
	}
}
