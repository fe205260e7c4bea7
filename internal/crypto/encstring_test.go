package crypto_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"deskbridge/internal/crypto"
)

func mustKey(t *testing.T) crypto.SymmetricKey {
	t.Helper()
	k, err := crypto.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey: %v", err)
	}
	return k
}

func TestEncString_RoundTrip(t *testing.T) {
	key := mustKey(t)

	enc, err := crypto.EncryptString(key, `{"command":"biometricUnlock"}`)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if !strings.HasPrefix(enc.String(), "2.") || strings.Count(enc.String(), "|") != 2 {
		t.Fatalf("unexpected encrypted string form %q", enc.String())
	}

	parsed, err := crypto.ParseEncString(enc.String())
	if err != nil {
		t.Fatalf("ParseEncString: %v", err)
	}
	got, err := crypto.DecryptString(key, parsed)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != `{"command":"biometricUnlock"}` {
		t.Fatalf("plaintext mismatch: %q", got)
	}
}

func TestEncString_TamperedMACRejected(t *testing.T) {
	key := mustKey(t)
	enc, err := crypto.Encrypt(key, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	enc.Data[0] ^= 0xff

	if _, err := crypto.Decrypt(key, enc); !errors.Is(err, crypto.ErrInvalidMAC) {
		t.Fatalf("want ErrInvalidMAC, got %v", err)
	}
}

func TestEncString_WrongKeyRejected(t *testing.T) {
	enc, err := crypto.Encrypt(mustKey(t), []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := crypto.Decrypt(mustKey(t), enc); err == nil {
		t.Fatal("expected error decrypting with a different key")
	}
}

func TestEncString_UnauthenticatedSuite(t *testing.T) {
	key, err := crypto.NewSymmetricKey(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("NewSymmetricKey: %v", err)
	}
	enc, err := crypto.Encrypt(key, []byte("legacy"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc.Type != crypto.AesCbc256B64 || len(enc.MAC) != 0 {
		t.Fatalf("want type 0 without mac, got type %d mac %d bytes", enc.Type, len(enc.MAC))
	}
	parsed, err := crypto.ParseEncString(enc.String())
	if err != nil {
		t.Fatalf("ParseEncString: %v", err)
	}
	got, err := crypto.Decrypt(key, parsed)
	if err != nil || string(got) != "legacy" {
		t.Fatalf("Decrypt = %q, %v", got, err)
	}
}

func TestParseEncString_Malformed(t *testing.T) {
	for _, s := range []string{"", "nodot", "2.aaaa|bbbb", "9.aaaa|bbbb|cccc", "x.aaaa|bbbb"} {
		if _, err := crypto.ParseEncString(s); !errors.Is(err, crypto.ErrInvalidEncString) {
			t.Fatalf("ParseEncString(%q): want ErrInvalidEncString, got %v", s, err)
		}
	}
}

func TestSymmetricKey_Layout(t *testing.T) {
	raw := make([]byte, crypto.SharedSecretSize)
	for i := range raw {
		raw[i] = byte(i)
	}
	key, err := crypto.NewSymmetricKey(raw)
	if err != nil {
		t.Fatalf("NewSymmetricKey: %v", err)
	}
	if !bytes.Equal(key.EncKey, raw[:32]) || !bytes.Equal(key.MacKey, raw[32:]) {
		t.Fatal("key halves do not match raw layout")
	}
	if !bytes.Equal(key.Bytes(), raw) {
		t.Fatal("Bytes does not reproduce raw key")
	}
	key.Destroy()
	if !key.IsZero() {
		t.Fatal("Destroy left key material behind")
	}
	if _, err := crypto.NewSymmetricKey(raw[:10]); err == nil {
		t.Fatal("expected error for 10-byte key")
	}
}
