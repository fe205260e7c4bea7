package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidEncString is returned for strings that are not in "<type>.<iv>|<data>[|<mac>]" form.
	ErrInvalidEncString = errors.New("invalid encrypted string")
	// ErrInvalidMAC is returned when the HMAC tag does not verify.
	ErrInvalidMAC = errors.New("invalid mac")
	// ErrDecryptionFailed is returned for key/type mismatches and bad padding.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// EncString is an AES-CBC ciphertext with its IV and optional MAC.
type EncString struct {
	Type EncType
	IV   []byte
	Data []byte
	MAC  []byte
}

// String renders the canonical "<type>.<iv>|<data>|<mac>" form.
func (e EncString) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(e.Type)))
	sb.WriteByte('.')
	sb.WriteString(B64(e.IV))
	sb.WriteByte('|')
	sb.WriteString(B64(e.Data))
	if len(e.MAC) > 0 {
		sb.WriteByte('|')
		sb.WriteString(B64(e.MAC))
	}
	return sb.String()
}

// ParseEncString parses the canonical string form.
func ParseEncString(s string) (EncString, error) {
	head, body, ok := strings.Cut(s, ".")
	if !ok {
		return EncString{}, ErrInvalidEncString
	}
	t, err := strconv.Atoi(head)
	if err != nil {
		return EncString{}, fmt.Errorf("%w: bad type %q", ErrInvalidEncString, head)
	}
	parts := strings.Split(body, "|")

	var e EncString
	e.Type = EncType(t)
	switch e.Type {
	case AesCbc256B64:
		if len(parts) != 2 {
			return EncString{}, ErrInvalidEncString
		}
	case AesCbc256HmacSha256B64:
		if len(parts) != 3 {
			return EncString{}, ErrInvalidEncString
		}
		if e.MAC, err = FromB64(parts[2]); err != nil {
			return EncString{}, fmt.Errorf("%w: mac: %v", ErrInvalidEncString, err)
		}
	default:
		return EncString{}, fmt.Errorf("%w: unsupported type %d", ErrInvalidEncString, t)
	}
	if e.IV, err = FromB64(parts[0]); err != nil {
		return EncString{}, fmt.Errorf("%w: iv: %v", ErrInvalidEncString, err)
	}
	if e.Data, err = FromB64(parts[1]); err != nil {
		return EncString{}, fmt.Errorf("%w: data: %v", ErrInvalidEncString, err)
	}
	return e, nil
}

// Encrypt seals plaintext with key using a random IV.
func Encrypt(key SymmetricKey, plaintext []byte) (EncString, error) {
	if key.IsZero() {
		return EncString{}, errors.New("encrypt: empty key")
	}
	block, err := aes.NewCipher(key.EncKey)
	if err != nil {
		return EncString{}, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return EncString{}, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	e := EncString{Type: key.Type, IV: iv, Data: ct}
	if key.Type == AesCbc256HmacSha256B64 {
		e.MAC = computeMAC(key.MacKey, iv, ct)
	}
	return e, nil
}

// EncryptString is Encrypt for UTF-8 text.
func EncryptString(key SymmetricKey, s string) (EncString, error) {
	return Encrypt(key, []byte(s))
}

// Decrypt verifies and opens e with key.
func Decrypt(key SymmetricKey, e EncString) ([]byte, error) {
	if key.IsZero() {
		return nil, errors.New("decrypt: empty key")
	}
	if e.Type != key.Type {
		return nil, fmt.Errorf("%w: key type %d, data type %d", ErrDecryptionFailed, key.Type, e.Type)
	}
	if key.Type == AesCbc256HmacSha256B64 {
		want := computeMAC(key.MacKey, e.IV, e.Data)
		if subtle.ConstantTimeCompare(want, e.MAC) != 1 {
			return nil, ErrInvalidMAC
		}
	}
	if len(e.IV) != aes.BlockSize || len(e.Data) == 0 || len(e.Data)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	block, err := aes.NewCipher(key.EncKey)
	if err != nil {
		return nil, err
	}
	pt := make([]byte, len(e.Data))
	cipher.NewCBCDecrypter(block, e.IV).CryptBlocks(pt, e.Data)
	return pkcs7Unpad(pt, aes.BlockSize)
}

// DecryptString is Decrypt returning UTF-8 text.
func DecryptString(key SymmetricKey, e EncString) (string, error) {
	b, err := Decrypt(key, e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func computeMAC(macKey, iv, data []byte) []byte {
	m := hmac.New(sha256.New, macKey)
	m.Write(iv)
	m.Write(data)
	return m.Sum(nil)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrDecryptionFailed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, ErrDecryptionFailed
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrDecryptionFailed
		}
	}
	return b[:len(b)-n], nil
}
