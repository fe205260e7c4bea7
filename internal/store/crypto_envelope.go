package store

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the sealed blob format stored on disk.
	vaultFormatVersion = 1
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// sealed blob has been modified / corrupted.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted vault entry")
)

// sealedBlob is the on‑disk JSON structure holding the ciphertext and KDF parameters.
type sealedBlob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw, binding ad (the
// entry's owner) as associated data.
func seal(passphrase string, raw, ad []byte, params scryptParams) (sealedBlob, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return sealedBlob{}, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, params.N, params.R, params.P, chacha20poly1305.KeySize)
	if err != nil {
		return sealedBlob{}, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return sealedBlob{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return sealedBlob{}, err
	}
	return sealedBlob{
		V:      vaultFormatVersion,
		Salt:   salt,
		N:      params.N,
		R:      params.R,
		P:      params.P,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, raw, ad),
	}, nil
}

// open decrypts a blob using a key derived from passphrase.
func open(passphrase string, bl sealedBlob, ad []byte) ([]byte, error) {
	if bl.V > vaultFormatVersion {
		return nil, fmt.Errorf("unsupported vault version %d", bl.V)
	}
	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, ad)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// scryptParams are the tunables for scrypt key derivation.
type scryptParams struct{ N, R, P int }

func scryptParamsDefault() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }
