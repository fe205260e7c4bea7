package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505 -- OAEP digest fixed by the native messaging peer
	"crypto/x509"
	"errors"
	"fmt"
)

// PairingKeyBits is the modulus size of the ephemeral pairing key pair.
const PairingKeyBits = 2048

var (
	// ErrNotRSAKey is returned when DER input parses but is not an RSA key.
	ErrNotRSAKey = errors.New("not an RSA key")
)

// RSAKeyPair holds an RSA private key with its SPKI-encoded public half.
type RSAKeyPair struct {
	Private *rsa.PrivateKey
	Public  []byte // SubjectPublicKeyInfo DER
}

// GenerateRSAKeyPair creates a fresh key pair of the given size.
func GenerateRSAKeyPair(bits int) (*RSAKeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal rsa public key: %w", err)
	}
	return &RSAKeyPair{Private: priv, Public: pub}, nil
}

// Destroy drops the private key material. The big.Int limbs are zeroed
// so the key cannot be recovered from a lingering reference.
func (kp *RSAKeyPair) Destroy() {
	if kp == nil || kp.Private == nil {
		return
	}
	kp.Private.D.SetInt64(0)
	for _, p := range kp.Private.Primes {
		p.SetInt64(0)
	}
	kp.Private.Precomputed = rsa.PrecomputedValues{}
	kp.Private = nil
}

// RSAEncryptSHA1 encrypts msg with RSA-OAEP (SHA-1) under an SPKI DER public key.
func RSAEncryptSHA1(publicDER, msg []byte) ([]byte, error) {
	pub, err := ParseRSAPublicKey(publicDER)
	if err != nil {
		return nil, err
	}
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, msg, nil)
}

// RSADecryptSHA1 decrypts an RSA-OAEP (SHA-1) ciphertext.
func RSADecryptSHA1(priv *rsa.PrivateKey, ct []byte) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("rsa decrypt: no private key")
	}
	return rsa.DecryptOAEP(sha1.New(), nil, priv, ct, nil)
}

// ParseRSAPublicKey parses a SubjectPublicKeyInfo DER public key.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return pub, nil
}

// MarshalRSAPrivateKey encodes a private key as PKCS#8 DER.
func MarshalRSAPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParseRSAPrivateKey parses a PKCS#8 DER private key.
func ParseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return priv, nil
}
