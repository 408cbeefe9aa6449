// Package crypto provides the pluggable symmetric cipher that protects card
// numbers and CVVs at rest. The engine only ever sees cipher text; decryption
// happens on demand and a decryption failure is a fatal data-integrity error.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey = errors.New("cipher key must be 32 bytes")

	// ErrDecryptFailed indicates stored cipher text could not be opened.
	// Callers must treat this as data corruption, never as an empty value.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Cipher is the pluggable symmetric cipher contract. Implementations must be
// authenticated: tampered cipher text has to fail decryption, not produce
// garbage plaintext.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AEADCipher implements Cipher with XChaCha20-Poly1305. The random nonce is
// prepended to the sealed box and the whole blob is base64 encoded.
type AEADCipher struct {
	key []byte
}

// NewAEADCipher expects a hex-encoded 32-byte key, as loaded from config.
func NewAEADCipher(hexKey string) (*AEADCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding cipher key: %w", err)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}

	return &AEADCipher{key: key}, nil
}

func (c *AEADCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("cannot encrypt empty value")
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Decrypt(ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	if len(blob) < aead.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, sealed := blob[:aead.NonceSize()], blob[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}
