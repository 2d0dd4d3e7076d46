// Package secret reversibly encrypts stored upstream account passwords.
// Rotation needs the plaintext back to re-authenticate, so this is
// authenticated encryption, not hashing.
package secret

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrMalformedToken means the stored value is not valid ciphertext at
	// all (bad encoding or truncated). Re-encrypting is the only fix.
	ErrMalformedToken = errors.New("malformed secret token")

	// ErrDecryptFailed means the ciphertext is well-formed but does not
	// authenticate under the configured key (wrong key or tampered data).
	ErrDecryptFailed = errors.New("decryption failed")
)

// Cipher encrypts and decrypts short strings under one service-wide key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a base64-encoded 32-byte key
// (the chatgpt_user_secret config value).
func NewCipher(encodedKey string) (*Cipher, error) {
	key, err := base64.URLEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64 token (nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Callers can distinguish a
// garbage row (ErrMalformedToken) from a key mismatch (ErrDecryptFailed).
func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("%w: token too short", ErrMalformedToken)
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// GenerateKey returns a fresh base64 key suitable for chatgpt_user_secret.
func GenerateKey() string {
	key := make([]byte, chacha20poly1305.KeySize)
	rand.Read(key)
	return base64.URLEncoding.EncodeToString(key)
}
