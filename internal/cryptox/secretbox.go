// Package cryptox encrypts short strings that travel through the browser and
// must come back untouched, such as confirmation overrides in hidden fields.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	keyInfo   = "go-form-editor/confirmation/v1"
)

var (
	ErrMalformed = errors.New("cryptox: malformed ciphertext")
	ErrDecrypt   = errors.New("cryptox: decryption failed")
)

// Cipher is a symmetric string cipher.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) (string, error)
}

type SecretBox struct {
	key [keySize]byte
}

// NewSecretBox derives the box key from secret with HKDF-SHA256.
func NewSecretBox(secret string) (*SecretBox, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("cryptox: secret must be at least 16 bytes")
	}

	box := &SecretBox{}
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(reader, box.key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return box, nil
}

// Encrypt returns base64url(nonce || sealed box).
func (b *SecretBox) Encrypt(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (b *SecretBox) Decrypt(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}

	return string(plain), nil
}
