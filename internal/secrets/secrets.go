// Package secrets encrypts integration credentials at rest. Keys are
// derived from a passphrase with scrypt; payloads are sealed with
// ChaCha20-Poly1305.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16

	// scrypt parameters, interactive-login strength
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var ErrInvalidCiphertext = errors.New("invalid or corrupted ciphertext")

// Encrypt seals plaintext under a passphrase. The output encodes
// salt, nonce and ciphertext and is safe to store in the database.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := deriveAEAD(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	payload := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. A wrong passphrase or tampered payload
// returns ErrInvalidCiphertext.
func Decrypt(encoded, passphrase string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(payload) < saltSize+chacha20poly1305.NonceSizeX {
		return "", ErrInvalidCiphertext
	}

	salt := payload[:saltSize]
	nonce := payload[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	sealed := payload[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := deriveAEAD(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

func deriveAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return chacha20poly1305.NewX(key)
}
