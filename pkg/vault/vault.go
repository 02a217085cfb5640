// Package vault encrypts voucher redemption codes at rest. The key is
// process-wide configuration; codes never touch storage in plaintext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/voucherbay/voucherbay-backend/pkg/config"
)

// ErrInvalidCiphertext signals a malformed or tampered encrypted code.
var ErrInvalidCiphertext = fmt.Errorf("invalid ciphertext")

// Vault performs symmetric encryption of secret codes with a fixed key.
type Vault struct {
	aead cipher.AEAD
}

// New derives an AES-256-GCM vault from the configured secret.
func New(cfg config.VaultConfig) (*Vault, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("vault secret is required")
	}

	key := sha256.Sum256([]byte(cfg.Secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext code and returns a base64 envelope of nonce plus
// ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("plaintext cannot be empty")
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 envelope produced by Encrypt.
func (v *Vault) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < v.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
