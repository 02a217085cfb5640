package vault

import (
	"testing"

	"github.com/voucherbay/voucherbay-backend/pkg/config"
)

func TestVaultRoundTrip(t *testing.T) {
	v, err := New(config.VaultConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	encrypted, err := v.Encrypt("GIFT-1234-5678")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if encrypted == "GIFT-1234-5678" {
		t.Fatal("ciphertext must differ from plaintext")
	}

	plaintext, err := v.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plaintext != "GIFT-1234-5678" {
		t.Fatalf("unexpected plaintext %q", plaintext)
	}
}

func TestVaultWrongKey(t *testing.T) {
	v1, err := New(config.VaultConfig{Secret: "key-one"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	v2, err := New(config.VaultConfig{Secret: "key-two"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	encrypted, err := v1.Encrypt("SCRATCH-CODE")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := v2.Decrypt(encrypted); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestVaultRejectsGarbage(t *testing.T) {
	v, err := New(config.VaultConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	for _, input := range []string{"", "not-base64!!!", "aGVsbG8"} {
		if _, err := v.Decrypt(input); err != ErrInvalidCiphertext {
			t.Fatalf("expected ErrInvalidCiphertext for %q, got %v", input, err)
		}
	}
}

func TestVaultRequiresSecret(t *testing.T) {
	if _, err := New(config.VaultConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
