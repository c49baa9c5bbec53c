//go:build !integration

package security

import (
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	for _, key := range []string{"0123456789abcdef", "a passphrase of arbitrary length"} {
		svc, err := NewEncryptionService(key)
		if err != nil {
			t.Fatalf("key %q: %v", key, err)
		}
		ct, err := svc.Encrypt(`{"messages":[]}`)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		pt, err := svc.Decrypt(ct)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if pt != `{"messages":[]}` {
			t.Errorf("round trip mismatch: %q", pt)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	svc, _ := NewEncryptionService("0123456789abcdef")
	a, _ := svc.Encrypt("same")
	b, _ := svc.Encrypt("same")
	if a == b {
		t.Error("want distinct ciphertexts for the same plaintext")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	svc, _ := NewEncryptionService("0123456789abcdef")
	other, _ := NewEncryptionService("fedcba9876543210")
	ct, _ := svc.Encrypt("secret")

	if _, err := other.Decrypt(ct); err == nil {
		t.Error("want error decrypting with a different key")
	}
	if _, err := svc.Decrypt("not-base64!"); err == nil {
		t.Error("want error for malformed input")
	}
	if _, err := NewEncryptionService(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("want ErrEmptyKey, got %v", err)
	}
}
