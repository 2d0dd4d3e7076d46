package secret

import (
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(GenerateKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	token, err := c.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if token == "hunter2" {
		t.Fatal("token should not be plaintext")
	}

	plain, err := c.Decrypt(token)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "hunter2" {
		t.Fatalf("expected hunter2, got %q", plain)
	}
}

func TestDecryptMalformedToken(t *testing.T) {
	c, err := NewCipher(GenerateKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	for _, token := range []string{"not base64!!!", "c2hvcnQ="} {
		if _, err := c.Decrypt(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("token %q: expected ErrMalformedToken, got %v", token, err)
		}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	c1, err := NewCipher(GenerateKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	c2, err := NewCipher(GenerateKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	token, err := c1.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := c2.Decrypt(token); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestNewCipherRejectsBadKey(t *testing.T) {
	if _, err := NewCipher("too-short"); err == nil {
		t.Fatal("expected error for undecodable key")
	}
	if _, err := NewCipher("c2hvcnQ="); err == nil {
		t.Fatal("expected error for short key")
	}
}
