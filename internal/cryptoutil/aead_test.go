package cryptoutil

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAEADCipherRoundTrip(t *testing.T) {
	c, err := NewAEADCipher(testKey())
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}

	plaintext := []byte(`{"completed_stages":["nmap_scan","dns_enum"]}`)
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}

	decrypted, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected round-trip to recover plaintext, got %q", decrypted)
	}
}

func TestAEADCipherProducesDistinctCiphertextsPerCall(t *testing.T) {
	c, err := NewAEADCipher(testKey())
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}

	plaintext := []byte("checkpoint payload")
	a, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("expected distinct nonces to produce distinct ciphertexts")
	}
}

func TestAEADCipherRejectsTamperedCiphertext(t *testing.T) {
	c, err := NewAEADCipher(testKey())
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}

	ciphertext, err := c.Encrypt([]byte("checkpoint payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := c.Decrypt(ciphertext); err == nil {
		t.Fatal("expected Decrypt to reject a tampered ciphertext")
	}
}
