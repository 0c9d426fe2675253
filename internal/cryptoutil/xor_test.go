package cryptoutil

import "testing"

func TestXORCipherRoundTrip(t *testing.T) {
	c := NewXORCipher([]byte("key"))
	plaintext := []byte("checkpoint payload")

	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Fatalf("expected round-trip to recover plaintext, got %q", decrypted)
	}
}

func TestXORCipherEmptyKeyIsIdentity(t *testing.T) {
	c := NewXORCipher(nil)
	plaintext := []byte("checkpoint payload")

	ciphertext, _ := c.Encrypt(plaintext)
	if string(ciphertext) != string(plaintext) {
		t.Fatalf("expected empty-key cipher to be the identity transform, got %q", ciphertext)
	}
}
