// Package cryptoutil provides ports.Cipher implementations for the
// Resume System's checkpoint payload encryption (spec.md §4.H/§9).
package cryptoutil

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/reconctl/reconctl/internal/ports"
)

// AEADCipher implements ports.Cipher using ChaCha20-Poly1305 with a
// fixed 256-bit key, prefixing each ciphertext with its random nonce so
// Decrypt is self-contained.
type AEADCipher struct {
	aead cipher.AEAD
}

// NewAEADCipher constructs an AEADCipher from a 32-byte key (e.g. one
// derived from an operator-supplied passphrase via a KDF upstream of
// this package).
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("construct aead cipher: %w", err)
	}
	return &AEADCipher{aead: aead}, nil
}

// Encrypt seals plaintext, returning nonce||ciphertext.
func (c *AEADCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *AEADCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext shorter than nonce size %d", nonceSize)
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint ciphertext: %w", err)
	}
	return plaintext, nil
}

var _ ports.Cipher = (*AEADCipher)(nil)
