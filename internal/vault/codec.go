// Package vault implements the authenticated encryption used to protect
// asset files at rest. Blobs are self-contained: a random 24-byte nonce is
// prepended to the secretbox ciphertext, so nothing besides the key is
// needed to decrypt.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the symmetric key length in bytes (256 bits).
const KeySize = 32

// nonceSize is the secretbox nonce length prepended to every blob.
const nonceSize = 24

// ErrAuthentication is returned when a ciphertext fails to authenticate:
// the blob was tampered with, truncated, or encrypted under a different key.
var ErrAuthentication = errors.New("vault: ciphertext authentication failed")

// Encrypt seals plaintext under key. The returned blob is nonce || box and
// decrypts only with the same key. Nonces are random, so encrypting the
// same plaintext twice yields different blobs.
func Encrypt(plaintext []byte, key Key) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("vault: generating nonce: %w", err)
	}

	raw := [KeySize]byte(key)
	return secretbox.Seal(nonce[:], plaintext, &nonce, &raw), nil
}

// Decrypt opens a blob produced by Encrypt. It fails with ErrAuthentication
// if the blob is malformed, tampered with, or sealed under another key; it
// never returns corrupted plaintext.
func Decrypt(blob []byte, key Key) ([]byte, error) {
	if len(blob) < nonceSize+secretbox.Overhead {
		return nil, ErrAuthentication
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	raw := [KeySize]byte(key)
	plaintext, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &raw)
	if !ok {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
