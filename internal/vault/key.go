package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Key is a fixed-length symmetric vault key. It lives only in process
// memory; String and format verbs are overridden so it cannot leak into
// logs by accident.
type Key [KeySize]byte

// String implements fmt.Stringer with a redacted value.
func (Key) String() string { return "[redacted vault key]" }

// Format keeps %v/%+v/%#v from dumping key bytes.
func (k Key) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, k.String())
}

// MarshalText refuses to serialize the key.
func (Key) MarshalText() ([]byte, error) {
	return nil, fmt.Errorf("vault: key is not serializable")
}

// GenerateKey returns a new random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, fmt.Errorf("vault: generating key: %w", err)
	}
	return k, nil
}

// ParseKey decodes a base64-encoded 256-bit key. Both standard and URL-safe
// alphabets are accepted, with or without padding.
func ParseKey(encoded string) (Key, error) {
	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		raw, err = enc.DecodeString(encoded)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Key{}, fmt.Errorf("vault: key is not valid base64: %w", err)
	}
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(raw))
	}

	var k Key
	copy(k[:], raw)
	return k, nil
}

// EncodeKey renders a key in the URL-safe base64 form expected by VAULT_KEY.
func EncodeKey(k Key) string {
	return base64.URLEncoding.EncodeToString(k[:])
}

// DeriveKey stretches a passphrase into a key with scrypt. The salt is
// fixed per application: the deployment model is a single operator with a
// single vault, and the derivation must be reproducible from the
// passphrase alone.
func DeriveKey(passphrase string) (Key, error) {
	if passphrase == "" {
		return Key{}, fmt.Errorf("vault: passphrase is empty")
	}

	salt := sha256.Sum256([]byte("boveda/vault/v1"))
	raw, err := scrypt.Key([]byte(passphrase), salt[:16], 1<<15, 8, 1, KeySize)
	if err != nil {
		return Key{}, fmt.Errorf("vault: deriving key: %w", err)
	}

	var k Key
	copy(k[:], raw)
	return k, nil
}
