// Package secrets resolves credentials and the vault key from the
// environment. It is pure lookup: no validation beyond decoding, no
// caching, no probing at request time. Callers resolve once at startup.
package secrets

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/boveda/internal/vault"
)

// Lookup abstracts the source of secret values. The default is the
// process environment; tests substitute a map.
type Lookup func(name string) string

// FromEnv resolves secrets from os.Getenv.
func FromEnv() Lookup { return os.Getenv }

// FromMap resolves secrets from a fixed map, for tests and embedding.
func FromMap(values map[string]string) Lookup {
	return func(name string) string { return values[name] }
}

// APIKey returns the credential stored under name, or "" when unset.
// An empty result is not an error: a missing provider key just disables
// that provider.
func APIKey(lookup Lookup, name string) string {
	return lookup(name)
}

// VaultKey resolves the symmetric vault key. VAULT_KEY may hold either a
// base64-encoded 256-bit key or a passphrase to stretch into one. The
// second return is false when no key is configured at all, which is fatal
// only if an encrypted asset is actually requested.
func VaultKey(lookup Lookup) (vault.Key, bool, error) {
	raw := lookup("VAULT_KEY")
	if raw == "" {
		return vault.Key{}, false, nil
	}

	if key, err := vault.ParseKey(raw); err == nil {
		return key, true, nil
	}

	// Not a literal key: treat the value as a passphrase.
	log.Debug().Msg("VAULT_KEY is not base64 key material, deriving via scrypt")
	key, err := vault.DeriveKey(raw)
	if err != nil {
		return vault.Key{}, false, fmt.Errorf("secrets: resolving vault key: %w", err)
	}
	return key, true, nil
}
