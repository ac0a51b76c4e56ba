// Package assets resolves logical asset names to byte payloads, reading
// plaintext files directly and decrypting their ".enc" siblings through the
// vault codec.
//
// Precedence rule: for an asset named X the loader first checks X itself
// and returns it unmodified when present; otherwise it decrypts X.enc.
// Plaintext wins so that local development works without any key
// configured. A deployment that commits only ciphertext can force the
// encrypted representation with ForceEncrypted, which makes the loader
// ignore plaintext entirely.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/boveda/internal/vault"
)

// EncSuffix marks the encrypted representation of an asset.
const EncSuffix = ".enc"

var (
	// ErrNotFound reports that neither representation of an asset exists.
	ErrNotFound = errors.New("assets: asset not found")

	// ErrMissingKey reports that an encrypted representation exists but no
	// vault key is configured.
	ErrMissingKey = errors.New("assets: vault key not configured")
)

// Loader reads assets from a root directory. It performs no writes.
type Loader struct {
	root           string
	key            vault.Key
	hasKey         bool
	forceEncrypted bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithKey supplies the vault key used to decrypt ciphertext assets.
func WithKey(key vault.Key) Option {
	return func(l *Loader) {
		l.key = key
		l.hasKey = true
	}
}

// WithForceEncrypted makes the encrypted representation authoritative:
// plaintext files are ignored even when present.
func WithForceEncrypted() Option {
	return func(l *Loader) { l.forceEncrypted = true }
}

// New creates a Loader rooted at dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{root: dir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves a logical asset name to its payload.
//
// It fails with ErrNotFound when no representation exists, ErrMissingKey
// when only ciphertext exists and no key is configured, and
// vault.ErrAuthentication when decryption fails. Decryption failures are
// never downgraded to a plaintext fallback.
func (l *Loader) Load(name string) ([]byte, error) {
	plainPath := filepath.Join(l.root, filepath.FromSlash(name))
	encPath := plainPath + EncSuffix

	if !l.forceEncrypted {
		if data, err := os.ReadFile(plainPath); err == nil {
			log.Debug().Str("asset", name).Int("bytes", len(data)).Msg("loaded plaintext asset")
			return data, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("assets: reading %s: %w", name, err)
		}
	}

	blob, err := os.ReadFile(encPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("assets: reading %s: %w", name+EncSuffix, err)
	}

	if !l.hasKey {
		return nil, fmt.Errorf("%w: %s exists only as ciphertext", ErrMissingKey, name)
	}

	plaintext, err := vault.Decrypt(blob, l.key)
	if err != nil {
		return nil, fmt.Errorf("assets: decrypting %s: %w", name, err)
	}

	log.Debug().Str("asset", name).Int("bytes", len(plaintext)).Msg("decrypted asset")
	return plaintext, nil
}

// LoadJSON loads an asset and unmarshals it into v.
func (l *Loader) LoadJSON(name string, v any) error {
	data, err := l.Load(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("assets: parsing %s: %w", name, err)
	}
	return nil
}

// LoadText loads an asset as a UTF-8 string.
func (l *Loader) LoadText(name string) (string, error) {
	data, err := l.Load(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadTextTail loads an asset as text truncated to its last max bytes.
// Long chat transcripts are trimmed this way before prompting so they fit
// in a model's context window.
func (l *Loader) LoadTextTail(name string, max int) (string, error) {
	text, err := l.LoadText(name)
	if err != nil {
		return "", err
	}
	if max > 0 && len(text) > max {
		text = text[len(text)-max:]
	}
	return text, nil
}
