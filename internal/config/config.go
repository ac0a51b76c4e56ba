// Package config builds the application configuration once at startup.
// Sources, in increasing precedence: built-in defaults, an optional
// boveda.toml, BOVEDA_-prefixed environment variables, and finally the
// well-known credential variables (GOOGLE_API_KEY, MISTRAL_API_KEY,
// GROQ_API_KEY, their role-based PRIMARY/FALLBACK/EMERGENCY_PROVIDER_KEY
// aliases, VAULT_KEY and the rate-limit knobs). Nothing reads the
// environment after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ProviderConfig describes one LLM backend. A provider with an empty
// APIKey is disabled: the ensemble records it as skipped rather than
// treating it as an error.
type ProviderConfig struct {
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
	Priority int    `koanf:"priority"`
}

// Enabled reports whether the provider has a credential.
func (p ProviderConfig) Enabled() bool { return p.APIKey != "" }

// Config is the application configuration, immutable after Load.
type Config struct {
	Assets struct {
		Dir            string `koanf:"dir"`
		ForceEncrypted bool   `koanf:"force_encrypted"`
	} `koanf:"assets"`

	Vault struct {
		// Key is either a base64 256-bit key or a passphrase; see the
		// secrets package. Empty disables decryption of encrypted assets.
		Key string `koanf:"key"`
	} `koanf:"vault"`

	Providers struct {
		Gemini  ProviderConfig `koanf:"gemini"`
		Mistral ProviderConfig `koanf:"mistral"`
		Groq    ProviderConfig `koanf:"groq"`
	} `koanf:"providers"`

	Ensemble struct {
		TimeoutSeconds    float64 `koanf:"timeout_seconds"`
		RequestsPerMinute int     `koanf:"requests_per_minute"`
	} `koanf:"ensemble"`

	Guard struct {
		MaxFailures        int     `koanf:"max_failures"`
		WindowSeconds      int     `koanf:"window_seconds"`
		MinIntervalSeconds float64 `koanf:"min_interval_seconds"`
		// LedgerDSN is an optional sqlite DSN; when set the rate-limit
		// ledger survives restarts.
		LedgerDSN string `koanf:"ledger_dsn"`
	} `koanf:"guard"`

	Unlock struct {
		Date string `koanf:"date"` // YYYY-MM-DD
	} `koanf:"unlock"`
}

// EnsembleTimeout returns the per-provider call timeout.
func (c *Config) EnsembleTimeout() time.Duration {
	return time.Duration(c.Ensemble.TimeoutSeconds * float64(time.Second))
}

// GuardWindow returns the rolling failure window.
func (c *Config) GuardWindow() time.Duration {
	return time.Duration(c.Guard.WindowSeconds) * time.Second
}

// GuardMinInterval returns the minimum spacing between guarded attempts.
func (c *Config) GuardMinInterval() time.Duration {
	return time.Duration(c.Guard.MinIntervalSeconds * float64(time.Second))
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"assets.dir":                   ".",
		"assets.force_encrypted":       false,
		"providers.gemini.model":       "gemini-2.0-flash",
		"providers.gemini.priority":    1,
		"providers.mistral.model":      "mistral-large-latest",
		"providers.mistral.priority":   2,
		"providers.groq.model":         "llama-3.3-70b-versatile",
		"providers.groq.priority":      3,
		"ensemble.timeout_seconds":     30.0,
		"ensemble.requests_per_minute": 30,
		"guard.max_failures":           10,
		"guard.window_seconds":         3600,
		"guard.min_interval_seconds":   0.5,
		"unlock.date":                  "2026-01-01",
	}
}

// Load builds the configuration. An empty configPath falls back to the
// default file locations, all of which are optional.
func Load(configPath string) (*Config, error) {
	return load(configPath, os.Getenv)
}

// load is the testable core; getenv abstracts the process environment.
func load(configPath string, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(defaults(), "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", configPath, err)
		}
	} else {
		for _, path := range []string{"./boveda.toml", "$HOME/.boveda.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("BOVEDA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BOVEDA_")), "_", ".", -1)
	}), nil)

	if overlay := wellKnownEnv(getenv); len(overlay) > 0 {
		k.Load(confmap.Provider(overlay, "."), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// wellKnownEnv maps the conventional credential variables onto config
// keys. A missing variable leaves the corresponding provider disabled; it
// is never fatal here.
func wellKnownEnv(getenv func(string) string) map[string]interface{} {
	overlay := map[string]interface{}{}

	set := func(key, value string) {
		if value != "" {
			overlay[key] = value
		}
	}
	// Role-based names address the provider chain by position; the
	// provider-specific name wins when both are set.
	set("providers.gemini.api_key", getenv("PRIMARY_PROVIDER_KEY"))
	set("providers.mistral.api_key", getenv("FALLBACK_PROVIDER_KEY"))
	set("providers.groq.api_key", getenv("EMERGENCY_PROVIDER_KEY"))
	set("providers.gemini.api_key", getenv("GOOGLE_API_KEY"))
	set("providers.mistral.api_key", getenv("MISTRAL_API_KEY"))
	set("providers.groq.api_key", getenv("GROQ_API_KEY"))
	set("vault.key", getenv("VAULT_KEY"))

	if v := getenv("RATE_LIMIT_MAX_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			overlay["guard.max_failures"] = n
		}
	}
	if v := getenv("RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			overlay["guard.window_seconds"] = n
		}
	}
	if v := getenv("MIN_REQUEST_INTERVAL_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			overlay["guard.min_interval_seconds"] = f
		}
	}

	return overlay
}

// Validate checks invariants that would otherwise surface deep inside a
// component at request time.
func Validate(cfg *Config) error {
	if cfg.Guard.MaxFailures <= 0 {
		return fmt.Errorf("config: guard.max_failures must be positive")
	}
	if cfg.Guard.WindowSeconds <= 0 {
		return fmt.Errorf("config: guard.window_seconds must be positive")
	}
	if cfg.Guard.MinIntervalSeconds < 0 {
		return fmt.Errorf("config: guard.min_interval_seconds must not be negative")
	}
	if cfg.Ensemble.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: ensemble.timeout_seconds must be positive")
	}

	if cfg.Unlock.Date != "" {
		if _, err := time.Parse("2006-01-02", cfg.Unlock.Date); err != nil {
			return fmt.Errorf("config: unlock.date must be YYYY-MM-DD: %w", err)
		}
	}

	// Priorities define a total order over the enabled chain.
	seen := map[int]string{}
	for name, p := range map[string]ProviderConfig{
		"gemini":  cfg.Providers.Gemini,
		"mistral": cfg.Providers.Mistral,
		"groq":    cfg.Providers.Groq,
	} {
		if !p.Enabled() {
			continue
		}
		if other, dup := seen[p.Priority]; dup {
			return fmt.Errorf("config: providers %s and %s share priority %d", other, name, p.Priority)
		}
		seen[p.Priority] = name
	}

	return nil
}
