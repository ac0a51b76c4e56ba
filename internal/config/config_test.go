package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", noEnv)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Guard.MaxFailures)
	assert.Equal(t, time.Hour, cfg.GuardWindow())
	assert.Equal(t, 500*time.Millisecond, cfg.GuardMinInterval())
	assert.Equal(t, 30*time.Second, cfg.EnsembleTimeout())

	// No credentials in the environment: every provider is disabled.
	assert.False(t, cfg.Providers.Gemini.Enabled())
	assert.False(t, cfg.Providers.Mistral.Enabled())
	assert.False(t, cfg.Providers.Groq.Enabled())

	// Priority chain defaults to gemini, mistral, groq.
	assert.Equal(t, 1, cfg.Providers.Gemini.Priority)
	assert.Equal(t, 2, cfg.Providers.Mistral.Priority)
	assert.Equal(t, 3, cfg.Providers.Groq.Priority)
}

func TestLoadWellKnownEnv(t *testing.T) {
	envs := map[string]string{
		"GOOGLE_API_KEY":               "g-key",
		"GROQ_API_KEY":                 "q-key",
		"VAULT_KEY":                    "my passphrase",
		"RATE_LIMIT_MAX_FAILURES":      "5",
		"RATE_LIMIT_WINDOW_SECONDS":    "60",
		"MIN_REQUEST_INTERVAL_SECONDS": "0.1",
	}
	cfg, err := load("", func(name string) string { return envs[name] })
	require.NoError(t, err)

	assert.True(t, cfg.Providers.Gemini.Enabled())
	assert.False(t, cfg.Providers.Mistral.Enabled())
	assert.True(t, cfg.Providers.Groq.Enabled())
	assert.Equal(t, "my passphrase", cfg.Vault.Key)
	assert.Equal(t, 5, cfg.Guard.MaxFailures)
	assert.Equal(t, time.Minute, cfg.GuardWindow())
	assert.Equal(t, 100*time.Millisecond, cfg.GuardMinInterval())
}

func TestLoadRoleBasedEnvAliases(t *testing.T) {
	envs := map[string]string{
		"PRIMARY_PROVIDER_KEY":   "p-key",
		"FALLBACK_PROVIDER_KEY":  "f-key",
		"EMERGENCY_PROVIDER_KEY": "e-key",
		// The provider-specific name wins over the alias.
		"MISTRAL_API_KEY": "m-key",
	}
	cfg, err := load("", func(name string) string { return envs[name] })
	require.NoError(t, err)

	assert.Equal(t, "p-key", cfg.Providers.Gemini.APIKey)
	assert.Equal(t, "m-key", cfg.Providers.Mistral.APIKey)
	assert.Equal(t, "e-key", cfg.Providers.Groq.APIKey)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boveda.toml")
	content := `
[assets]
dir = "/srv/boveda"
force_encrypted = true

[providers.mistral]
api_key = "m-key"
priority = 1

[unlock]
date = "2026-01-01"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := load(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "/srv/boveda", cfg.Assets.Dir)
	assert.True(t, cfg.Assets.ForceEncrypted)
	assert.Equal(t, "m-key", cfg.Providers.Mistral.APIKey)
	assert.Equal(t, 1, cfg.Providers.Mistral.Priority)
	// Defaults still fill the rest.
	assert.Equal(t, "mistral-large-latest", cfg.Providers.Mistral.Model)
}

func TestValidateRejectsDuplicatePriorities(t *testing.T) {
	cfg, err := load("", noEnv)
	require.NoError(t, err)

	cfg.Providers.Gemini.APIKey = "a"
	cfg.Providers.Mistral.APIKey = "b"
	cfg.Providers.Mistral.Priority = cfg.Providers.Gemini.Priority

	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := load("", noEnv)
	require.NoError(t, err)

	cases := []func(c *Config){
		func(c *Config) { c.Guard.MaxFailures = 0 },
		func(c *Config) { c.Guard.WindowSeconds = -1 },
		func(c *Config) { c.Guard.MinIntervalSeconds = -0.5 },
		func(c *Config) { c.Ensemble.TimeoutSeconds = 0 },
		func(c *Config) { c.Unlock.Date = "January 1st" },
	}

	for i, mutate := range cases {
		cfg := *base
		mutate(&cfg)
		assert.Error(t, Validate(&cfg), "case %d", i)
	}
}

func TestLoadRejectsMissingExplicitFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.toml"), noEnv)
	assert.Error(t, err)
}
