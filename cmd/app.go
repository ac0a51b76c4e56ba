// Package cmd wires the application's commands. Each command constructor
// returns a *cli.Command that the root main assembles into the app.
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/assets"
	"github.com/boveda/internal/config"
	"github.com/boveda/internal/ensemble"
	"github.com/boveda/internal/guard"
	"github.com/boveda/internal/llm"
	"github.com/boveda/internal/secrets"
	"github.com/boveda/internal/vault"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveVaultKey turns the configured vault key material into a key.
// ok is false when no key is configured.
func resolveVaultKey(cfg *config.Config) (vault.Key, bool, error) {
	return secrets.VaultKey(secrets.FromMap(map[string]string{
		"VAULT_KEY": cfg.Vault.Key,
	}))
}

func buildLoader(cfg *config.Config) (*assets.Loader, error) {
	opts := []assets.Option{}

	key, ok, err := resolveVaultKey(cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, assets.WithKey(key))
	}
	if cfg.Assets.ForceEncrypted {
		opts = append(opts, assets.WithForceEncrypted())
	}
	return assets.New(cfg.Assets.Dir, opts...), nil
}

func buildEnsemble(ctx context.Context, cfg *config.Config) (*ensemble.Ensemble, error) {
	providers, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ensemble.New(providers, ensemble.WithDefaultTimeout(cfg.EnsembleTimeout())), nil
}

func buildGuard(ctx context.Context, cfg *config.Config, action string) (*guard.Guard, func(), error) {
	gcfg := guard.Config{
		MaxFailures: cfg.Guard.MaxFailures,
		Window:      cfg.GuardWindow(),
		MinInterval: cfg.GuardMinInterval(),
	}

	if cfg.Guard.LedgerDSN == "" {
		return guard.New(gcfg), func() {}, nil
	}

	store, err := guard.OpenStore(ctx, cfg.Guard.LedgerDSN, action)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open guard ledger: %w", err)
	}
	g := guard.New(gcfg, guard.WithStore(ctx, store))
	return g, func() { _ = store.Close() }, nil
}
