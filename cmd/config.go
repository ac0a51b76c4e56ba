package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate the effective configuration",
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration (secrets redacted)",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigValidate(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}
	fmt.Println("Configuration is valid")
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "****"
}

func runConfigShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fmt.Printf("assets.dir             = %s\n", cfg.Assets.Dir)
	fmt.Printf("assets.force_encrypted = %t\n", cfg.Assets.ForceEncrypted)
	fmt.Printf("vault.key              = %s\n", redact(cfg.Vault.Key))

	providers := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{"gemini", cfg.Providers.Gemini},
		{"mistral", cfg.Providers.Mistral},
		{"groq", cfg.Providers.Groq},
	}
	for _, p := range providers {
		fmt.Printf("providers.%-12s = key %s, model %s, priority %d\n",
			p.name, redact(p.cfg.APIKey), p.cfg.Model, p.cfg.Priority)
	}

	fmt.Printf("ensemble.timeout       = %s\n", cfg.EnsembleTimeout())
	fmt.Printf("ensemble.rpm           = %d\n", cfg.Ensemble.RequestsPerMinute)
	fmt.Printf("guard.max_failures     = %d\n", cfg.Guard.MaxFailures)
	fmt.Printf("guard.window           = %s\n", cfg.GuardWindow())
	fmt.Printf("guard.min_interval     = %s\n", cfg.GuardMinInterval())
	fmt.Printf("guard.ledger_dsn       = %s\n", cfg.Guard.LedgerDSN)
	fmt.Printf("unlock.date            = %s\n", cfg.Unlock.Date)
	return nil
}
