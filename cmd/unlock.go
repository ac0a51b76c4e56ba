package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/unlock"
)

// UnlockCommand returns the unlock command
func UnlockCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Check an access key against the configured unlock date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "key",
				Aliases:  []string{"k"},
				Usage:    "Access key to verify",
				Required: true,
			},
		},
		Action: runUnlock,
	}
}

func runUnlock(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	date, err := time.Parse("2006-01-02", cfg.Unlock.Date)
	if err != nil {
		return fmt.Errorf("invalid unlock date %q: %w", cfg.Unlock.Date, err)
	}

	g, closeStore, err := buildGuard(c.Context, cfg, "unlock")
	if err != nil {
		return err
	}
	defer closeStore()

	ok, err := unlock.NewVerifier(date, g).Verify(c.Context, c.String("key"))
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit("ACCESS DENIED", 1)
	}
	fmt.Println("ACCESS GRANTED")
	return nil
}
