package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/oracle"
)

// OracleCommand returns the oracle command
func OracleCommand() *cli.Command {
	return &cli.Command{
		Name:  "oracle",
		Usage: "Pick the memory that best matches a mood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "mood",
				Aliases:  []string{"m"},
				Usage:    "Current emotional state",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Who is asking",
				Value: "user",
			},
			&cli.StringFlag{
				Name:  "persona",
				Usage: "Whose voice the message is written in",
				Value: "partner",
			},
		},
		Action: runOracle,
	}
}

func runOracle(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	loader, err := buildLoader(cfg)
	if err != nil {
		return err
	}
	ens, err := buildEnsemble(c.Context, cfg)
	if err != nil {
		return err
	}

	sel, err := oracle.New(loader, ens).Pick(c.Context, c.String("user"), c.String("persona"), c.String("mood"))
	if err != nil {
		return err
	}

	fmt.Printf("Memory:    %s\n", sel.FilePath)
	fmt.Printf("Message:   %s\n", sel.Message)
	fmt.Printf("Reasoning: %s\n", sel.Reasoning)
	fmt.Printf("Provider:  %s\n", sel.Provider)
	return nil
}
