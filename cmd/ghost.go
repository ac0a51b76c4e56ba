package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/ghost"
	"github.com/boveda/pkg/models"
)

// GhostCommand returns the ghost command
func GhostCommand() *cli.Command {
	return &cli.Command{
		Name:  "ghost",
		Usage: "Chat with the persona learned from the archived transcript",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "Send one message and exit (omit for interactive chat)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Who is talking",
				Value: "user",
			},
			&cli.StringFlag{
				Name:  "persona",
				Usage: "Who the replies should sound like",
				Value: "partner",
			},
		},
		Action: runGhost,
	}
}

func runGhost(c *cli.Context) error {
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

	writer := ghost.New(loader, ens, c.String("user"), c.String("persona"))

	if msg := c.String("message"); msg != "" {
		reply, err := writer.Reply(c.Context, nil, msg)
		if err != nil {
			return err
		}
		fmt.Println(reply.Text)
		return nil
	}

	return ghostChatLoop(c, writer)
}

// ghostChatLoop reads messages from stdin until EOF, carrying the
// session so the persona stays consistent across turns.
func ghostChatLoop(c *cli.Context, writer *ghost.Writer) error {
	var session []models.ChatMessage
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("%s> ", c.String("user"))
	for scanner.Scan() {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			fmt.Printf("%s> ", c.String("user"))
			continue
		}

		reply, err := writer.Reply(c.Context, session, msg)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", c.String("persona"), reply.Text)

		session = append(session,
			models.ChatMessage{Role: "user", Content: msg},
			models.ChatMessage{Role: "assistant", Content: reply.Text},
		)
		fmt.Printf("%s> ", c.String("user"))
	}
	return scanner.Err()
}
