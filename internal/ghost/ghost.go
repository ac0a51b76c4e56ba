// Package ghost generates replies in the voice of a person, seeded with
// the decrypted chat transcript between them and the user.
package ghost

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/boveda/internal/assets"
	"github.com/boveda/internal/ensemble"
	"github.com/boveda/pkg/models"
)

// TranscriptFile is the chat export the persona is learned from,
// relative to the asset root.
const TranscriptFile = "whatsapp_chat.txt"

// TranscriptTail bounds how much transcript is fed to the model. The
// most recent part of the history carries the current tone; older text
// only burns context window.
const TranscriptTail = 15000

// ErrNoTranscript is returned when the chat export is missing, so the
// persona has nothing to imitate.
var ErrNoTranscript = errors.New("ghost: chat transcript not found")

// Querier is the slice of the ensemble the ghost needs.
type Querier interface {
	Query(ctx context.Context, req ensemble.Request) (*ensemble.Result, error)
}

// Reply is one generated persona message.
type Reply struct {
	Text     string
	Provider string
}

// Writer produces persona replies.
type Writer struct {
	loader  *assets.Loader
	querier Querier
	user    string
	persona string
}

// New builds a Writer that speaks as persona to user.
func New(loader *assets.Loader, querier Querier, user, persona string) *Writer {
	return &Writer{loader: loader, querier: querier, user: user, persona: persona}
}

// Reply answers the user's message in the persona's voice. session is
// the conversation so far in this sitting; it is replayed ahead of the
// new message so the persona stays consistent across turns.
func (w *Writer) Reply(ctx context.Context, session []models.ChatMessage, message string) (*Reply, error) {
	transcript, err := w.loader.LoadTextTail(TranscriptFile, TranscriptTail)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return nil, ErrNoTranscript
		}
		return nil, err
	}

	result, err := w.querier.Query(ctx, ensemble.Request{
		System: w.systemInstruction(transcript),
		Prompt: w.buildPrompt(session, message),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("provider", result.Provider).
		Int("reply_chars", len(result.Text)).
		Msg("ghost: reply generated")
	return &Reply{Text: strings.TrimSpace(result.Text), Provider: result.Provider}, nil
}

func (w *Writer) systemInstruction(transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are simulating %s in a WhatsApp conversation with %s.\n\n", w.persona, w.user)
	b.WriteString("Here is the COMPLETE chat history between them:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nRULES:\n")
	fmt.Fprintf(&b, "1. Analyze the history DEEPLY. Mimic %s's exact slang, emoji usage, sentence length, and tone.\n", w.persona)
	b.WriteString("2. Reply directly to the user's last message.\n")
	b.WriteString("3. Do NOT sound like an AI. Be the person.\n")
	b.WriteString("4. Reply ONLY with the message text.\n")
	return b.String()
}

func (w *Writer) buildPrompt(session []models.ChatMessage, message string) string {
	var b strings.Builder
	for _, msg := range session {
		switch msg.Role {
		case "assistant":
			fmt.Fprintf(&b, "%s said: %s\n", w.persona, msg.Content)
		default:
			fmt.Fprintf(&b, "User (%s) said: %s\n", w.user, msg.Content)
		}
	}
	fmt.Fprintf(&b, "User (%s) says: %s", w.user, message)
	return b.String()
}
