// Package oracle matches a mood to a memory. It hands the memory index
// to the model ensemble, asks for a structured pick, and tolerates the
// loosely formatted JSON that smaller models tend to return.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/boveda/internal/assets"
	"github.com/boveda/internal/ensemble"
	"github.com/boveda/pkg/models"
)

// MemoriesFile is the index the oracle selects from, relative to the
// asset root.
const MemoriesFile = "memories.json"

// ErrNoMemories is returned when the memory index is absent or empty.
var ErrNoMemories = errors.New("oracle: memory index is empty")

// Querier is the slice of the ensemble the oracle needs.
type Querier interface {
	Query(ctx context.Context, req ensemble.Request) (*ensemble.Result, error)
}

// Selection is the oracle's answer: one memory and why it was chosen.
type Selection struct {
	Reasoning string `json:"reasoning"`
	FilePath  string `json:"file_path"`
	Message   string `json:"poetic_message"`

	// Provider names the backend that produced the answer.
	Provider string `json:"-"`
}

// Oracle selects memories by mood.
type Oracle struct {
	loader  *assets.Loader
	querier Querier
}

func New(loader *assets.Loader, querier Querier) *Oracle {
	return &Oracle{loader: loader, querier: querier}
}

// Memories loads the memory index from the asset store.
func (o *Oracle) Memories() ([]models.Memory, error) {
	var memories []models.Memory
	if err := o.loader.LoadJSON(MemoriesFile, &memories); err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return nil, ErrNoMemories
		}
		return nil, err
	}
	if len(memories) == 0 {
		return nil, ErrNoMemories
	}
	return memories, nil
}

// Pick asks the ensemble to choose the memory that best matches mood.
// user is the person asking, persona the author the answer should speak
// as. The model is required to answer in JSON mode; fenced or slightly
// broken output is repaired before parsing.
func (o *Oracle) Pick(ctx context.Context, user, persona, mood string) (*Selection, error) {
	memories, err := o.Memories()
	if err != nil {
		return nil, err
	}

	prompt, err := buildPrompt(user, persona, mood, memories)
	if err != nil {
		return nil, err
	}

	result, err := o.querier.Query(ctx, ensemble.Request{
		Prompt:   prompt,
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	selection, err := parseSelection(result.Text)
	if err != nil {
		log.Debug().
			Str("provider", result.Provider).
			Str("raw", result.Text).
			Msg("oracle: unparseable selection")
		return nil, fmt.Errorf("oracle: %s returned unparseable selection: %w", result.Provider, err)
	}
	selection.Provider = result.Provider

	log.Info().
		Str("provider", result.Provider).
		Str("file_path", selection.FilePath).
		Msg("oracle: memory selected")
	return selection, nil
}

func buildPrompt(user, persona, mood string, memories []models.Memory) (string, error) {
	index, err := json.Marshal(memories)
	if err != nil {
		return "", fmt.Errorf("oracle: encoding memory index: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are the magical curator of a couple's love story.\n")
	fmt.Fprintf(&b, "User (%s) is feeling: '%s'.\n", user, mood)
	fmt.Fprintf(&b, "Target Persona (Author of message): %s.\n\n", persona)
	b.WriteString("Here are the available memories:\n")
	b.Write(index)
	b.WriteString("\n\nTask:\n")
	fmt.Fprintf(&b, "1. Analyze the user's mood ('%s') deeply.\n", mood)
	b.WriteString("2. Select the ONE memory from the provided list that BEST resonates with this mood. Do NOT just pick the first one.\n")
	b.WriteString("3. Write a short, poetic, loving message.\n\n")
	b.WriteString("Return STRICT JSON format:\n")
	b.WriteString(`{
    "reasoning": "Why I chose this memory for this mood...",
    "file_path": "assets/Filename.ext",
    "poetic_message": "Your message here..."
}`)
	return b.String(), nil
}
