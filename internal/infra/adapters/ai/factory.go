package ai

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/domain/ports/adapter"
)

// BuildProviders constructs one client per configured provider id, in the
// order given. Unknown ids are an error so that typos in config fail fast.
func BuildProviders(ctx context.Context, log *zerolog.Logger, order []string, settings map[string]Settings) ([]adapter.ProviderClient, error) {
	if len(order) == 0 {
		for id := range settings {
			order = append(order, id)
		}
		sort.Strings(order)
	}
	out := make([]adapter.ProviderClient, 0, len(order))
	for _, raw := range order {
		id := NormalizeID(raw)
		s := settings[raw]
		var c adapter.ProviderClient
		switch id {
		case "openai":
			c = NewOpenAIAdapter(s)
		case "perplexity":
			c = NewPerplexityAdapter(s)
		case "anthropic":
			c = NewAnthropicAdapter(s)
		case "gemini":
			g, err := NewGeminiAdapter(ctx, s)
			if err != nil {
				return nil, err
			}
			c = g
		case "echo":
			c = NewEchoAdapter("echo", 50*time.Millisecond)
		default:
			return nil, fmt.Errorf("unknown provider %q", raw)
		}
		d := c.Describe()
		log.Info().Str("provider", d.ID).Str("model", d.Model).Bool("available", d.Available).Msg("provider registered")
		out = append(out, c)
	}
	return out, nil
}
