package adapter

import (
	"context"
	"strings"

	"social-content-ai/internal/domain/model"
)

// PromptSpec is the provider-neutral prompt produced by the assembler.
type PromptSpec struct {
	System       string
	User         string
	FormatHints  string
	ProviderHint string
}

// UserMessage joins the user-facing sections in a stable order.
func (p PromptSpec) UserMessage() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.User, p.FormatHints, p.ProviderHint} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Completion is the text and usage returned by one provider call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// ProviderClient is the port every LLM provider plug-in implements.
type ProviderClient interface {
	ID() string
	// Describe is pure and must not expose credentials.
	Describe() model.ProviderDescription
	// Generate returns *domain.ProviderError on failure so the engine can
	// tell transient from permanent errors.
	Generate(ctx context.Context, prompt PromptSpec, maxTokens int) (Completion, error)
}
