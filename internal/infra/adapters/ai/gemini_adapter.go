// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

var _ adapter.ProviderClient = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	info
	client *genai.Client
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK. Without a
// credential no client is built and the provider reports itself unavailable.
func NewGeminiAdapter(ctx context.Context, s Settings) (*GeminiAdapter, error) {
	g := &GeminiAdapter{info: newInfo("gemini", s)}
	if !g.available {
		return g, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.Credential,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: s.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	g.client = c
	return g, nil
}

func (g *GeminiAdapter) ID() string { return g.id }

func (g *GeminiAdapter) Describe() model.ProviderDescription { return g.describe() }

func (g *GeminiAdapter) Generate(ctx context.Context, p adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	if g.client == nil {
		return adapter.Completion{}, domain.NewPermanent(g.id, 401, errors.New("gemini: no credential"))
	}
	user := p.UserMessage()
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if strings.TrimSpace(p.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return adapter.Completion{}, classifyGemini(g.id, err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if strings.TrimSpace(text) == "" {
		return adapter.Completion{}, domain.NewPermanent(g.id, 0, errors.New("gemini: empty candidate"))
	}
	var in, out int
	if resp.UsageMetadata != nil {
		in = int(resp.UsageMetadata.PromptTokenCount)
		out = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	in, out = fillUsage(p.System+"\n"+user, text, in, out)
	return adapter.Completion{Text: text, TokensIn: in, TokensOut: out}, nil
}

func classifyGemini(id string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(id, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return fromStatus(id, apiErrPtr.Code, err)
	}
	return fromTransport(id, err)
}
