package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

var _ adapter.ProviderClient = (*PerplexityAdapter)(nil)

// PerplexityAdapter talks to Perplexity's OpenAI-compatible gateway.
// Base URL defaults to https://api.perplexity.ai (configurable).
type PerplexityAdapter struct {
	info
	client *goopenai.Client
}

func NewPerplexityAdapter(s Settings) *PerplexityAdapter {
	cfg := goopenai.DefaultConfig(s.Credential)
	cfg.BaseURL = baseURLOr(s, "perplexity")
	return &PerplexityAdapter{
		info:   newInfo("perplexity", s),
		client: goopenai.NewClientWithConfig(cfg),
	}
}

func (p *PerplexityAdapter) ID() string { return p.id }

func (p *PerplexityAdapter) Describe() model.ProviderDescription { return p.describe() }

func (p *PerplexityAdapter) Generate(ctx context.Context, spec adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	user := spec.UserMessage()
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: spec.System},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return adapter.Completion{}, fromStatus(p.id, apiErr.HTTPStatusCode, err)
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) {
			return adapter.Completion{}, fromStatus(p.id, reqErr.HTTPStatusCode, err)
		}
		return adapter.Completion{}, fromTransport(p.id, err)
	}

	text := ""
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		return adapter.Completion{}, domain.NewPermanent(p.id, 0, fmt.Errorf("no choice content"))
	}
	in, out := fillUsage(spec.System+"\n"+user, text, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return adapter.Completion{Text: text, TokensIn: in, TokensOut: out}, nil
}
