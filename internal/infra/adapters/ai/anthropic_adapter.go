package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ProviderClient = (*AnthropicAdapter)(nil)

const anthropicVersion = "2023-06-01"

// AnthropicAdapter implements the Messages API over plain HTTP.
// Base URL defaults to https://api.anthropic.com (configurable).
// Path: /v1/messages, auth header: x-api-key.
type AnthropicAdapter struct {
	info
	apiKey string
	base   string
	client *http.Client
}

func NewAnthropicAdapter(s Settings) *AnthropicAdapter {
	return &AnthropicAdapter{
		info:   newInfo("anthropic", s),
		apiKey: s.Credential,
		base:   baseURLOr(s, "anthropic"),
		// The engine enforces the per-call deadline through ctx.
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *AnthropicAdapter) ID() string { return a.id }

func (a *AnthropicAdapter) Describe() model.ProviderDescription { return a.describe() }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *AnthropicAdapter) Generate(ctx context.Context, p adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	user := p.UserMessage()
	b, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    p.System,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return adapter.Completion{}, domain.NewPermanent(a.id, 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return adapter.Completion{}, domain.NewPermanent(a.id, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return adapter.Completion{}, fromTransport(a.id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return adapter.Completion{}, fromStatus(a.id, resp.StatusCode,
			fmt.Errorf("anthropic http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.Completion{}, fromTransport(a.id, err)
	}
	var sb strings.Builder
	for _, c := range payload.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return adapter.Completion{}, domain.NewPermanent(a.id, 0, errors.New("no text content"))
	}
	in, out := fillUsage(p.System+"\n"+user, text, payload.Usage.InputTokens, payload.Usage.OutputTokens)
	return adapter.Completion{Text: text, TokensIn: in, TokensOut: out}, nil
}
