package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ProviderClient = (*OpenAIAdapter)(nil)

// OpenAIAdapter calls the Chat Completions API through the official SDK.
type OpenAIAdapter struct {
	info
	client openai.Client
}

func NewOpenAIAdapter(s Settings) *OpenAIAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(s.Credential),
		// Retries are owned by the engine.
		option.WithMaxRetries(0),
	}
	if base := baseURLOr(s, "openai"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAIAdapter{
		info:   newInfo("openai", s),
		client: openai.NewClient(opts...),
	}
}

func (o *OpenAIAdapter) ID() string { return o.id }

func (o *OpenAIAdapter) Describe() model.ProviderDescription { return o.describe() }

func (o *OpenAIAdapter) Generate(ctx context.Context, p adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	user := p.UserMessage()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return adapter.Completion{}, fromStatus(o.id, apiErr.StatusCode, err)
		}
		return adapter.Completion{}, fromTransport(o.id, err)
	}

	text := ""
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		return adapter.Completion{}, domain.NewPermanent(o.id, 0, fmt.Errorf("no choice content"))
	}
	in, out := fillUsage(p.System+"\n"+user, text, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	return adapter.Completion{Text: text, TokensIn: in, TokensOut: out}, nil
}
