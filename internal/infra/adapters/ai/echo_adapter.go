package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

var _ adapter.ProviderClient = (*EchoAdapter)(nil)

// EchoAdapter is an offline provider for local runs and demos. It needs no
// credential and answers with a deterministic caption derived from the prompt.
type EchoAdapter struct {
	info
	delay time.Duration
}

func NewEchoAdapter(id string, delay time.Duration) *EchoAdapter {
	if id == "" {
		id = "echo"
	}
	i := newInfo(id, Settings{Credential: "offline"})
	if i.id != "echo" {
		i.display = strings.ToUpper(i.id[:1]) + i.id[1:] + " (echo)"
		i.model = "echo-1"
	}
	return &EchoAdapter{info: i, delay: delay}
}

func (e *EchoAdapter) ID() string { return e.id }

func (e *EchoAdapter) Describe() model.ProviderDescription { return e.describe() }

func (e *EchoAdapter) Generate(ctx context.Context, p adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return adapter.Completion{}, fromTransport(e.id, ctx.Err())
		}
	}
	subject := firstLine(p.User)
	words := strings.Fields(strings.ToLower(subject))
	tags := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,:;!?\"'()")
		if len(w) > 3 && len(tags) < 3 {
			tags = append(tags, "#"+w)
		}
	}
	text := fmt.Sprintf("[%s] %s", e.id, subject)
	if len(tags) > 0 {
		text += "\n" + strings.Join(tags, " ")
	}
	in, out := fillUsage(p.System+"\n"+p.UserMessage(), text, 0, 0)
	if out > maxTokens {
		out = maxTokens
	}
	return adapter.Completion{Text: text, TokensIn: in, TokensOut: out}, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		}
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
