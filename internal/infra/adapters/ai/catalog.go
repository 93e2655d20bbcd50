package ai

import (
	"strings"

	"social-content-ai/internal/domain/model"
)

// Settings is the per-provider configuration block.
type Settings struct {
	Credential string
	Model      string
	BaseURL    string
}

type catalogEntry struct {
	display   string
	model     string
	baseURL   string
	strengths []string
	bestFor   []string
}

var catalog = map[string]catalogEntry{
	"openai": {
		display:   "OpenAI GPT",
		model:     "gpt-4o",
		strengths: []string{"creative writing", "brand voice", "structured output"},
		bestFor:   []string{"captions", "email copy"},
	},
	"anthropic": {
		display:   "Anthropic Claude",
		model:     "claude-3-5-sonnet-latest",
		baseURL:   "https://api.anthropic.com",
		strengths: []string{"long-form reasoning", "nuanced tone"},
		bestFor:   []string{"podcast show notes", "competitor analysis"},
	},
	"gemini": {
		display:   "Google Gemini",
		model:     "gemini-2.0-flash",
		strengths: []string{"fast drafts", "multilingual"},
		bestFor:   []string{"video subtitles", "short captions"},
	},
	"perplexity": {
		display:   "Perplexity Sonar",
		model:     "sonar",
		baseURL:   "https://api.perplexity.ai",
		strengths: []string{"trend awareness", "current events"},
		bestFor:   []string{"competitor analysis", "hashtags"},
	},
	"echo": {
		display:   "Echo (offline)",
		model:     "echo-1",
		strengths: []string{"deterministic output"},
		bestFor:   []string{"local development", "tests"},
	},
}

// NormalizeID lowercases and trims a provider id.
func NormalizeID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

// info holds the static description shared by every adapter.
type info struct {
	id        string
	display   string
	model     string
	strengths []string
	bestFor   []string
	available bool
}

func newInfo(id string, s Settings) info {
	id = NormalizeID(id)
	c, ok := catalog[id]
	if !ok {
		c = catalogEntry{display: id}
	}
	m := s.Model
	if m == "" {
		m = c.model
	}
	return info{
		id:        id,
		display:   c.display,
		model:     m,
		strengths: c.strengths,
		bestFor:   c.bestFor,
		available: strings.TrimSpace(s.Credential) != "",
	}
}

func (i info) describe() model.ProviderDescription {
	return model.ProviderDescription{
		ID:          i.id,
		DisplayName: i.display,
		Model:       i.model,
		Strengths:   append([]string(nil), i.strengths...),
		BestFor:     append([]string(nil), i.bestFor...),
		Available:   i.available,
	}
}

func baseURLOr(s Settings, id string) string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return catalog[id].baseURL
}
