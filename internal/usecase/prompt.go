// File: internal/usecase/prompt.go
package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Compile-time check
var _ PromptAssembler = (*promptAssembler)(nil)

// PromptAssembler turns a vertical-neutral request into prompts. It never
// calls providers.
type PromptAssembler interface {
	Assemble(req model.GenerationRequest) (adapter.PromptSpec, error)
	ForProvider(base adapter.PromptSpec, providerID string) adapter.PromptSpec
}

type promptAssembler struct {
	tpl *template.Template
}

const defaultTone = "friendly"

var lengthWords = map[model.Length][2]int{
	model.LengthShort:  {100, 200},
	model.LengthMedium: {200, 400},
	model.LengthLong:   {400, 800},
}

var providerHints = map[string]string{
	"openai":     "Keep formatting minimal; no headings.",
	"anthropic":  "Do not add a preamble; start with the content itself.",
	"gemini":     "Use plain text without markdown.",
	"perplexity": "Do not include citations, footnotes or links.",
}

var families = map[model.TemplateFamily]struct{}{
	model.TemplateCaption:       {},
	model.TemplateVideoSubtitle: {},
	model.TemplateEmail:         {},
	model.TemplatePodcast:       {},
	model.TemplateCompetitor:    {},
}

func NewPromptAssembler() (*promptAssembler, error) {
	tpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &promptAssembler{tpl: tpl}, nil
}

// MustPromptAssembler panics when the embedded templates do not parse.
func MustPromptAssembler() *promptAssembler {
	a, err := NewPromptAssembler()
	if err != nil {
		panic(err)
	}
	return a
}

type promptData struct {
	Category    model.Category
	Platform    model.Platform
	Description string
	Tone        string
	MinWords    int
	MaxWords    int
}

// family picks the requested template; without one the platform decides.
func family(req model.GenerationRequest) model.TemplateFamily {
	if _, ok := families[req.Options.Template]; ok {
		return req.Options.Template
	}
	if req.Options.Template == "" {
		switch req.Platform {
		case model.PlatformEmail:
			return model.TemplateEmail
		case model.PlatformPodcast:
			return model.TemplatePodcast
		}
	}
	return model.TemplateCaption
}

func (a *promptAssembler) Assemble(req model.GenerationRequest) (adapter.PromptSpec, error) {
	words, ok := lengthWords[req.Options.Length]
	if !ok {
		words = lengthWords[model.LengthMedium]
	}
	tone := strings.TrimSpace(req.Options.Tone)
	if tone == "" {
		tone = defaultTone
	}
	data := promptData{
		Category:    req.Category,
		Platform:    req.Platform,
		Description: strings.TrimSpace(req.Description),
		Tone:        tone,
		MinWords:    words[0],
		MaxWords:    words[1],
	}

	fam := string(family(req))
	system, err := a.render(fam+"_system.tmpl", data)
	if err != nil {
		return adapter.PromptSpec{}, err
	}
	user, err := a.render(fam+"_user.tmpl", data)
	if err != nil {
		return adapter.PromptSpec{}, err
	}
	return adapter.PromptSpec{
		System:      system,
		User:        user,
		FormatHints: formatHints(req.Options, words),
	}, nil
}

func (a *promptAssembler) ForProvider(base adapter.PromptSpec, providerID string) adapter.PromptSpec {
	base.ProviderHint = providerHints[providerID]
	return base
}

func (a *promptAssembler) render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := a.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatHints(o model.GenerationOptions, words [2]int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stay between %d and %d words and within %d tokens.", words[0], words[1], o.ClampedMaxTokens())
	if o.IncludeHashtags {
		sb.WriteString(" End with 5 to 10 relevant hashtags on the last line.")
	} else {
		sb.WriteString(" Do not use hashtags.")
	}
	return sb.String()
}
