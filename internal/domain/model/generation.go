package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"social-content-ai/internal/domain"
)

const (
	MaxDescriptionBytes = 2048

	DefaultMaxTokens = 800
	MinMaxTokens     = 200
	MaxMaxTokens     = 4000
)

type Category string

const (
	CategoryProduct         Category = "product"
	CategoryService         Category = "service"
	CategoryEvent           Category = "event"
	CategoryPromotion       Category = "promotion"
	CategoryAnnouncement    Category = "announcement"
	CategoryEducational     Category = "educational"
	CategoryBehindTheScenes Category = "behind_the_scenes"
	CategoryTestimonial     Category = "testimonial"
	CategoryLifestyle       Category = "lifestyle"
	CategoryOther           Category = "other"
)

var categories = map[Category]struct{}{
	CategoryProduct: {}, CategoryService: {}, CategoryEvent: {}, CategoryPromotion: {},
	CategoryAnnouncement: {}, CategoryEducational: {}, CategoryBehindTheScenes: {},
	CategoryTestimonial: {}, CategoryLifestyle: {}, CategoryOther: {},
}

func (c Category) Valid() bool { _, ok := categories[c]; return ok }

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
	PlatformEmail     Platform = "email"
	PlatformPodcast   Platform = "podcast"
)

var platforms = map[Platform]struct{}{
	PlatformInstagram: {}, PlatformTikTok: {}, PlatformFacebook: {}, PlatformTwitter: {},
	PlatformLinkedIn: {}, PlatformYouTube: {}, PlatformPinterest: {}, PlatformEmail: {},
	PlatformPodcast: {},
}

func (p Platform) Valid() bool { _, ok := platforms[p]; return ok }

type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// TemplateFamily selects the prompt template used by the assembler.
type TemplateFamily string

const (
	TemplateCaption       TemplateFamily = "caption"
	TemplateVideoSubtitle TemplateFamily = "video_subtitle"
	TemplateEmail         TemplateFamily = "email"
	TemplatePodcast       TemplateFamily = "podcast"
	TemplateCompetitor    TemplateFamily = "competitor"
)

type GenerationOptions struct {
	Tone                 string         `json:"tone,omitempty"`
	Length               Length         `json:"length,omitempty"`
	IncludeHashtags      bool           `json:"include_hashtags"`
	MaxTokensPerProvider int            `json:"max_tokens_per_provider,omitempty"`
	Template             TemplateFamily `json:"template,omitempty"`
}

// ClampedMaxTokens applies the default and the [200, 4000] bounds.
func (o GenerationOptions) ClampedMaxTokens() int {
	n := o.MaxTokensPerProvider
	if n <= 0 {
		return DefaultMaxTokens
	}
	if n < MinMaxTokens {
		return MinMaxTokens
	}
	if n > MaxMaxTokens {
		return MaxMaxTokens
	}
	return n
}

type GenerationRequest struct {
	// RequestID deduplicates quota operations for retried submissions.
	RequestID   string            `json:"request_id,omitempty"`
	BatchID     string            `json:"batch_id,omitempty"`
	UserID      string            `json:"user_id"`
	Category    Category          `json:"category"`
	Platform    Platform          `json:"platform"`
	Description string            `json:"description"`
	Providers   []string          `json:"providers"`
	Options     GenerationOptions `json:"options"`
}

func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return domain.ErrInvalidArgument
	}
	if !r.Category.Valid() || !r.Platform.Valid() {
		return domain.ErrInvalidArgument
	}
	if strings.TrimSpace(r.Description) == "" || len(r.Description) > MaxDescriptionBytes || !utf8.ValidString(r.Description) {
		return domain.ErrInvalidArgument
	}
	if len(r.Providers) == 0 {
		return domain.ErrInvalidArgument
	}
	switch r.Options.Length {
	case "", LengthShort, LengthMedium, LengthLong:
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// ProviderOutput is one provider's contribution to a result. Error is empty on success.
type ProviderOutput struct {
	Text       string                   `json:"text,omitempty"`
	TokensIn   int                      `json:"tokens_in"`
	TokensOut  int                      `json:"tokens_out"`
	DurationMs int64                    `json:"duration_ms"`
	Attempts   int                      `json:"attempts"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  domain.ProviderErrorKind `json:"error_kind,omitempty"`
}

func (o ProviderOutput) OK() bool { return o.Error == "" }

type MergeSummary struct {
	ProvidersRequested int `json:"providers_requested"`
	ProvidersSucceeded int `json:"providers_succeeded"`
	TokensIn           int `json:"tokens_in"`
	TokensOut          int `json:"tokens_out"`
	HashtagCount       int `json:"hashtag_count"`
}

type MergedOutput struct {
	Caption  string       `json:"caption"`
	Hashtags []string     `json:"hashtags"`
	Combined string       `json:"combined"`
	Summary  MergeSummary `json:"summary"`
}

// GenerationResult is immutable once written.
type GenerationResult struct {
	ID            string                    `json:"id"`
	UserID        string                    `json:"user_id"`
	BatchID       string                    `json:"batch_id,omitempty"`
	Request       GenerationRequest         `json:"request"`
	ProviderOrder []string                  `json:"provider_order"`
	Outputs       map[string]ProviderOutput `json:"outputs"`
	Merged        MergedOutput              `json:"merged_output"`
	ProvidersUsed []string                  `json:"ai_providers_used"`
	CreatedAt     time.Time                 `json:"created_at"`
}

func (r *GenerationResult) TokensTotal() int {
	return r.Merged.Summary.TokensIn + r.Merged.Summary.TokensOut
}
