// Package generator is the single entry point for producing text. Each content kind maps to a
// strategy (system instructions plus a token budget) that is executed by a Provider; the
// strategy name and provider name together form the apiUsed designator stored with content.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/cache"
	"github.com/HanTheDev/content-automation-api/internal/metrics"
)

type Kind string

const (
	KindBlogArticle     Kind = "blog-article"
	KindMarketingCopy   Kind = "marketing-copy"
	KindSEOContent      Kind = "seo-content"
	KindSocialMedia     Kind = "social-media"
	KindCampaignCopy    Kind = "campaign-copy"
	KindBookDescription Kind = "book-description"
	KindLandingPage     Kind = "landing-page"
	KindEmail           Kind = "email"
	KindAnalysis        Kind = "analysis"
	KindGeneric         Kind = "generic"
)

// MinDescriptionLength is the shortest library description stored without expansion.
const MinDescriptionLength = 100

type CompletionRequest struct {
	Kind      Kind
	System    string
	Prompt    string
	MaxTokens int
	// Fields carries structured inputs for providers that render templates.
	Fields map[string]string
}

type Completion struct {
	Text       string
	TokensUsed int
}

// Provider is the external text-generation capability.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Generation is the result handed back to handlers.
type Generation struct {
	Kind       Kind            `json:"kind"`
	Text       string          `json:"text"`
	APIUsed    string          `json:"apiUsed"`
	TokensUsed int             `json:"tokensUsed"`
	Cost       decimal.Decimal `json:"cost"`
	Cached     bool            `json:"-"`
}

type strategy struct {
	name      string
	system    string
	maxTokens int
}

var strategies = map[Kind]strategy{
	KindBlogArticle: {
		name:      "blog-writer",
		system:    "You are an expert blog writer. Write a well-structured long-form article with headings, an introduction, body sections and a conclusion.",
		maxTokens: 2000,
	},
	KindMarketingCopy: {
		name:      "copywriter",
		system:    "You are a conversion copywriter. Write persuasive marketing copy with a headline, benefit-led body and a clear call to action.",
		maxTokens: 800,
	},
	KindSEOContent: {
		name:      "seo-writer",
		system:    "You are an SEO specialist. Write search-optimized content that uses the topic keywords naturally, with a meta description.",
		maxTokens: 1500,
	},
	KindSocialMedia: {
		name:      "social-writer",
		system:    "You write short, engaging social media posts under 280 characters with relevant hashtags.",
		maxTokens: 200,
	},
	KindCampaignCopy: {
		name:      "campaign-writer",
		system:    "You are a campaign strategist. Write campaign messaging: positioning, key messages and calls to action.",
		maxTokens: 1000,
	},
	KindBookDescription: {
		name:      "book-describer",
		system:    "You write compelling ebook store descriptions of at least 100 characters.",
		maxTokens: 400,
	},
	KindLandingPage: {
		name:      "landing-writer",
		system:    "You write high-converting landing page copy: hero, benefits, social proof placeholder and call to action.",
		maxTokens: 1000,
	},
	KindEmail: {
		name:      "email-writer",
		system:    "You write concise marketing emails with one clear call to action.",
		maxTokens: 600,
	},
	KindAnalysis: {
		name:      "analyst",
		system:    "You are a marketing analyst. Answer with concise, concrete observations.",
		maxTokens: 800,
	},
	KindGeneric: {
		name:      "general-writer",
		system:    "You are a helpful content writer.",
		maxTokens: 1000,
	},
}

func strategyFor(kind Kind) strategy {
	if s, ok := strategies[kind]; ok {
		return s
	}
	return strategies[KindGeneric]
}

type Facade struct {
	primary   Provider
	fallback  Provider
	cache     cache.Cache
	cacheTTL  time.Duration
	tokenRate decimal.Decimal
	log       zerolog.Logger
}

type Option func(*Facade)

// WithFallback sets the provider used when the primary one fails.
func WithFallback(p Provider) Option {
	return func(f *Facade) { f.fallback = p }
}

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Facade) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithTokenRate sets the price per 1000 tokens.
func WithTokenRate(rate decimal.Decimal) Option {
	return func(f *Facade) { f.tokenRate = rate }
}

func New(primary Provider, log zerolog.Logger, opts ...Option) *Facade {
	f := &Facade{
		primary: primary,
		log:     log.With().Str("component", "generator").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Generate produces text for kind. Unknown kinds use the generic strategy.
func (f *Facade) Generate(ctx context.Context, kind Kind, prompt string) (Generation, error) {
	return f.run(ctx, kind, prompt, nil)
}

// ExpandDescription rewrites a short library description. The result is always at least
// MinDescriptionLength characters and never equal to the input.
func (f *Facade) ExpandDescription(ctx context.Context, title, description, category string) (Generation, error) {
	fields := map[string]string{"title": title, "description": description, "category": category}
	prompt := fmt.Sprintf("Expand this ebook description.\nTitle: %s\nCategory: %s\nDescription: %s", title, category, description)

	gen, err := f.run(ctx, KindBookDescription, prompt, fields)
	if err != nil {
		return Generation{}, err
	}

	text := strings.TrimSpace(gen.Text)
	if utf8.RuneCountInString(text) < MinDescriptionLength || text == strings.TrimSpace(description) {
		text = bookDescription(fields)
	}
	gen.Text = text
	return gen, nil
}

func (f *Facade) run(ctx context.Context, kind Kind, prompt string, fields map[string]string) (Generation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Generation{}, errors.New("empty prompt")
	}

	key := cache.Key("generation", string(kind), prompt)
	if gen, ok := f.cached(ctx, key); ok {
		return gen, nil
	}

	s := strategyFor(kind)
	req := CompletionRequest{Kind: kind, System: s.system, Prompt: prompt, MaxTokens: s.maxTokens, Fields: fields}

	completion, provider, err := f.complete(ctx, req)
	if err != nil {
		return Generation{}, err
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return Generation{}, fmt.Errorf("provider %s returned empty text", provider.Name())
	}

	gen := Generation{
		Kind:       kind,
		Text:       text,
		APIUsed:    s.name + "/" + provider.Name(),
		TokensUsed: completion.TokensUsed,
		Cost:       f.tokenRate.Mul(decimal.NewFromInt(int64(completion.TokensUsed))).Div(decimal.NewFromInt(1000)),
	}
	metrics.Generations.WithLabelValues(string(kind), gen.APIUsed).Inc()

	f.store(ctx, key, gen)
	return gen, nil
}

func (f *Facade) complete(ctx context.Context, req CompletionRequest) (Completion, Provider, error) {
	completion, err := f.primary.Complete(ctx, req)
	if err == nil {
		return completion, f.primary, nil
	}
	if f.fallback == nil {
		return Completion{}, nil, fmt.Errorf("%s: %w", f.primary.Name(), err)
	}

	f.log.Warn().Err(err).Str("provider", f.primary.Name()).Str("kind", string(req.Kind)).
		Msg("primary provider failed, using fallback")
	completion, ferr := f.fallback.Complete(ctx, req)
	if ferr != nil {
		return Completion{}, nil, fmt.Errorf("%s: %w", f.fallback.Name(), errors.Join(err, ferr))
	}
	return completion, f.fallback, nil
}

func (f *Facade) cached(ctx context.Context, key string) (Generation, bool) {
	if f.cache == nil {
		return Generation{}, false
	}
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.log.Warn().Err(err).Msg("generation cache read failed")
		return Generation{}, false
	}
	if !ok {
		return Generation{}, false
	}
	var gen Generation
	if err := json.Unmarshal(raw, &gen); err != nil {
		return Generation{}, false
	}
	// a replayed generation costs nothing
	gen.TokensUsed = 0
	gen.Cost = decimal.Zero
	gen.Cached = true
	return gen, true
}

func (f *Facade) store(ctx context.Context, key string, gen Generation) {
	if f.cache == nil {
		return
	}
	raw, err := json.Marshal(gen)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, raw, f.cacheTTL); err != nil {
		f.log.Warn().Err(err).Msg("generation cache write failed")
	}
}
