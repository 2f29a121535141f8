package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HanTheDev/content-automation-api/internal/analytics"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/store"
	"github.com/HanTheDev/content-automation-api/internal/textstats"
)

// Target keyword density band, in percent.
const (
	minKeywordDensity = 0.5
	maxKeywordDensity = 2.5
)

type contentOptimizationRequest struct {
	Content        string   `json:"content" validate:"notblank"`
	TargetKeywords []string `json:"targetKeywords" validate:"omitempty,max=20,dive,notblank"`
}

type keywordDensity struct {
	Keyword string  `json:"keyword"`
	Density float64 `json:"density"`
	Status  string  `json:"status"`
}

func (h *Handlers) contentOptimization(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body contentOptimizationRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	stats := textstats.Analyze(body.Content)

	keywords := body.TargetKeywords
	if len(keywords) == 0 {
		for _, kw := range textstats.TopKeywords(body.Content, 3) {
			keywords = append(keywords, kw.Keyword)
		}
	}
	densities := make([]keywordDensity, 0, len(keywords))
	suggestions := []string{}
	for _, kw := range keywords {
		d := keywordDensity{Keyword: kw, Density: textstats.KeywordDensity(body.Content, kw), Status: "optimal"}
		switch {
		case d.Density < minKeywordDensity:
			d.Status = "low"
			suggestions = append(suggestions, fmt.Sprintf("Use %q more often (%.2f%%)", kw, d.Density))
		case d.Density > maxKeywordDensity:
			d.Status = "high"
			suggestions = append(suggestions, fmt.Sprintf("Reduce repetition of %q (%.2f%%)", kw, d.Density))
		}
		densities = append(densities, d)
	}
	if stats.AvgSentenceLength > 20 {
		suggestions = append(suggestions, "Shorten sentences to under 20 words on average")
	}
	if stats.ReadingEase < 60 {
		suggestions = append(suggestions, "Use simpler words to improve readability")
	}
	if stats.Words < 300 {
		suggestions = append(suggestions, "Expand the content to at least 300 words")
	}

	prompt := body.Content
	if len(keywords) > 0 {
		prompt = fmt.Sprintf("%s\n\nTarget keywords: %s", body.Content, strings.Join(keywords, ", "))
	}
	gen, err := h.gen.Generate(ctx, generator.KindSEOContent, prompt)
	if err != nil {
		return nil, generateErr(generator.KindSEOContent, err)
	}

	return charged(map[string]any{
		"optimizedContent": gen.Text,
		"readability":      stats,
		"keywordDensity":   densities,
		"suggestions":      suggestions,
		"apiUsed":          gen.APIUsed,
	}, "Content optimized successfully", gen), nil
}

type keywordResearchRequest struct {
	Topic    string `json:"topic" validate:"notblank"`
	Industry string `json:"industry"`
}

type keywordIdea struct {
	Keyword    string `json:"keyword"`
	Intent     string `json:"intent"`
	Difficulty string `json:"difficulty"`
}

var keywordPatterns = []struct{ format, intent string }{
	{"%s", "informational"},
	{"what is %s", "informational"},
	{"how to %s", "informational"},
	{"%s guide", "informational"},
	{"best %s", "commercial"},
	{"%s tools", "commercial"},
	{"%s vs alternatives", "commercial"},
	{"%s pricing", "transactional"},
	{"buy %s", "transactional"},
	{"%s near me", "navigational"},
}

// keywordDifficulty grows with specificity: short head terms are the most contested.
func keywordDifficulty(kw string) string {
	switch n := len(strings.Fields(kw)); {
	case n <= 1:
		return "high"
	case n <= 3:
		return "medium"
	default:
		return "low"
	}
}

func (h *Handlers) keywordResearch(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body keywordResearchRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	topic := strings.ToLower(strings.TrimSpace(body.Topic))

	ideas := make([]keywordIdea, 0, len(keywordPatterns)+1)
	for _, p := range keywordPatterns {
		kw := fmt.Sprintf(p.format, topic)
		ideas = append(ideas, keywordIdea{Keyword: kw, Intent: p.intent, Difficulty: keywordDifficulty(kw)})
	}
	if industry := strings.ToLower(strings.TrimSpace(body.Industry)); industry != "" {
		kw := topic + " for " + industry
		ideas = append(ideas, keywordIdea{Keyword: kw, Intent: "commercial", Difficulty: keywordDifficulty(kw)})
	}

	prompt := fmt.Sprintf("Keyword opportunities for %s", topic)
	if body.Industry != "" {
		prompt += " in the " + body.Industry + " industry"
	}
	gen, err := h.gen.Generate(ctx, generator.KindAnalysis, prompt)
	if err != nil {
		return nil, generateErr(generator.KindAnalysis, err)
	}

	return charged(map[string]any{
		"topic":    topic,
		"keywords": ideas,
		"insights": gen.Text,
		"apiUsed":  gen.APIUsed,
	}, "", gen), nil
}

type competitorAnalysisRequest struct {
	Competitors []string `json:"competitors" validate:"required,min=1,max=10,dive,notblank"`
	Industry    string   `json:"industry"`
}

type competitorNarrative struct {
	Competitor string `json:"competitor"`
	Analysis   string `json:"analysis"`
}

func (h *Handlers) competitorAnalysis(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body competitorAnalysisRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}

	narratives := make([]competitorNarrative, 0, len(body.Competitors))
	gens := make([]generator.Generation, 0, len(body.Competitors))
	for _, c := range body.Competitors {
		c = strings.TrimSpace(c)
		prompt := fmt.Sprintf("Competitive analysis of %s", c)
		if body.Industry != "" {
			prompt += " in the " + body.Industry + " industry"
		}
		prompt += "\n\nCover positioning, content strategy, strengths and gaps."
		gen, err := h.gen.Generate(ctx, generator.KindAnalysis, prompt)
		if err != nil {
			return nil, generateErr(generator.KindAnalysis, err)
		}
		gens = append(gens, gen)
		narratives = append(narratives, competitorNarrative{Competitor: c, Analysis: gen.Text})
	}

	contents, err := h.store.ListContent(ctx, store.ContentFilter{})
	if err != nil {
		return nil, storeErr(err, "Content")
	}
	campaigns, err := h.store.ListCampaigns(ctx, store.CampaignFilter{})
	if err != nil {
		return nil, storeErr(err, "Campaign")
	}
	byType := map[string]int{}
	for _, c := range contents {
		byType[c.ContentType]++
	}

	return charged(map[string]any{
		"competitors": narratives,
		"ownPosition": map[string]any{
			"contentPieces": len(contents),
			"contentByType": byType,
			"campaigns":     len(campaigns),
		},
	}, "", gens...), nil
}

type trendPredictionRequest struct {
	Topic        string `json:"topic" validate:"notblank"`
	HorizonWeeks int    `json:"horizonWeeks" validate:"gte=0,lte=52"`
}

const trendHistoryWeeks = 12

func (h *Handlers) trendPrediction(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body trendPredictionRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	horizon := body.HorizonWeeks
	if horizon == 0 {
		horizon = 4
	}
	topic := strings.TrimSpace(body.Topic)

	now := h.analytics.Now()
	contents, err := h.store.ListContent(ctx, store.ContentFilter{
		Search: topic,
		Range:  store.TimeRange{From: now.Add(-trendHistoryWeeks * 7 * 24 * time.Hour), To: now},
	})
	if err != nil {
		return nil, storeErr(err, "Content")
	}
	times := make([]time.Time, 0, len(contents))
	for _, c := range contents {
		times = append(times, c.CreatedAt)
	}
	forecast := analytics.Project(analytics.WeeklyCounts(times, now, trendHistoryWeeks), horizon)

	prompt := fmt.Sprintf("Trend outlook for %s\n\nOwn publishing volume is %s over the last %d weeks (slope %.2f pieces per week).",
		topic, forecast.Direction, trendHistoryWeeks, forecast.Slope)
	gen, err := h.gen.Generate(ctx, generator.KindAnalysis, prompt)
	if err != nil {
		return nil, generateErr(generator.KindAnalysis, err)
	}

	return charged(map[string]any{
		"topic":        topic,
		"horizonWeeks": horizon,
		"forecast":     forecast,
		"narrative":    gen.Text,
	}, "", gen), nil
}

