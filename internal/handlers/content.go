package handlers

import (
	"context"
	"strings"

	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

type createContentRequest struct {
	ContentType string `json:"contentType" validate:"notblank"`
	Prompt      string `json:"prompt" validate:"notblank"`
	Title       string `json:"title"`
	Category    string `json:"category"`
}

func (h *Handlers) createContent(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body createContentRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	kind := generator.Kind(strings.TrimSpace(body.ContentType))

	gen, err := h.gen.Generate(ctx, kind, body.Prompt)
	if err != nil {
		return nil, generateErr(kind, err)
	}

	content, err := h.saveContent(ctx, string(kind), body.Title, body.Prompt, body.Category, gen)
	if err != nil {
		return nil, err
	}
	return charged(content, "Content created successfully", gen), nil
}

// saveContent persists a generation. An empty title falls back to a headline of the prompt.
func (h *Handlers) saveContent(ctx context.Context, contentType, title, prompt, category string, gen generator.Generation) (*models.GeneratedContent, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = generator.Headline(prompt)
	}
	c := &models.GeneratedContent{
		ContentType:    contentType,
		Title:          title,
		Content:        gen.Text,
		APIUsed:        gen.APIUsed,
		GenerationCost: gen.Cost,
		Metadata: models.ContentMetadata{
			Prompt:      prompt,
			Category:    category,
			GeneratedBy: gen.APIUsed,
			Timestamp:   h.now(),
		},
	}
	if err := h.store.CreateContent(ctx, c); err != nil {
		return nil, storeErr(err, "Content")
	}
	return c, nil
}

func (h *Handlers) listContent(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	limit, err := queryInt(req, "limit", 50, 1, 200)
	if err != nil {
		return nil, err
	}
	items, err := h.store.ListContent(ctx, store.ContentFilter{
		ContentType: req.Query.Get("contentType"),
		Search:      req.Query.Get("search"),
		Limit:       limit,
	})
	if err != nil {
		return nil, storeErr(err, "Content")
	}
	if items == nil {
		items = []models.GeneratedContent{}
	}
	return ok(map[string]any{"items": items, "count": len(items)}, ""), nil
}
