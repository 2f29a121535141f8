package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/integrations"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

type mailchimpSyncRequest struct {
	ListID   string                 `json:"listId" validate:"notblank"`
	Contacts []integrations.Contact `json:"contacts" validate:"required,min=1,max=1000"`
}

func (h *Handlers) mailchimpSync(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body mailchimpSyncRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	accepted, rejected, duplicates := integrations.NormalizeContacts(body.Contacts)
	if len(accepted) == 0 {
		return nil, apperr.Validation("No valid contacts to sync").With("rejected", rejected)
	}

	receipt, err := h.publisher.Publish(ctx, integrations.Mailchimp, body.ListID, len(accepted))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(map[string]any{
		"receipt":    receipt,
		"listId":     body.ListID,
		"synced":     len(accepted),
		"rejected":   rejected,
		"duplicates": duplicates,
	}, "Contacts synced successfully"), nil
}

type verifyReceiptRequest struct {
	Token string `json:"token" validate:"notblank"`
}

func (h *Handlers) verifyReceipt(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body verifyReceiptRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	receipt, err := h.publisher.Verify(ctx, strings.TrimSpace(body.Token))
	if errors.Is(err, integrations.ErrInvalidReceipt) {
		return nil, apperr.Validation("Receipt is invalid or expired")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(map[string]any{"valid": true, "receipt": receipt}, "Receipt verified"), nil
}

type socialPublishRequest struct {
	Platforms []string `json:"platforms" validate:"required,min=1,dive,notblank"`
	Content   string   `json:"content" validate:"notblank"`
}

// checkPlatforms measures content for every platform, reporting unknown platforms and
// over-limit posts as one validation error.
func checkPlatforms(platforms []string, content string) ([]integrations.PlatformCheck, error) {
	checks := make([]integrations.PlatformCheck, 0, len(platforms))
	var unknown []string
	tooLong := false
	seen := map[string]bool{}
	for _, p := range platforms {
		c, known := integrations.CheckPost(p, content)
		if !known {
			unknown = append(unknown, c.Platform)
			continue
		}
		if seen[c.Platform] {
			continue
		}
		seen[c.Platform] = true
		if !c.WithinLimit {
			tooLong = true
		}
		checks = append(checks, c)
	}
	if len(unknown) > 0 {
		return nil, apperr.Validation("Unsupported platforms: %s", strings.Join(unknown, ", ")).
			With("supportedPlatforms", integrations.SupportedPlatforms())
	}
	if tooLong {
		return nil, apperr.Validation("Content exceeds the length limit of at least one platform").
			With("checks", checks)
	}
	return checks, nil
}

func (h *Handlers) socialPublish(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body socialPublishRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	checks, err := checkPlatforms(body.Platforms, body.Content)
	if err != nil {
		return nil, err
	}

	receipts := make([]integrations.Receipt, 0, len(checks))
	for _, c := range checks {
		r, err := h.publisher.Publish(ctx, integrations.Social, c.Platform, 1)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		receipts = append(receipts, r)
	}
	return ok(map[string]any{
		"checks":   checks,
		"receipts": receipts,
	}, "Content published successfully"), nil
}

type importRecord struct {
	CampaignID     string              `json:"campaignId" validate:"notblank"`
	Impressions    int64               `json:"impressions" validate:"gte=0"`
	Clicks         int64               `json:"clicks" validate:"gte=0"`
	Interactions   int64               `json:"interactions" validate:"gte=0"`
	Conversions    int64               `json:"conversions" validate:"gte=0"`
	UniqueUsers    int64               `json:"uniqueUsers" validate:"gte=0"`
	ReturningUsers int64               `json:"returningUsers" validate:"gte=0"`
	Revenue        decimal.Decimal     `json:"revenue"`
	Spend          decimal.Decimal     `json:"spend"`
	StageCounts    []models.StageCount `json:"stageCounts" validate:"omitempty,dive"`
}

type analyticsImportRequest struct {
	Source  string         `json:"source" validate:"notblank"`
	Records []importRecord `json:"records" validate:"required,min=1,max=1000,dive"`
}

type skippedRecord struct {
	CampaignID string `json:"campaignId"`
	Reason     string `json:"reason"`
}

// merge accumulates counters and money and replaces the stage counts when the record has any.
func (r importRecord) merge(m *models.CampaignMetrics) {
	m.Impressions += r.Impressions
	m.Clicks += r.Clicks
	m.Interactions += r.Interactions
	m.Conversions += r.Conversions
	m.UniqueUsers += r.UniqueUsers
	m.ReturningUsers += r.ReturningUsers
	m.Revenue = m.Revenue.Add(r.Revenue)
	m.Spend = m.Spend.Add(r.Spend)
	if len(r.StageCounts) > 0 {
		m.StageCounts = append([]models.StageCount(nil), r.StageCounts...)
	}
}

func (h *Handlers) analyticsImport(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body analyticsImportRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}

	skipped := []skippedRecord{}
	updated := map[string]bool{}
	imported := 0
	for _, rec := range body.Records {
		if rec.Revenue.IsNegative() || rec.Spend.IsNegative() {
			skipped = append(skipped, skippedRecord{CampaignID: rec.CampaignID, Reason: "negative revenue or spend"})
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(rec.CampaignID))
		if err != nil {
			skipped = append(skipped, skippedRecord{CampaignID: rec.CampaignID, Reason: "invalid campaign id"})
			continue
		}
		c, err := h.store.GetCampaign(ctx, id.String())
		if errors.Is(err, store.ErrNotFound) {
			skipped = append(skipped, skippedRecord{CampaignID: rec.CampaignID, Reason: "campaign not found"})
			continue
		}
		if err != nil {
			return nil, storeErr(err, "Campaign")
		}
		rec.merge(&c.Metrics)
		if err := h.store.UpdateCampaign(ctx, c); err != nil {
			return nil, storeErr(err, "Campaign")
		}
		updated[c.ID] = true
		imported++
	}

	receipt, err := h.publisher.Publish(ctx, integrations.AnalyticsImport, body.Source, imported)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(map[string]any{
		"receipt":          receipt,
		"source":           body.Source,
		"imported":         imported,
		"campaignsUpdated": len(updated),
		"skipped":          skipped,
	}, "Analytics imported successfully"), nil
}
