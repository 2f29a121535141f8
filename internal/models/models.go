package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// APIKey is a caller credential. Only active keys with the configured key name authorize requests.
type APIKey struct {
	ID        string    `json:"id"`
	KeyName   string    `json:"key_name"`
	KeyValue  string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type ContentMetadata struct {
	Prompt      string    `json:"prompt"`
	Category    string    `json:"category"`
	GeneratedBy string    `json:"generatedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// GeneratedContent is immutable once stored.
type GeneratedContent struct {
	ID             string          `json:"id"`
	ContentType    string          `json:"contentType"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	APIUsed        string          `json:"apiUsed"`
	GenerationCost decimal.Decimal `json:"generationCost"`
	Metadata       ContentMetadata `json:"metadata"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Ebook struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	CoverImageURL string          `json:"coverImageUrl,omitempty"`
	FileURL       string          `json:"fileUrl,omitempty"`
	Pages         int             `json:"pages"`
	Featured      bool            `json:"featured"`
	Status        string          `json:"status"`
	Language      string          `json:"language"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// StageCount is an observed visitor/lead count for one named funnel stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

// CampaignMetrics are accumulated from analytics imports; a new campaign starts zeroed.
type CampaignMetrics struct {
	Impressions    int64           `json:"impressions"`
	Clicks         int64           `json:"clicks"`
	Interactions   int64           `json:"interactions"`
	Conversions    int64           `json:"conversions"`
	UniqueUsers    int64           `json:"uniqueUsers"`
	ReturningUsers int64           `json:"returningUsers"`
	Revenue        decimal.Decimal `json:"revenue"`
	Spend          decimal.Decimal `json:"spend"`
	StageCounts    []StageCount    `json:"stageCounts,omitempty"`
}

type MarketingCampaign struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CampaignType   string          `json:"campaignType"`
	Status         string          `json:"status"`
	TargetAudience string          `json:"targetAudience"`
	Content        map[string]any  `json:"content"`
	Budget         decimal.Decimal `json:"budget"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	Metrics        CampaignMetrics `json:"metrics"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// UsageLogEntry is one row of the append-only usage ledger.
type UsageLogEntry struct {
	ID             int64           `json:"id"`
	APIName        string          `json:"apiName"`
	Endpoint       string          `json:"endpoint"`
	Method         string          `json:"method"`
	RequestID      string          `json:"requestId"`
	RequestData    map[string]any  `json:"requestData,omitempty"`
	ResponseStatus int             `json:"responseStatus"`
	TokensUsed     int             `json:"tokensUsed"`
	Cost           decimal.Decimal `json:"cost"`
	DurationMs     int             `json:"durationMs"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type WorkflowTrigger struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

type WorkflowAction struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

type AutomationWorkflow struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Trigger   WorkflowTrigger  `json:"trigger"`
	Actions   []WorkflowAction `json:"actions"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

type ScheduledContent struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"contentId,omitempty"`
	Content     string    `json:"content"`
	Platforms   []string  `json:"platforms"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
