// Package store declares the persistence contracts shared by the gateway, handlers and
// analytics. internal/db implements them on Postgres and internal/store/memory in process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/HanTheDev/content-automation-api/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// TimeRange bounds a listing by creation time. Zero bounds are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, both ends inclusive.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

type CredentialStore interface {
	// FindActiveKeys returns every active key row matching name and value.
	FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error)
	CountActiveKeys(ctx context.Context, keyName string) (int, error)
	CreateKey(ctx context.Context, key *models.APIKey) error
	SetKeyActive(ctx context.Context, id string, active bool) error
	ListKeys(ctx context.Context) ([]models.APIKey, error)
}

type UsageLedger interface {
	RecordUsage(ctx context.Context, entry *models.UsageLogEntry) error
	ListUsage(ctx context.Context, r TimeRange) ([]models.UsageLogEntry, error)
}

type ContentFilter struct {
	ContentType string
	Search      string
	Range       TimeRange
	Limit       int
}

type ContentRepository interface {
	CreateContent(ctx context.Context, c *models.GeneratedContent) error
	GetContent(ctx context.Context, id string) (*models.GeneratedContent, error)
	ListContent(ctx context.Context, f ContentFilter) ([]models.GeneratedContent, error)
}

type EbookFilter struct {
	Category string
	Search   string
}

type EbookRepository interface {
	CreateEbook(ctx context.Context, b *models.Ebook) error
	GetEbook(ctx context.Context, id string) (*models.Ebook, error)
	UpdateEbook(ctx context.Context, b *models.Ebook) error
	ListEbooks(ctx context.Context, f EbookFilter) ([]models.Ebook, error)
}

type CampaignFilter struct {
	Status       string
	CampaignType string
	Range        TimeRange
}

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, c *models.MarketingCampaign) error
	GetCampaign(ctx context.Context, id string) (*models.MarketingCampaign, error)
	UpdateCampaign(ctx context.Context, c *models.MarketingCampaign) error
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]models.MarketingCampaign, error)
}

type AutomationRepository interface {
	CreateWorkflow(ctx context.Context, w *models.AutomationWorkflow) error
	CreateSchedule(ctx context.Context, s *models.ScheduledContent) error
}

// Store groups every repository the service needs.
type Store interface {
	CredentialStore
	UsageLedger
	ContentRepository
	EbookRepository
	CampaignRepository
	AutomationRepository
}
