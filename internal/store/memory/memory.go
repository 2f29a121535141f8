// Package memory is a thread-safe in-process implementation of store.Store, used for
// local runs (STORE_BACKEND=memory) and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	keys      []models.APIKey
	usage     []models.UsageLogEntry
	contents  []models.GeneratedContent
	ebooks    map[string]models.Ebook
	campaigns map[string]models.MarketingCampaign
	workflows []models.AutomationWorkflow
	schedules []models.ScheduledContent
	nextUsage int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:       time.Now,
		ebooks:    make(map[string]models.Ebook),
		campaigns: make(map[string]models.MarketingCampaign),
	}
}

// WithClock overrides the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.APIKey
	for _, k := range s.keys {
		if k.KeyName == keyName && k.KeyValue == keyValue && k.IsActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) CountActiveKeys(ctx context.Context, keyName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, k := range s.keys {
		if k.KeyName == keyName && k.IsActive {
			n++
		}
	}
	return n, nil
}

// CreateKey inserts a key, rejecting a duplicate (key_name, key_value) pair like the unique index does.
func (s *Store) CreateKey(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.KeyName == key.KeyName && k.KeyValue == key.KeyValue {
			return store.ErrDuplicate
		}
	}
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = s.now()
	}
	s.keys = append(s.keys, *key)
	return nil
}

func (s *Store) SetKeyActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.keys {
		if s.keys[i].ID == id {
			s.keys[i].IsActive = active
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.APIKey(nil), s.keys...), nil
}

func (s *Store) RecordUsage(ctx context.Context, entry *models.UsageLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUsage++
	entry.ID = s.nextUsage
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.usage = append(s.usage, *entry)
	return nil
}

func (s *Store) ListUsage(ctx context.Context, r store.TimeRange) ([]models.UsageLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UsageLogEntry, 0, len(s.usage))
	for _, e := range s.usage {
		if r.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CreateContent(ctx context.Context, c *models.GeneratedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.contents = append(s.contents, *c)
	return nil
}

func (s *Store) GetContent(ctx context.Context, id string) (*models.GeneratedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.contents {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListContent(ctx context.Context, f store.ContentFilter) ([]models.GeneratedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.GeneratedContent, 0)
	// newest first, matching ORDER BY created_at DESC
	for i := len(s.contents) - 1; i >= 0; i-- {
		c := s.contents[i]
		if f.ContentType != "" && c.ContentType != f.ContentType {
			continue
		}
		if f.Search != "" && !containsFold(c.Title, f.Search) && !containsFold(c.Content, f.Search) {
			continue
		}
		if !f.Range.Contains(c.CreatedAt) {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateEbook(ctx context.Context, b *models.Ebook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.ebooks[b.ID] = *b
	return nil
}

func (s *Store) GetEbook(ctx context.Context, id string) (*models.Ebook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.ebooks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateEbook(ctx context.Context, b *models.Ebook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ebooks[b.ID]; !ok {
		return store.ErrNotFound
	}
	b.UpdatedAt = s.now()
	s.ebooks[b.ID] = *b
	return nil
}

func (s *Store) ListEbooks(ctx context.Context, f store.EbookFilter) ([]models.Ebook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Ebook, 0, len(s.ebooks))
	for _, b := range s.ebooks {
		if f.Category != "" && !strings.EqualFold(b.Category, f.Category) {
			continue
		}
		if f.Search != "" && !containsFold(b.Title, f.Search) && !containsFold(b.Author, f.Search) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.campaigns[c.ID] = *c
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*models.MarketingCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[c.ID]; !ok {
		return store.ErrNotFound
	}
	c.UpdatedAt = s.now()
	s.campaigns[c.ID] = *c
	return nil
}

func (s *Store) ListCampaigns(ctx context.Context, f store.CampaignFilter) ([]models.MarketingCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MarketingCampaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.CampaignType != "" && c.CampaignType != f.CampaignType {
			continue
		}
		if !f.Range.Contains(c.CreatedAt) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateWorkflow(ctx context.Context, w *models.AutomationWorkflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = s.now()
	s.workflows = append(s.workflows, *w)
	return nil
}

func (s *Store) CreateSchedule(ctx context.Context, sc *models.ScheduledContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = s.now()
	s.schedules = append(s.schedules, *sc)
	return nil
}

// Workflows and Schedules expose stored automation rows for inspection.
func (s *Store) Workflows() []models.AutomationWorkflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AutomationWorkflow(nil), s.workflows...)
}

func (s *Store) Schedules() []models.ScheduledContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ScheduledContent(nil), s.schedules...)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
