package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newStore() (*Store, *clock) {
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New().WithClock(c.Now), c
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore()

	key := &models.APIKey{KeyName: "GENSPARK_API_KEY", KeyValue: "abc", IsActive: true}
	require.NoError(t, st.CreateKey(ctx, key))
	assert.NotEmpty(t, key.ID)
	assert.ErrorIs(t, st.CreateKey(ctx, &models.APIKey{KeyName: "GENSPARK_API_KEY", KeyValue: "abc"}), store.ErrDuplicate)
	// same value under another name is a different key
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: "OTHER", KeyValue: "abc", IsActive: true}))

	found, err := st.FindActiveKeys(ctx, "GENSPARK_API_KEY", "abc")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, st.SetKeyActive(ctx, key.ID, false))
	n, err := st.CountActiveKeys(ctx, "GENSPARK_API_KEY")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, st.SetKeyActive(ctx, "nope", true), store.ErrNotFound)
}

func TestUsageLedger(t *testing.T) {
	ctx := context.Background()
	st, c := newStore()

	first := &models.UsageLogEntry{Endpoint: "/api/genspark/content", ResponseStatus: 200}
	require.NoError(t, st.RecordUsage(ctx, first))
	c.t = c.t.Add(2 * time.Hour)
	second := &models.UsageLogEntry{Endpoint: "/api/genspark/books", ResponseStatus: 401}
	require.NoError(t, st.RecordUsage(ctx, second))

	assert.EqualValues(t, 1, first.ID)
	assert.EqualValues(t, 2, second.ID)

	all, err := st.ListUsage(ctx, store.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	recent, err := st.ListUsage(ctx, store.TimeRange{From: c.t.Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "/api/genspark/books", recent[0].Endpoint)
}

func TestListContent(t *testing.T) {
	ctx := context.Background()
	st, c := newStore()

	for _, in := range []models.GeneratedContent{
		{ContentType: "blog", Title: "Go Concurrency", Content: "channels"},
		{ContentType: "social-media", Title: "Launch day", Content: "We are live"},
		{ContentType: "blog", Title: "Testing", Content: "table driven tests in Go"},
	} {
		require.NoError(t, st.CreateContent(ctx, &in))
		c.t = c.t.Add(time.Minute)
	}

	blogs, err := st.ListContent(ctx, store.ContentFilter{ContentType: "blog"})
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Equal(t, "Testing", blogs[0].Title, "newest first")

	found, err := st.ListContent(ctx, store.ContentFilter{Search: "GO"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	limited, err := st.ListContent(ctx, store.ContentFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = st.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEbooks(t *testing.T) {
	ctx := context.Background()
	st, c := newStore()

	book := &models.Ebook{Title: "Go in Practice", Author: "Ana", Category: "Programming"}
	require.NoError(t, st.CreateEbook(ctx, book))
	c.t = c.t.Add(time.Minute)
	require.NoError(t, st.CreateEbook(ctx, &models.Ebook{Title: "Cooking", Author: "Ben", Category: "food"}))

	list, err := st.ListEbooks(ctx, store.EbookFilter{Category: "programming"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, book.ID, list[0].ID)

	list, err = st.ListEbooks(ctx, store.EbookFilter{Search: "ben"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cooking", list[0].Title)

	c.t = c.t.Add(time.Hour)
	book.Title = "Go in Practice, 2nd ed."
	require.NoError(t, st.UpdateEbook(ctx, book))
	got, err := st.GetEbook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice, 2nd ed.", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.ErrorIs(t, st.UpdateEbook(ctx, &models.Ebook{ID: "missing"}), store.ErrNotFound)
}

func TestCampaignFilters(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore()

	require.NoError(t, st.CreateCampaign(ctx, &models.MarketingCampaign{Name: "a", CampaignType: "email-sequence", Status: models.CampaignStatusActive}))
	require.NoError(t, st.CreateCampaign(ctx, &models.MarketingCampaign{Name: "b", CampaignType: "sales-funnel", Status: models.CampaignStatusDraft}))

	active, err := st.ListCampaigns(ctx, store.CampaignFilter{Status: models.CampaignStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Name)

	funnels, err := st.ListCampaigns(ctx, store.CampaignFilter{CampaignType: "sales-funnel"})
	require.NoError(t, err)
	require.Len(t, funnels, 1)
	assert.Equal(t, "b", funnels[0].Name)

	assert.ErrorIs(t, st.UpdateCampaign(ctx, &models.MarketingCampaign{ID: "missing"}), store.ErrNotFound)
}

func TestTimeRangeContains(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	r := store.TimeRange{From: from, To: to}

	assert.True(t, r.Contains(from))
	assert.True(t, r.Contains(to))
	assert.False(t, r.Contains(from.Add(-time.Nanosecond)))
	assert.False(t, r.Contains(to.Add(time.Nanosecond)))
	assert.True(t, store.TimeRange{}.Contains(time.Time{}))
}
