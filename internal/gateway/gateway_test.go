package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanTheDev/content-automation-api/internal/analytics"
	"github.com/HanTheDev/content-automation-api/internal/auth"
	"github.com/HanTheDev/content-automation-api/internal/cache"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/handlers"
	"github.com/HanTheDev/content-automation-api/internal/integrations"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/ratelimit"
	"github.com/HanTheDev/content-automation-api/internal/store"
	"github.com/HanTheDev/content-automation-api/internal/store/memory"
)

const (
	keyName  = "GENSPARK_API_KEY"
	validKey = "test-key-123"
)

type harness struct {
	gw    *Gateway
	store *memory.Store
	clock *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type options struct {
	limit int
	table *dispatch.Table
}

func newHarness(t *testing.T, opt options) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	st := memory.New().WithClock(clock.Now)
	ctx := context.Background()
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: keyName, KeyValue: validKey, IsActive: true}))
	inactive := &models.APIKey{KeyName: keyName, KeyValue: "retired-key", IsActive: true}
	require.NoError(t, st.CreateKey(ctx, inactive))
	require.NoError(t, st.SetKeyActive(ctx, inactive.ID, false))

	table := opt.table
	if table == nil {
		gen := generator.New(generator.NewTemplateProvider(), zerolog.Nop(),
			generator.WithTokenRate(decimal.RequireFromString("0.002")))
		engine := analytics.NewEngine(st, keyName, analytics.WithClock(clock.Now))
		pub := integrations.NewAckPublisher(auth.NewReceiptSigner("secret", time.Hour), zerolog.Nop())
		table = handlers.New(st, gen, engine, pub, zerolog.Nop(), handlers.WithClock(clock.Now)).Table()
	}

	limit := opt.limit
	if limit == 0 {
		limit = 100
	}
	limiter, err := ratelimit.NewMemoryLimiter(limit, time.Minute, limit)
	require.NoError(t, err)
	limiter.WithClock(clock.Now)

	replay, err := cache.NewLRUCache(64)
	require.NoError(t, err)

	gw := New(Config{APIName: "genspark-api", MaxBodyBytes: 4096},
		auth.NewAuthenticator(st, keyName), limiter, table, st, zerolog.Nop(),
		WithReplayCache(replay.WithClock(clock.Now), time.Hour), WithClock(clock.Now))
	return &harness{gw: gw, store: st, clock: clock}
}

func (h *harness) do(t *testing.T, method, path, key, body string, headers ...string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(auth.HeaderAPIKey, key)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.gw.ServeHTTP(rec, req)

	var env Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (h *harness) usage(t *testing.T) []models.UsageLogEntry {
	t.Helper()
	entries, err := h.store.ListUsage(context.Background(), store.TimeRange{})
	require.NoError(t, err)
	return entries
}

func TestOptionsPreflight(t *testing.T) {
	h := newHarness(t, options{})

	rec, _ := h.do(t, http.MethodOptions, "/content/create", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), auth.HeaderAPIKey)
	assert.Empty(t, h.usage(t))
}

func TestAuthentication(t *testing.T) {
	tests := []struct {
		name string
		key  string
		code string
	}{
		{"missing", "", "MISSING_CREDENTIAL"},
		{"unknown", "nope", "INVALID_CREDENTIAL"},
		{"inactive", "retired-key", "INVALID_CREDENTIAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, options{})
			rec, env := h.do(t, http.MethodPost, "/content/create", tt.key,
				`{"contentType":"blog-article","prompt":"hello world"}`)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.RequestID)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			entries := h.usage(t)
			require.Len(t, entries, 1)
			assert.Equal(t, http.StatusUnauthorized, entries[0].ResponseStatus)
			assert.Equal(t, env.RequestID, entries[0].RequestID)

			items, err := h.store.ListContent(context.Background(), store.ContentFilter{})
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestCreateContentThroughGateway(t *testing.T) {
	h := newHarness(t, options{})

	rec, env := h.do(t, http.MethodPost, "/functions/v1/genspark-api/content/create", validKey,
		`{"contentType":"blog-article","prompt":"remote team rituals"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "Content created successfully", env.Message)
	data := env.Data.(map[string]any)
	assert.Equal(t, "blog-writer/template", data["apiUsed"])
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	items, err := h.store.ListContent(context.Background(), store.ContentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	entries := h.usage(t)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, http.StatusOK, e.ResponseStatus)
	assert.Equal(t, "/functions/v1/genspark-api/content/create", e.Endpoint)
	assert.Equal(t, "genspark-api", e.APIName)
	assert.Equal(t, "remote team rituals", e.RequestData["prompt"])
	assert.Positive(t, e.TokensUsed)
	assert.True(t, e.Cost.Equal(items[0].GenerationCost))
}

func TestSocialMediaThroughGateway(t *testing.T) {
	h := newHarness(t, options{})

	rec, env := h.do(t, http.MethodPost, "/content/create", validKey,
		`{"contentType":"social-media","prompt":"our spring sale starts monday"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]any)
	assert.NotEmpty(t, data["apiUsed"])
	assert.LessOrEqual(t, len([]rune(data["content"].(string))), 280)
}

func TestValidationAndNotFound(t *testing.T) {
	h := newHarness(t, options{})

	rec, env := h.do(t, http.MethodPost, "/library/add-book", validKey,
		`{"title":"Book","description":"short","category":"misc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Contains(t, env.Error, "price")
	books, err := h.store.ListEbooks(context.Background(), store.EbookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)

	rec, env = h.do(t, http.MethodPost, "/content/create", validKey, `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	rec, env = h.do(t, http.MethodGet, "/api/genspark/unknown", validKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
	groups, ok := env.Details["availableEndpoints"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, groups)

	// an unknown path is reported as such whatever the body holds
	rec, env = h.do(t, http.MethodPost, "/api/genspark/unknown", validKey, `[1,2]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	rec, _ = h.do(t, http.MethodGet, "/content/create", validKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(t, http.MethodPut, "/library/update-book/not-a-uuid", validKey, `{"price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Book not found", env.Error)

	assert.Len(t, h.usage(t), 6)
}

func TestShortDescriptionExpanded(t *testing.T) {
	h := newHarness(t, options{})

	rec, env := h.do(t, http.MethodPost, "/library/add-book", validKey,
		`{"title":"Calm Code","description":"Write less.","category":"software","price":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	desc := env.Data.(map[string]any)["description"].(string)
	assert.GreaterOrEqual(t, len([]rune(desc)), generator.MinDescriptionLength)

	entries := h.usage(t)
	require.Len(t, entries, 1)
	assert.Positive(t, entries[0].TokensUsed)
}

func TestBodyTooLarge(t *testing.T) {
	h := newHarness(t, options{})

	rec, env := h.do(t, http.MethodPost, "/content/create", validKey,
		`{"contentType":"generic","prompt":"`+strings.Repeat("a", 5000)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "4096")
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, options{limit: 2})

	for i := 0; i < 2; i++ {
		rec, _ := h.do(t, http.MethodGet, "/content/list", validKey, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := h.do(t, http.MethodGet, "/content/list", validKey, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// other operations have their own bucket
	rec, _ = h.do(t, http.MethodGet, "/library/books", validKey, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.clock.t = h.clock.t.Add(time.Minute)
	rec, _ = h.do(t, http.MethodGet, "/content/list", validKey, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	statuses := map[int]int{}
	for _, e := range h.usage(t) {
		statuses[e.ResponseStatus]++
	}
	assert.Equal(t, 1, statuses[http.StatusTooManyRequests])
}

func TestRateLimit_SharedAcrossPrefixes(t *testing.T) {
	h := newHarness(t, options{limit: 2})
	body := `{"contentType":"generic","prompt":"spring launch"}`

	allowed := 0
	for i := 0; i < 10; i++ {
		rec, _ := h.do(t, http.MethodPost, fmt.Sprintf("/p%d/content/create", i), validKey, body)
		if rec.Code == http.StatusOK {
			allowed++
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
	assert.Equal(t, 2, allowed)

	items, err := h.store.ListContent(context.Background(), store.ContentFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// unknown paths share one bucket as well
	for i := 0; i < 2; i++ {
		rec, _ := h.do(t, http.MethodGet, fmt.Sprintf("/nowhere/%d", i), validKey, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec, env := h.do(t, http.MethodGet, "/nowhere/else", validKey, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Code)
}

func TestIdempotentReplay(t *testing.T) {
	h := newHarness(t, options{})
	body := `{"campaignName":"Launch","campaignType":"email","objective":"signups"}`

	first, env1 := h.do(t, http.MethodPost, "/marketing/campaign", validKey, body, HeaderIdempotencyKey, "abc")
	require.Equal(t, http.StatusOK, first.Code)
	second, env2 := h.do(t, http.MethodPost, "/marketing/campaign", validKey, body, HeaderIdempotencyKey, "abc")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, env1.Data.(map[string]any)["id"], env2.Data.(map[string]any)["id"])

	campaigns, err := h.store.ListCampaigns(context.Background(), store.CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, campaigns, 1)

	entries := h.usage(t)
	require.Len(t, entries, 2)
	assert.Zero(t, entries[1].TokensUsed)

	third, _ := h.do(t, http.MethodPost, "/marketing/campaign", validKey, body)
	require.Equal(t, http.StatusOK, third.Code)
	campaigns, err = h.store.ListCampaigns(context.Background(), store.CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)
}

func TestPanicBecomesInternalError(t *testing.T) {
	table := dispatch.NewTable(dispatch.Route{
		Name: "boom", Group: "test", Method: http.MethodGet, Matcher: dispatch.Suffix("/boom"),
		Handler: func(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
			panic("kaboom")
		},
	})
	h := newHarness(t, options{table: table})

	rec, env := h.do(t, http.MethodGet, "/boom", validKey, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.Equal(t, "Internal server error", env.Error)
	assert.NotContains(t, rec.Body.String(), "kaboom")
	assert.Equal(t, rec.Header().Get(HeaderRequestID), env.RequestID)

	entries := h.usage(t)
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusInternalServerError, entries[0].ResponseStatus)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 2, retryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
}

func TestCORSAllowList(t *testing.T) {
	g := New(Config{AllowedOrigins: []string{"https://app.example.com"}}, nil, nil, nil, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	g.setCORSHeaders(rec, "https://app.example.com")
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = httptest.NewRecorder()
	g.setCORSHeaders(rec, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
