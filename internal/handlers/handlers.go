// Package handlers implements every gateway operation and registers them in the dispatch
// table. Handlers validate input, act through the store, generator, analytics engine or
// publisher, and return a dispatch.Result; they never write HTTP responses themselves.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HanTheDev/content-automation-api/internal/analytics"
	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/integrations"
	"github.com/HanTheDev/content-automation-api/internal/store"
	"github.com/HanTheDev/content-automation-api/internal/validation"
)

// APIPrefix prefixes every exact-match route.
const APIPrefix = "/api/genspark"

type Handlers struct {
	store     store.Store
	gen       *generator.Facade
	analytics *analytics.Engine
	publisher integrations.Publisher
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Handlers)

func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

func New(st store.Store, gen *generator.Facade, engine *analytics.Engine, publisher integrations.Publisher, log zerolog.Logger, opts ...Option) *Handlers {
	h := &Handlers{
		store:     st,
		gen:       gen,
		analytics: engine,
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("component", "handlers").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Table returns the dispatch table in match order.
func (h *Handlers) Table() *dispatch.Table {
	post, get, put := http.MethodPost, http.MethodGet, http.MethodPut
	exact := func(p string) dispatch.Matcher { return dispatch.Exact(APIPrefix + p) }

	return dispatch.NewTable(
		dispatch.Route{Name: "content.create", Group: "content", Method: post, Matcher: dispatch.Suffix("/content/create"), Handler: h.createContent},
		dispatch.Route{Name: "content.list", Group: "content", Method: get, Matcher: dispatch.Suffix("/content/list"), Handler: h.listContent},

		dispatch.Route{Name: "library.add-book", Group: "library", Method: post, Matcher: dispatch.Suffix("/library/add-book"), Handler: h.addBook},
		dispatch.Route{Name: "library.update-book", Group: "library", Method: put, Matcher: dispatch.Segment("/library/update-book"), Handler: h.updateBook},
		dispatch.Route{Name: "library.landing-page", Group: "library", Method: post, Matcher: dispatch.Segment("/library/landing-page"), Handler: h.bookLandingPage},
		dispatch.Route{Name: "library.optimize-seo", Group: "library", Method: post, Matcher: dispatch.Segment("/library/optimize-seo"), Handler: h.optimizeBookSEO},
		dispatch.Route{Name: "library.analytics", Group: "library", Method: get, Matcher: dispatch.Suffix("/library/analytics"), Handler: h.libraryAnalytics},
		dispatch.Route{Name: "library.books", Group: "library", Method: get, Matcher: dispatch.Suffix("/library/books"), Handler: h.listBooks},

		dispatch.Route{Name: "marketing.campaign", Group: "marketing", Method: post, Matcher: dispatch.Suffix("/marketing/campaign"), Handler: h.createCampaign},
		dispatch.Route{Name: "marketing.update-campaign", Group: "marketing", Method: put, Matcher: dispatch.Segment("/marketing/update-campaign"), Handler: h.updateCampaign},
		dispatch.Route{Name: "marketing.campaigns", Group: "marketing", Method: get, Matcher: dispatch.Suffix("/marketing/campaigns"), Handler: h.listCampaigns},
		dispatch.Route{Name: "marketing.email-sequence", Group: "marketing", Method: post, Matcher: exact("/marketing/email-sequence"), Handler: h.emailSequence},
		dispatch.Route{Name: "marketing.lead-magnet", Group: "marketing", Method: post, Matcher: exact("/marketing/lead-magnet"), Handler: h.leadMagnet},
		dispatch.Route{Name: "marketing.sales-funnel", Group: "marketing", Method: post, Matcher: exact("/marketing/sales-funnel"), Handler: h.salesFunnel},
		dispatch.Route{Name: "marketing.ab-test", Group: "marketing", Method: post, Matcher: exact("/marketing/ab-test"), Handler: h.abTest},

		dispatch.Route{Name: "analytics.roi", Group: "analytics", Method: get, Matcher: exact("/analytics/roi"), Handler: h.roi},
		dispatch.Route{Name: "analytics.engagement", Group: "analytics", Method: get, Matcher: exact("/analytics/engagement"), Handler: h.engagement},
		dispatch.Route{Name: "analytics.conversion", Group: "analytics", Method: get, Matcher: exact("/analytics/conversion"), Handler: h.conversion},
		dispatch.Route{Name: "analytics.report", Group: "analytics", Method: post, Matcher: exact("/analytics/report"), Handler: h.report},

		dispatch.Route{Name: "ai.content-optimization", Group: "ai", Method: post, Matcher: exact("/ai/content-optimization"), Handler: h.contentOptimization},
		dispatch.Route{Name: "ai.keyword-research", Group: "ai", Method: post, Matcher: exact("/ai/keyword-research"), Handler: h.keywordResearch},
		dispatch.Route{Name: "ai.competitor-analysis", Group: "ai", Method: post, Matcher: exact("/ai/competitor-analysis"), Handler: h.competitorAnalysis},
		dispatch.Route{Name: "ai.trend-prediction", Group: "ai", Method: post, Matcher: exact("/ai/trend-prediction"), Handler: h.trendPrediction},

		dispatch.Route{Name: "integrations.mailchimp-sync", Group: "integrations", Method: post, Matcher: exact("/integrations/mailchimp/sync"), Handler: h.mailchimpSync},
		dispatch.Route{Name: "integrations.social-publish", Group: "integrations", Method: post, Matcher: exact("/integrations/social/publish"), Handler: h.socialPublish},
		dispatch.Route{Name: "integrations.analytics-import", Group: "integrations", Method: post, Matcher: exact("/integrations/analytics/import"), Handler: h.analyticsImport},
		dispatch.Route{Name: "integrations.verify-receipt", Group: "integrations", Method: post, Matcher: exact("/integrations/receipts/verify"), Handler: h.verifyReceipt},

		dispatch.Route{Name: "automations.workflow-create", Group: "automations", Method: post, Matcher: exact("/automations/workflow/create"), Handler: h.createWorkflow},
		dispatch.Route{Name: "automations.schedule-content", Group: "automations", Method: post, Matcher: exact("/automations/schedule/content"), Handler: h.scheduleContent},

		dispatch.Route{Name: "security.audit", Group: "security", Method: get, Matcher: exact("/security/audit"), Handler: h.securityAudit},
		dispatch.Route{Name: "monitoring.alerts", Group: "security", Method: get, Matcher: exact("/monitoring/alerts"), Handler: h.monitoringAlerts},
	)
}

// bind decodes the JSON body into dst and validates it. An empty body decodes as {} so
// required-field checks still apply.
func bind(req *dispatch.Request, dst any) error {
	body := bytes.TrimSpace(req.Body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	return validation.Struct(dst)
}

// entityID canonicalizes the id captured from the path. Malformed ids cannot exist, so they
// are reported as not found.
func entityID(req *dispatch.Request, entity string) (string, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return "", apperr.NotFound(entity + " not found")
	}
	return id.String(), nil
}

// storeErr converts persistence failures at the handler boundary.
func storeErr(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(entity + " not found")
	}
	return apperr.Internal(err)
}

func generateErr(kind generator.Kind, err error) error {
	return apperr.Internal(fmt.Errorf("generate %s: %w", kind, err))
}

func queryInt(req *dispatch.Request, name string, def, min, max int) (int, error) {
	raw := req.Query.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, apperr.Validation("%s must be an integer between %d and %d", name, min, max)
	}
	return n, nil
}

func ok(data any, message string) *dispatch.Result {
	return &dispatch.Result{Data: data, Message: message}
}

// charged returns ok(data, message) carrying the generation's usage.
func charged(data any, message string, gens ...generator.Generation) *dispatch.Result {
	r := ok(data, message)
	for _, g := range gens {
		r.Charge(g.TokensUsed, g.Cost)
	}
	return r
}
