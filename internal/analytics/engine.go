// Package analytics derives ROI, engagement, conversion and security snapshots from the usage
// ledger and persisted entities. Every computation is a pure function of a Dataset; nothing
// here writes to the store.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

// Source is the read side the engine needs.
type Source interface {
	ListContent(ctx context.Context, f store.ContentFilter) ([]models.GeneratedContent, error)
	ListCampaigns(ctx context.Context, f store.CampaignFilter) ([]models.MarketingCampaign, error)
	ListUsage(ctx context.Context, r store.TimeRange) ([]models.UsageLogEntry, error)
	CountActiveKeys(ctx context.Context, keyName string) (int, error)
}

// Dataset is the state a snapshot is computed from.
type Dataset struct {
	Period    Period
	Contents  []models.GeneratedContent
	Campaigns []models.MarketingCampaign
	Usage     []models.UsageLogEntry
}

type Engine struct {
	src        Source
	keyName    string
	now        func() time.Time
	thresholds AlertThresholds
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithAlertThresholds(t AlertThresholds) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

// NewEngine reads from src; keyName scopes the active key count in audits.
func NewEngine(src Source, keyName string, opts ...EngineOption) *Engine {
	e := &Engine{src: src, keyName: keyName, now: time.Now, thresholds: DefaultAlertThresholds()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now is the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Load reads the dataset for p, querying the three sources concurrently.
func (e *Engine) Load(ctx context.Context, p Period) (Dataset, error) {
	ds := Dataset{Period: p}
	r := p.Range()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds.Contents, err = e.src.ListContent(gctx, store.ContentFilter{Range: r})
		return err
	})
	g.Go(func() error {
		var err error
		ds.Campaigns, err = e.src.ListCampaigns(gctx, store.CampaignFilter{Range: r})
		return err
	})
	g.Go(func() error {
		var err error
		ds.Usage, err = e.src.ListUsage(gctx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func (e *Engine) ROI(ctx context.Context, p Period) (ROIReport, error) {
	ds, err := e.Load(ctx, p)
	if err != nil {
		return ROIReport{}, err
	}
	return ComputeROI(ds), nil
}

func (e *Engine) Engagement(ctx context.Context, p Period) (EngagementReport, error) {
	ds, err := e.Load(ctx, p)
	if err != nil {
		return EngagementReport{}, err
	}
	return ComputeEngagement(ds), nil
}

func (e *Engine) Conversion(ctx context.Context, p Period) (ConversionReport, error) {
	ds, err := e.Load(ctx, p)
	if err != nil {
		return ConversionReport{}, err
	}
	return ComputeConversion(ds), nil
}

func (e *Engine) Report(ctx context.Context, req ReportRequest) (CustomReport, error) {
	ds, err := e.Load(ctx, req.Period)
	if err != nil {
		return CustomReport{}, err
	}
	return ComputeReport(ds, req, e.now()), nil
}

// Audit summarizes the last 24 hours of the ledger.
func (e *Engine) Audit(ctx context.Context) (AuditReport, error) {
	now := e.now()
	p := Period{Label: "24h", From: now.Add(-24 * time.Hour), To: now}
	usage, err := e.src.ListUsage(ctx, p.Range())
	if err != nil {
		return AuditReport{}, err
	}
	active, err := e.src.CountActiveKeys(ctx, e.keyName)
	if err != nil {
		return AuditReport{}, err
	}
	return ComputeAudit(usage, p, active), nil
}

// Alerts evaluates alert rules over the last hour of the ledger.
func (e *Engine) Alerts(ctx context.Context) (AlertsReport, error) {
	now := e.now()
	p := Period{Label: "1h", From: now.Add(-time.Hour), To: now}
	usage, err := e.src.ListUsage(ctx, p.Range())
	if err != nil {
		return AlertsReport{}, err
	}
	return ComputeAlerts(usage, p, e.thresholds), nil
}

// Percent returns part/whole*100 rounded to two places, or 0 when whole is 0.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var half = decimal.NewFromFloat(0.5)

// roiPercent is (revenue - investment) / investment * 100 with halves rounded toward +inf, so
// -2.5 gives -2. 0 without investment.
func roiPercent(revenue, investment decimal.Decimal) int64 {
	if investment.IsZero() {
		return 0
	}
	return revenue.Sub(investment).Div(investment).Mul(decimal.NewFromInt(100)).Add(half).Floor().IntPart()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
