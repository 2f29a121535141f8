package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store/memory"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeROI_MatchesFormula(t *testing.T) {
	tests := []struct {
		name    string
		ledger  string
		spend   string
		revenue string
	}{
		{"profitable", "10", "90", "250"},
		{"thirds", "1", "2", "4"},
		{"loss", "3", "4", "5"},
		{"fractional", "0.12", "0.25", "1.23"},
		{"no revenue", "5", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Dataset{
				Usage: []models.UsageLogEntry{{Cost: dec(tt.ledger), CreatedAt: fixedNow}},
				Campaigns: []models.MarketingCampaign{{
					ID: "c1", CampaignType: "email-sequence", CreatedAt: fixedNow,
					Metrics: models.CampaignMetrics{Spend: dec(tt.spend), Revenue: dec(tt.revenue)},
				}},
			}
			r := ComputeROI(ds)

			inv := dec(tt.ledger).Add(dec(tt.spend)).InexactFloat64()
			rev := dec(tt.revenue).InexactFloat64()
			assert.Equal(t, int64(math.Floor((rev-inv)/inv*100+0.5)), r.Summary.ROI)
			assert.True(t, dec(tt.revenue).Equal(r.Summary.TotalRevenue))
			assert.True(t, dec(tt.ledger).Add(dec(tt.spend)).Equal(r.Summary.TotalInvestment))
		})
	}
}

func TestRoiPercent_HalvesRoundUp(t *testing.T) {
	tests := []struct {
		revenue, investment string
		want                int64
	}{
		{"97.5", "100", -2},
		{"102.5", "100", 3},
		{"96.5", "100", -3},
		{"100.4", "100", 0},
		{"0", "100", -100},
		{"5", "0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roiPercent(dec(tt.revenue), dec(tt.investment)), "%s/%s", tt.revenue, tt.investment)
	}
}

func TestComputeROI_Empty(t *testing.T) {
	r := ComputeROI(Dataset{Period: Period{Label: "30d"}})
	assert.Zero(t, r.Summary.ROI)
	assert.True(t, r.Summary.TotalInvestment.IsZero())
	assert.Nil(t, r.Summary.PaybackPeriodMonths)
	assert.NotNil(t, r.ByContentType)
	assert.NotNil(t, r.ByCampaignType)
	assert.NotNil(t, r.ByMonth)
}

func TestComputeROI_Breakdowns(t *testing.T) {
	may := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	ds := Dataset{
		Period: Period{Label: "custom", From: may, To: fixedNow},
		Usage: []models.UsageLogEntry{
			{Cost: dec("1"), CreatedAt: may},
			{Cost: dec("2"), CreatedAt: fixedNow},
		},
		Contents: []models.GeneratedContent{
			{ContentType: "blog-article", GenerationCost: dec("1")},
			{ContentType: "blog-article", GenerationCost: dec("2")},
		},
		Campaigns: []models.MarketingCampaign{
			{
				CampaignType: "sales-funnel", CreatedAt: fixedNow,
				Metrics: models.CampaignMetrics{Spend: dec("10"), Revenue: dec("30")},
			},
			{
				CampaignType: "email-sequence", CreatedAt: fixedNow,
				Metrics: models.CampaignMetrics{Spend: dec("4"), Revenue: dec("2")},
			},
		},
	}
	r := ComputeROI(ds)

	require.Len(t, r.ByContentType, 1)
	assert.Equal(t, "blog-article", r.ByContentType[0].Key)
	assert.Equal(t, 2, r.ByContentType[0].Items)
	assert.True(t, dec("3").Equal(r.ByContentType[0].Investment))
	assert.Equal(t, int64(-100), r.ByContentType[0].ROI)

	require.Len(t, r.ByCampaignType, 2)
	assert.Equal(t, "email-sequence", r.ByCampaignType[0].Key)
	assert.Equal(t, int64(-50), r.ByCampaignType[0].ROI)
	assert.Equal(t, "sales-funnel", r.ByCampaignType[1].Key)
	assert.Equal(t, int64(200), r.ByCampaignType[1].ROI)
	spend := decimal.Zero
	for _, b := range r.ByCampaignType {
		spend = spend.Add(b.Investment)
	}
	assert.True(t, spend.Equal(r.Summary.CampaignSpend))

	require.Len(t, r.ByMonth, 2)
	assert.Equal(t, "2025-05", r.ByMonth[0].Key)
	assert.Equal(t, "2025-06", r.ByMonth[1].Key)
	assert.True(t, dec("16").Equal(r.ByMonth[1].Investment))

	require.NotNil(t, r.Summary.PaybackPeriodMonths)
	assert.Positive(t, *r.Summary.PaybackPeriodMonths)
}

func TestBuildFunnel_StageOverStage(t *testing.T) {
	cases := [][]int64{
		{1000, 400, 120, 30},
		{300, 200, 70},
		{50, 50},
		{100, 0, 0},
		{10},
	}

	for _, counts := range cases {
		stages := make([]models.StageCount, len(counts))
		for i, c := range counts {
			stages[i] = models.StageCount{Stage: string(rune('a' + i)), Count: c}
		}
		f := BuildFunnel("id", "test", stages)
		require.Len(t, f.Stages, len(counts))

		product := 1.0
		for i, s := range f.Stages {
			want := 100.0
			if i > 0 && counts[i-1] > 0 {
				want = float64(counts[i]) / float64(counts[i-1]) * 100
			} else if i > 0 {
				want = 0
			}
			assert.InDelta(t, want, s.ConversionRate, 0.01)
			product *= s.ConversionRate
		}
		assert.InDelta(t, product/math.Pow(100, float64(len(counts)-1)), f.Overall, 0.01)
	}
}

func TestComputeConversion(t *testing.T) {
	ds := Dataset{Campaigns: []models.MarketingCampaign{
		{ID: "a", Name: "Spring", CampaignType: "email-sequence", Metrics: models.CampaignMetrics{
			Impressions: 1000, Clicks: 100, Conversions: 10,
		}},
		{ID: "b", Name: "Funnel", CampaignType: "sales-funnel", Metrics: models.CampaignMetrics{
			Impressions: 500, Clicks: 50, Conversions: 1,
			StageCounts: []models.StageCount{{Stage: "visit", Count: 500}, {Stage: "lead", Count: 50}, {Stage: "sale", Count: 1}},
		}},
	}}
	r := ComputeConversion(ds)

	assert.Equal(t, int64(150), r.Summary.TotalClicks)
	assert.InDelta(t, 7.33, r.Summary.ConversionRate, 0.01)
	require.Len(t, r.Funnels, 2)
	assert.Equal(t, "Funnel", r.Funnels[0].Name)
	assert.Equal(t, "all-campaigns", r.Funnels[1].Name)
	require.NotNil(t, r.BestPerforming)
	assert.Equal(t, "a", r.BestPerforming.ID)
	assert.Equal(t, "b", r.WorstPerforming.ID)
}

func TestComputeConversion_Empty(t *testing.T) {
	r := ComputeConversion(Dataset{})
	assert.Zero(t, r.Summary.ConversionRate)
	assert.Empty(t, r.Funnels)
	assert.NotNil(t, r.Funnels)
	assert.Nil(t, r.BestPerforming)
}

func TestComputeEngagement_EmptyLedger(t *testing.T) {
	r := ComputeEngagement(Dataset{})
	assert.Zero(t, r.Summary.TotalInteractions)
	assert.Zero(t, r.Summary.EngagementRate)
	assert.Zero(t, r.Channels.Blog.EngagementRate)
	assert.NotNil(t, r.Trending)
	assert.Empty(t, r.Trending)
}

func TestComputeEngagement_ChannelsAndTrending(t *testing.T) {
	var campaigns []models.MarketingCampaign
	for i, typ := range []string{"blog", "email-sequence", "social-media", "lead-magnet", "ab-test", "newsletter"} {
		campaigns = append(campaigns, models.MarketingCampaign{
			ID: string(rune('a' + i)), Name: typ, CampaignType: typ,
			Metrics: models.CampaignMetrics{Impressions: 1000, Interactions: int64(10 * (i + 1)), UniqueUsers: 100, ReturningUsers: 25},
		})
	}
	ds := Dataset{
		Campaigns: campaigns,
		Contents:  []models.GeneratedContent{{ContentType: "blog-article"}, {ContentType: "social-media"}},
	}
	r := ComputeEngagement(ds)

	assert.Equal(t, 1, r.Channels.Blog.ContentPieces)
	assert.Equal(t, 2, r.Channels.Email.Campaigns)
	assert.Equal(t, int64(20+60), r.Channels.Email.Interactions)
	assert.Equal(t, 1, r.Channels.LandingPages.Campaigns)
	assert.Equal(t, 1, r.Channels.Other.Campaigns)
	assert.InDelta(t, 25.0, r.Summary.ReturningRate, 0.001)

	require.Len(t, r.Trending, 5)
	assert.Equal(t, "newsletter", r.Trending[0].Name)
	assert.Equal(t, int64(60), r.Trending[0].Interactions)
}

func TestComputeReport_Insights(t *testing.T) {
	ds := Dataset{
		Usage: []models.UsageLogEntry{{Cost: dec("100")}},
		Campaigns: []models.MarketingCampaign{
			{ID: "a", CampaignType: "email-sequence", Metrics: models.CampaignMetrics{
				Impressions: 1000, Interactions: 5, Clicks: 100, Conversions: 20, Revenue: dec("50"),
			}},
		},
	}
	r := ComputeReport(ds, ReportRequest{}, fixedNow)

	assert.Equal(t, ReportComprehensive, r.ReportType)
	assert.NotNil(t, r.ROI)
	assert.NotNil(t, r.Engagement)
	assert.NotNil(t, r.Conversion)
	assert.Equal(t, fixedNow, r.GeneratedAt)

	rules := map[string]bool{}
	for _, in := range r.Insights {
		rules[in.Rule] = true
	}
	assert.True(t, rules["negative-roi"])
	assert.True(t, rules["high-conversion"])
	assert.True(t, rules["low-engagement"])
	assert.Equal(t, SeverityWarning, r.Insights[0].Severity)
}

func TestComputeReport_SingleSection(t *testing.T) {
	r := ComputeReport(Dataset{}, ReportRequest{ReportType: ReportROI, ConversionThreshold: 2}, fixedNow)
	assert.NotNil(t, r.ROI)
	assert.Nil(t, r.Engagement)
	assert.Nil(t, r.Conversion)
	require.Len(t, r.Insights, 1)
	assert.Equal(t, "no-metrics", r.Insights[0].Rule)
}

func TestValidReportType(t *testing.T) {
	assert.True(t, ValidReportType(""))
	assert.True(t, ValidReportType("conversion"))
	assert.False(t, ValidReportType("weekly"))
}

func TestResolvePeriod(t *testing.T) {
	p, err := ResolvePeriod("", "", "", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "30d", p.Label)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), p.From)

	p, err = ResolvePeriod("all", "", "", fixedNow)
	require.NoError(t, err)
	assert.True(t, p.From.IsZero())

	p, err = ResolvePeriod("7d", "2025-01-01", "2025-01-31", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Label)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC), p.To)

	_, err = ResolvePeriod("2w", "", "", fixedNow)
	assert.Error(t, err)
	_, err = ResolvePeriod("", "2025-02-01", "2025-01-01", fixedNow)
	assert.Error(t, err)
	_, err = ResolvePeriod("", "yesterday", "", fixedNow)
	assert.Error(t, err)
}

func TestComputeAudit(t *testing.T) {
	usage := []models.UsageLogEntry{
		{Endpoint: "/content/create", ResponseStatus: 200, TokensUsed: 100, Cost: dec("0.2"), DurationMs: 10},
		{Endpoint: "/content/create", ResponseStatus: 200, DurationMs: 30},
		{Endpoint: "/content/create", ResponseStatus: 401},
		{Endpoint: "/library/add-book", ResponseStatus: 429},
		{Endpoint: "/library/add-book", ResponseStatus: 500},
	}
	r := ComputeAudit(usage, Period{Label: "24h"}, 3)

	assert.Equal(t, 5, r.TotalRequests)
	assert.Equal(t, 2, r.SuccessfulRequests)
	assert.Equal(t, 3, r.FailedRequests)
	assert.Equal(t, 1, r.AuthFailures)
	assert.Equal(t, 1, r.RateLimited)
	assert.Equal(t, 1, r.ServerErrors)
	assert.Equal(t, 20.0, r.ErrorRate)
	assert.Equal(t, 3, r.ActiveKeys)
	assert.Equal(t, StatusCritical, r.Status)
	require.Len(t, r.TopEndpoints, 2)
	assert.Equal(t, "/content/create", r.TopEndpoints[0].Endpoint)
	assert.Equal(t, 1, r.TopEndpoints[0].Errors)
}

func TestComputeAudit_Empty(t *testing.T) {
	r := ComputeAudit(nil, Period{}, 0)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.NotNil(t, r.TopEndpoints)
}

func TestComputeAlerts(t *testing.T) {
	var usage []models.UsageLogEntry
	for i := 0; i < 10; i++ {
		usage = append(usage, models.UsageLogEntry{ResponseStatus: 401})
	}
	for i := 0; i < 2; i++ {
		usage = append(usage, models.UsageLogEntry{ResponseStatus: 500, Cost: dec("6")})
	}

	r := ComputeAlerts(usage, Period{}, DefaultAlertThresholds())
	rules := map[string]string{}
	for _, a := range r.Alerts {
		rules[a.Rule] = a.Severity
	}
	assert.Equal(t, SeverityCritical, rules["error-rate"])
	assert.Equal(t, SeverityWarning, rules["auth-failures"])
	assert.Equal(t, SeverityWarning, rules["generation-cost"])
	assert.NotContains(t, rules, "rate-limited")
	assert.Equal(t, StatusCritical, r.Status)

	quiet := ComputeAlerts(nil, Period{}, DefaultAlertThresholds())
	assert.Empty(t, quiet.Alerts)
	assert.Equal(t, StatusHealthy, quiet.Status)
}

func TestEngine_LoadsWindow(t *testing.T) {
	now := fixedNow
	st := memory.New().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, st.RecordUsage(ctx, &models.UsageLogEntry{Endpoint: "/x", ResponseStatus: 200, Cost: dec("2")}))
	require.NoError(t, st.CreateCampaign(ctx, &models.MarketingCampaign{
		Name: "c", CampaignType: "email-sequence",
		Metrics: models.CampaignMetrics{Spend: dec("8"), Revenue: dec("20"), Impressions: 10, Interactions: 2},
	}))
	require.NoError(t, st.CreateKey(ctx, &models.APIKey{KeyName: "GENSPARK_API_KEY", KeyValue: "k", IsActive: true}))

	// outside the default 30 day window
	now = fixedNow.Add(-90 * 24 * time.Hour)
	require.NoError(t, st.RecordUsage(ctx, &models.UsageLogEntry{Endpoint: "/x", ResponseStatus: 200, Cost: dec("100")}))
	now = fixedNow

	e := NewEngine(st, "GENSPARK_API_KEY", WithClock(func() time.Time { return fixedNow }))
	p, err := ResolvePeriod("", "", "", e.Now())
	require.NoError(t, err)

	roi, err := e.ROI(ctx, p)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(roi.Summary.TotalInvestment), roi.Summary.TotalInvestment.String())
	assert.Equal(t, int64(100), roi.Summary.ROI)

	eng, err := e.Engagement(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), eng.Summary.TotalInteractions)

	audit, err := e.Audit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, audit.TotalRequests)
	assert.Equal(t, 1, audit.ActiveKeys)

	alerts, err := e.Alerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, alerts.Status)
}

func TestWeeklyCounts(t *testing.T) {
	times := []time.Time{
		fixedNow.Add(-1 * time.Hour),
		fixedNow.Add(-2 * time.Hour),
		fixedNow.Add(-8 * 24 * time.Hour),
		fixedNow.Add(-60 * 24 * time.Hour),
		fixedNow.Add(time.Hour),
	}
	assert.Equal(t, []float64{0, 0, 1, 2}, WeeklyCounts(times, fixedNow, 4))
}

func TestLinearTrendAndProject(t *testing.T) {
	slope, intercept := LinearTrend([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, intercept, 1e-9)

	f := Project([]float64{1, 3, 5, 7}, 2)
	assert.Equal(t, []float64{9, 11}, f.Projection)
	assert.Equal(t, TrendRising, f.Direction)

	down := Project([]float64{6, 4, 2, 0}, 3)
	assert.Equal(t, []float64{0, 0, 0}, down.Projection)
	assert.Equal(t, TrendDeclining, down.Direction)

	flat := Project([]float64{2}, 1)
	assert.Equal(t, TrendStable, flat.Direction)
	assert.Equal(t, []float64{2}, flat.Projection)
}
