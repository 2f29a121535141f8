package analytics

import (
	"github.com/shopspring/decimal"
)

type ROISummary struct {
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	ROI             int64           `json:"roi"`
	GenerationCost  decimal.Decimal `json:"generationCost"`
	CampaignSpend   decimal.Decimal `json:"campaignSpend"`
	// PaybackPeriodMonths is null while there is no revenue.
	PaybackPeriodMonths *float64 `json:"paybackPeriodMonths"`
}

type ROIBreakdown struct {
	Key        string          `json:"key"`
	Items      int             `json:"items"`
	Investment decimal.Decimal `json:"investment"`
	Revenue    decimal.Decimal `json:"revenue"`
	ROI        int64           `json:"roi"`
}

type ROIReport struct {
	Period         Period         `json:"period"`
	Summary        ROISummary     `json:"summary"`
	ByContentType  []ROIBreakdown `json:"byContentType"`
	ByCampaignType []ROIBreakdown `json:"byCampaignType"`
	ByMonth        []ROIBreakdown `json:"byMonth"`
}

// ComputeROI treats ledger cost plus campaign spend as investment and campaign revenue as
// return. ByContentType only attributes the generation cost recorded on stored content, a subset
// of the ledger cost in the summary, and never has revenue. ByCampaignType sums campaign spend
// and revenue, so its investments add up to Summary.CampaignSpend.
func ComputeROI(ds Dataset) ROIReport {
	var genCost, spend, revenue decimal.Decimal
	byContent := map[string]*ROIBreakdown{}
	byCampaign := map[string]*ROIBreakdown{}
	byMonth := map[string]*ROIBreakdown{}

	bucket := func(m map[string]*ROIBreakdown, key string) *ROIBreakdown {
		b, ok := m[key]
		if !ok {
			b = &ROIBreakdown{Key: key}
			m[key] = b
		}
		return b
	}

	for _, u := range ds.Usage {
		genCost = genCost.Add(u.Cost)
		b := bucket(byMonth, u.CreatedAt.UTC().Format("2006-01"))
		b.Investment = b.Investment.Add(u.Cost)
	}
	for _, c := range ds.Contents {
		b := bucket(byContent, c.ContentType)
		b.Items++
		b.Investment = b.Investment.Add(c.GenerationCost)
	}
	for _, c := range ds.Campaigns {
		spend = spend.Add(c.Metrics.Spend)
		revenue = revenue.Add(c.Metrics.Revenue)

		t := bucket(byCampaign, c.CampaignType)
		t.Items++
		t.Investment = t.Investment.Add(c.Metrics.Spend)
		t.Revenue = t.Revenue.Add(c.Metrics.Revenue)

		m := bucket(byMonth, c.CreatedAt.UTC().Format("2006-01"))
		m.Items++
		m.Investment = m.Investment.Add(c.Metrics.Spend)
		m.Revenue = m.Revenue.Add(c.Metrics.Revenue)
	}

	investment := genCost.Add(spend)
	summary := ROISummary{
		TotalInvestment: investment,
		TotalRevenue:    revenue,
		NetProfit:       revenue.Sub(investment),
		ROI:             roiPercent(revenue, investment),
		GenerationCost:  genCost,
		CampaignSpend:   spend,
	}
	if revenue.IsPositive() {
		monthly := revenue.Div(decimal.NewFromFloat(ds.Period.months()))
		months := round2(investment.Div(monthly).InexactFloat64())
		summary.PaybackPeriodMonths = &months
	}

	return ROIReport{
		Period:         ds.Period,
		Summary:        summary,
		ByContentType:  flatten(byContent),
		ByCampaignType: flatten(byCampaign),
		ByMonth:        flatten(byMonth),
	}
}

func flatten(m map[string]*ROIBreakdown) []ROIBreakdown {
	out := make([]ROIBreakdown, 0, len(m))
	for _, k := range sortedKeys(m) {
		b := m[k]
		b.ROI = roiPercent(b.Revenue, b.Investment)
		out = append(out, *b)
	}
	return out
}
