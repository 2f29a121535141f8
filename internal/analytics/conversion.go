package analytics

import (
	"sort"

	"github.com/HanTheDev/content-automation-api/internal/models"
)

type FunnelStage struct {
	Stage          string  `json:"stage"`
	Count          int64   `json:"count"`
	ConversionRate float64 `json:"conversionRate"`
}

type Funnel struct {
	CampaignID string        `json:"campaignId,omitempty"`
	Name       string        `json:"name"`
	Stages     []FunnelStage `json:"stages"`
	Overall    float64       `json:"overall"`
}

// BuildFunnel computes stage-over-stage conversion. The first stage is 100%, stage i is
// count[i]/count[i-1]*100 (0 after an empty stage), and Overall is the product of the stage
// rates divided by 100^(stages-1).
func BuildFunnel(campaignID, name string, counts []models.StageCount) Funnel {
	f := Funnel{CampaignID: campaignID, Name: name, Stages: make([]FunnelStage, 0, len(counts))}
	if len(counts) == 0 {
		return f
	}

	product := 1.0
	for i, c := range counts {
		rate := 100.0
		if i > 0 {
			rate = Percent(float64(c.Count), float64(counts[i-1].Count))
		}
		product *= rate / 100
		f.Stages = append(f.Stages, FunnelStage{Stage: c.Stage, Count: c.Count, ConversionRate: rate})
	}
	f.Overall = round2(product * 100)
	return f
}

type ConversionPerformer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CampaignType   string  `json:"campaignType"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
}

type TypeConversion struct {
	CampaignType   string  `json:"campaignType"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
}

type ConversionSummary struct {
	TotalClicks      int64   `json:"totalClicks"`
	TotalConversions int64   `json:"totalConversions"`
	ConversionRate   float64 `json:"conversionRate"`
}

type ConversionReport struct {
	Period          Period               `json:"period"`
	Summary         ConversionSummary    `json:"summary"`
	Funnels         []Funnel             `json:"funnels"`
	ByCampaignType  []TypeConversion     `json:"byCampaignType"`
	BestPerforming  *ConversionPerformer `json:"bestPerforming"`
	WorstPerforming *ConversionPerformer `json:"worstPerforming"`
}

// ComputeConversion builds one funnel per campaign with imported stage counts and an
// aggregate impressions → clicks → conversions funnel when any impressions exist.
func ComputeConversion(ds Dataset) ConversionReport {
	r := ConversionReport{Period: ds.Period, Funnels: []Funnel{}, ByCampaignType: []TypeConversion{}}

	var impressions int64
	byType := map[string]*TypeConversion{}
	var performers []ConversionPerformer

	for _, c := range ds.Campaigns {
		m := c.Metrics
		impressions += m.Impressions
		r.Summary.TotalClicks += m.Clicks
		r.Summary.TotalConversions += m.Conversions

		t, ok := byType[c.CampaignType]
		if !ok {
			t = &TypeConversion{CampaignType: c.CampaignType}
			byType[c.CampaignType] = t
		}
		t.Clicks += m.Clicks
		t.Conversions += m.Conversions

		if len(m.StageCounts) > 0 {
			r.Funnels = append(r.Funnels, BuildFunnel(c.ID, c.Name, m.StageCounts))
		}
		if m.Clicks > 0 {
			performers = append(performers, ConversionPerformer{
				ID:             c.ID,
				Name:           c.Name,
				CampaignType:   c.CampaignType,
				Clicks:         m.Clicks,
				Conversions:    m.Conversions,
				ConversionRate: Percent(float64(m.Conversions), float64(m.Clicks)),
			})
		}
	}

	r.Summary.ConversionRate = Percent(float64(r.Summary.TotalConversions), float64(r.Summary.TotalClicks))

	if impressions > 0 {
		r.Funnels = append(r.Funnels, BuildFunnel("", "all-campaigns", []models.StageCount{
			{Stage: "impressions", Count: impressions},
			{Stage: "clicks", Count: r.Summary.TotalClicks},
			{Stage: "conversions", Count: r.Summary.TotalConversions},
		}))
	}

	for _, k := range sortedKeys(byType) {
		t := byType[k]
		t.ConversionRate = Percent(float64(t.Conversions), float64(t.Clicks))
		r.ByCampaignType = append(r.ByCampaignType, *t)
	}

	if len(performers) > 0 {
		sort.SliceStable(performers, func(i, j int) bool {
			a, b := performers[i], performers[j]
			if a.ConversionRate != b.ConversionRate {
				return a.ConversionRate > b.ConversionRate
			}
			if a.Conversions != b.Conversions {
				return a.Conversions > b.Conversions
			}
			return a.ID < b.ID
		})
		best := performers[0]
		worst := performers[len(performers)-1]
		r.BestPerforming = &best
		r.WorstPerforming = &worst
	}
	return r
}
