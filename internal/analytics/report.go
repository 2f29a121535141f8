package analytics

import (
	"fmt"
	"sort"
	"time"
)

const (
	ReportComprehensive = "comprehensive"
	ReportROI           = "roi"
	ReportEngagement    = "engagement"
	ReportConversion    = "conversion"
)

// DefaultConversionThreshold is the campaign-type conversion rate, in percent, above which
// more investment is recommended.
const DefaultConversionThreshold = 5.0

const lowEngagementRate = 1.0

var reportTypes = map[string]bool{
	ReportComprehensive: true,
	ReportROI:           true,
	ReportEngagement:    true,
	ReportConversion:    true,
}

// ValidReportType reports whether t is a known report type. Empty means comprehensive.
func ValidReportType(t string) bool {
	return t == "" || reportTypes[t]
}

type ReportRequest struct {
	ReportType          string
	Period              Period
	ConversionThreshold float64
}

const (
	SeverityCritical    = "critical"
	SeverityWarning     = "warning"
	SeverityOpportunity = "opportunity"
	SeverityInfo        = "info"
)

var severityOrder = map[string]int{
	SeverityCritical:    0,
	SeverityWarning:     1,
	SeverityOpportunity: 2,
	SeverityInfo:        3,
}

type Insight struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type CustomReport struct {
	ReportType  string            `json:"reportType"`
	Period      Period            `json:"period"`
	GeneratedAt time.Time         `json:"generatedAt"`
	ROI         *ROIReport        `json:"roi,omitempty"`
	Engagement  *EngagementReport `json:"engagement,omitempty"`
	Conversion  *ConversionReport `json:"conversion,omitempty"`
	Insights    []Insight         `json:"insights"`
}

// ComputeReport combines the requested sections and applies the insight rules. Rules always
// see all three reports, whatever sections are returned.
func ComputeReport(ds Dataset, req ReportRequest, now time.Time) CustomReport {
	if req.ReportType == "" {
		req.ReportType = ReportComprehensive
	}
	if req.ConversionThreshold <= 0 {
		req.ConversionThreshold = DefaultConversionThreshold
	}

	roi := ComputeROI(ds)
	eng := ComputeEngagement(ds)
	conv := ComputeConversion(ds)

	r := CustomReport{
		ReportType:  req.ReportType,
		Period:      ds.Period,
		GeneratedAt: now,
		Insights:    insights(roi, eng, conv, req.ConversionThreshold),
	}
	switch req.ReportType {
	case ReportROI:
		r.ROI = &roi
	case ReportEngagement:
		r.Engagement = &eng
	case ReportConversion:
		r.Conversion = &conv
	default:
		r.ROI, r.Engagement, r.Conversion = &roi, &eng, &conv
	}
	return r
}

func insights(roi ROIReport, eng EngagementReport, conv ConversionReport, threshold float64) []Insight {
	out := []Insight{}
	add := func(rule, severity, format string, args ...any) {
		out = append(out, Insight{Rule: rule, Severity: severity, Message: fmt.Sprintf(format, args...)})
	}

	s := roi.Summary
	switch {
	case s.TotalInvestment.IsPositive() && s.ROI < 0:
		add("negative-roi", SeverityWarning,
			"Investment of %s exceeds revenue of %s (ROI %d%%); review spend on low-performing campaigns",
			s.TotalInvestment.StringFixed(2), s.TotalRevenue.StringFixed(2), s.ROI)
	case s.TotalInvestment.IsPositive() && s.ROI >= 100:
		add("strong-roi", SeverityOpportunity, "ROI of %d%% supports scaling the current mix", s.ROI)
	}

	for _, t := range conv.ByCampaignType {
		if t.Clicks == 0 {
			continue
		}
		if t.ConversionRate > threshold {
			add("high-conversion", SeverityOpportunity,
				"Content type %s converts at %.2f%% (threshold %.2f%%); recommend increasing investment there",
				t.CampaignType, t.ConversionRate, threshold)
		} else if t.ConversionRate < threshold/2 {
			add("low-conversion", SeverityWarning,
				"Content type %s converts at %.2f%%, below half the %.2f%% threshold; review its offer and call to action",
				t.CampaignType, t.ConversionRate, threshold)
		}
	}

	channels := []struct {
		name string
		c    ChannelEngagement
	}{
		{ChannelBlog, eng.Channels.Blog},
		{ChannelEmail, eng.Channels.Email},
		{ChannelSocial, eng.Channels.Social},
		{ChannelLandingPages, eng.Channels.LandingPages},
		{ChannelOther, eng.Channels.Other},
	}
	for _, ch := range channels {
		if ch.c.Impressions > 0 && ch.c.EngagementRate < lowEngagementRate {
			add("low-engagement", SeverityWarning,
				"Channel %s engages %.2f%% of impressions; test new formats or targeting", ch.name, ch.c.EngagementRate)
		}
	}

	for _, f := range conv.Funnels {
		if stage, rate, ok := biggestDrop(f); ok {
			add("funnel-drop-off", SeverityInfo,
				"Funnel %s loses the most at stage %s (%.2f%% carried over)", f.Name, stage, rate)
		}
	}

	if eng.Summary.Impressions == 0 && conv.Summary.TotalClicks == 0 {
		add("no-metrics", SeverityInfo,
			"No campaign metrics in this period; import analytics to enable engagement and conversion insights")
	}

	sort.SliceStable(out, func(i, j int) bool {
		return severityOrder[out[i].Severity] < severityOrder[out[j].Severity]
	})
	return out
}

func biggestDrop(f Funnel) (string, float64, bool) {
	if len(f.Stages) < 2 {
		return "", 0, false
	}
	idx := 1
	for i := 2; i < len(f.Stages); i++ {
		if f.Stages[i].ConversionRate < f.Stages[idx].ConversionRate {
			idx = i
		}
	}
	return f.Stages[idx].Stage, f.Stages[idx].ConversionRate, true
}
