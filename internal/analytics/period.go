package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/HanTheDev/content-automation-api/internal/store"
)

const DefaultPeriod = "30d"

var periods = map[string]time.Duration{
	"7d":   7 * 24 * time.Hour,
	"30d":  30 * 24 * time.Hour,
	"90d":  90 * 24 * time.Hour,
	"365d": 365 * 24 * time.Hour,
}

// Period is the resolved reporting window. A zero From means unbounded.
type Period struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

func (p Period) Range() store.TimeRange {
	return store.TimeRange{From: p.From, To: p.To}
}

// months is the window length in 30-day months, at least one.
func (p Period) months() float64 {
	if p.From.IsZero() {
		return 1
	}
	m := p.To.Sub(p.From).Hours() / (24 * 30)
	if m < 1 {
		return 1
	}
	return m
}

// ResolvePeriod picks the window from explicit dates when either is set, otherwise from a
// named period. Date-only end bounds cover the whole day.
func ResolvePeriod(period, startDate, endDate string, now time.Time) (Period, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	if startDate != "" || endDate != "" {
		p := Period{Label: "custom", To: now}
		if startDate != "" {
			from, _, err := parseDate(startDate)
			if err != nil {
				return Period{}, fmt.Errorf("startDate: %w", err)
			}
			p.From = from
		}
		if endDate != "" {
			to, dateOnly, err := parseDate(endDate)
			if err != nil {
				return Period{}, fmt.Errorf("endDate: %w", err)
			}
			if dateOnly {
				to = to.Add(24*time.Hour - time.Nanosecond)
			}
			p.To = to
		}
		if !p.From.IsZero() && p.From.After(p.To) {
			return Period{}, fmt.Errorf("startDate must not be after endDate")
		}
		return p, nil
	}

	period = strings.TrimSpace(period)
	if period == "" {
		period = DefaultPeriod
	}
	if period == "all" {
		return Period{Label: "all", To: now}, nil
	}
	d, ok := periods[period]
	if !ok {
		return Period{}, fmt.Errorf("unsupported period %q (use 7d, 30d, 90d, 365d or all)", period)
	}
	return Period{Label: period, From: now.Add(-d), To: now}, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t, false, nil
}
