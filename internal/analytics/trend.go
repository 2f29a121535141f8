package analytics

import (
	"math"
	"time"
)

const week = 7 * 24 * time.Hour

const (
	TrendRising    = "rising"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// WeeklyCounts buckets times into the given number of weeks ending at now, oldest first.
// Times outside the window are ignored.
func WeeklyCounts(times []time.Time, now time.Time, weeks int) []float64 {
	counts := make([]float64, weeks)
	start := now.Add(-time.Duration(weeks) * week)
	for _, t := range times {
		if t.Before(start) || t.After(now) {
			continue
		}
		i := int(t.Sub(start) / week)
		if i >= weeks {
			i = weeks - 1
		}
		counts[i]++
	}
	return counts
}

// LinearTrend fits y = intercept + slope*x by least squares with x = 0..len(ys)-1.
func LinearTrend(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, ys[0]
	}
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	slope = (n*sxy - sx*sy) / (n*sxx - sx*sx)
	intercept = (sy - slope*sx) / n
	return slope, intercept
}

type Forecast struct {
	History    []float64 `json:"history"`
	Projection []float64 `json:"projection"`
	Slope      float64   `json:"slope"`
	Direction  string    `json:"direction"`
}

// Project extends the fitted line horizon steps past the history, floored at zero.
func Project(history []float64, horizon int) Forecast {
	slope, intercept := LinearTrend(history)
	f := Forecast{History: history, Projection: make([]float64, horizon), Slope: round2(slope), Direction: TrendStable}
	for i := 0; i < horizon; i++ {
		x := float64(len(history) + i)
		f.Projection[i] = round2(math.Max(0, intercept+slope*x))
	}
	switch {
	case slope > 0.1:
		f.Direction = TrendRising
	case slope < -0.1:
		f.Direction = TrendDeclining
	}
	return f
}
