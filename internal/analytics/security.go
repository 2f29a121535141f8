package analytics

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/models"
)

const topEndpointLimit = 5

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Requests int    `json:"requests"`
	Errors   int    `json:"errors"`
}

type AuditReport struct {
	Period             Period          `json:"period"`
	TotalRequests      int             `json:"totalRequests"`
	SuccessfulRequests int             `json:"successfulRequests"`
	FailedRequests     int             `json:"failedRequests"`
	AuthFailures       int             `json:"authFailures"`
	RateLimited        int             `json:"rateLimited"`
	ServerErrors       int             `json:"serverErrors"`
	ErrorRate          float64         `json:"errorRate"`
	TotalTokens        int             `json:"totalTokens"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	AvgDurationMs      float64         `json:"avgDurationMs"`
	TopEndpoints       []EndpointCount `json:"topEndpoints"`
	ActiveKeys         int             `json:"activeKeys"`
	Status             string          `json:"status"`
}

type usageTotals struct {
	total, ok, failed, auth, limited, server, tokens int
	durationMs                                       int64
	cost                                             decimal.Decimal
	endpoints                                        map[string]*EndpointCount
}

func tally(usage []models.UsageLogEntry) usageTotals {
	t := usageTotals{endpoints: map[string]*EndpointCount{}}
	for _, u := range usage {
		t.total++
		t.tokens += u.TokensUsed
		t.durationMs += int64(u.DurationMs)
		t.cost = t.cost.Add(u.Cost)

		ep, ok := t.endpoints[u.Endpoint]
		if !ok {
			ep = &EndpointCount{Endpoint: u.Endpoint}
			t.endpoints[u.Endpoint] = ep
		}
		ep.Requests++

		switch {
		case u.ResponseStatus < http.StatusBadRequest:
			t.ok++
			continue
		case u.ResponseStatus == http.StatusUnauthorized:
			t.auth++
		case u.ResponseStatus == http.StatusTooManyRequests:
			t.limited++
		case u.ResponseStatus >= http.StatusInternalServerError:
			t.server++
		}
		t.failed++
		ep.Errors++
	}
	return t
}

// ComputeAudit summarizes a ledger window. Status is critical above 10% server errors and
// degraded above 2% or with more than 20 credential failures.
func ComputeAudit(usage []models.UsageLogEntry, p Period, activeKeys int) AuditReport {
	t := tally(usage)
	r := AuditReport{
		Period:             p,
		TotalRequests:      t.total,
		SuccessfulRequests: t.ok,
		FailedRequests:     t.failed,
		AuthFailures:       t.auth,
		RateLimited:        t.limited,
		ServerErrors:       t.server,
		ErrorRate:          Percent(float64(t.server), float64(t.total)),
		TotalTokens:        t.tokens,
		TotalCost:          t.cost,
		TopEndpoints:       []EndpointCount{},
		ActiveKeys:         activeKeys,
		Status:             StatusHealthy,
	}
	if t.total > 0 {
		r.AvgDurationMs = round2(float64(t.durationMs) / float64(t.total))
	}

	for _, ep := range t.endpoints {
		r.TopEndpoints = append(r.TopEndpoints, *ep)
	}
	sort.Slice(r.TopEndpoints, func(i, j int) bool {
		a, b := r.TopEndpoints[i], r.TopEndpoints[j]
		if a.Requests != b.Requests {
			return a.Requests > b.Requests
		}
		return a.Endpoint < b.Endpoint
	})
	if len(r.TopEndpoints) > topEndpointLimit {
		r.TopEndpoints = r.TopEndpoints[:topEndpointLimit]
	}

	switch {
	case r.ErrorRate > 10:
		r.Status = StatusCritical
	case r.ErrorRate > 2 || r.AuthFailures > 20:
		r.Status = StatusDegraded
	}
	return r
}

type AlertThresholds struct {
	// MinRequests guards the error-rate rule against tiny samples.
	MinRequests   int
	ErrorRate     float64
	AuthFailures  int
	RateLimited   int
	CostPerWindow decimal.Decimal
}

func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MinRequests:   10,
		ErrorRate:     5,
		AuthFailures:  10,
		RateLimited:   20,
		CostPerWindow: decimal.NewFromInt(10),
	}
}

type Alert struct {
	Rule      string  `json:"rule"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

type AlertsReport struct {
	Period        Period  `json:"period"`
	TotalRequests int     `json:"totalRequests"`
	Alerts        []Alert `json:"alerts"`
	Status        string  `json:"status"`
}

func ComputeAlerts(usage []models.UsageLogEntry, p Period, th AlertThresholds) AlertsReport {
	t := tally(usage)
	r := AlertsReport{Period: p, TotalRequests: t.total, Alerts: []Alert{}, Status: StatusHealthy}

	errRate := Percent(float64(t.server), float64(t.total))
	if t.total >= th.MinRequests && errRate > th.ErrorRate {
		r.Alerts = append(r.Alerts, Alert{
			Rule: "error-rate", Severity: SeverityCritical, Value: errRate, Threshold: th.ErrorRate,
			Message: fmt.Sprintf("%.2f%% of requests failed with a server error", errRate),
		})
	}
	if t.auth >= th.AuthFailures {
		r.Alerts = append(r.Alerts, Alert{
			Rule: "auth-failures", Severity: SeverityWarning, Value: float64(t.auth), Threshold: float64(th.AuthFailures),
			Message: fmt.Sprintf("%d requests rejected for missing or invalid API keys", t.auth),
		})
	}
	if t.limited >= th.RateLimited {
		r.Alerts = append(r.Alerts, Alert{
			Rule: "rate-limited", Severity: SeverityWarning, Value: float64(t.limited), Threshold: float64(th.RateLimited),
			Message: fmt.Sprintf("%d requests were throttled", t.limited),
		})
	}
	if th.CostPerWindow.IsPositive() && t.cost.GreaterThan(th.CostPerWindow) {
		r.Alerts = append(r.Alerts, Alert{
			Rule: "generation-cost", Severity: SeverityWarning,
			Value: t.cost.InexactFloat64(), Threshold: th.CostPerWindow.InexactFloat64(),
			Message: fmt.Sprintf("generation cost %s exceeds %s", t.cost.StringFixed(2), th.CostPerWindow.StringFixed(2)),
		})
	}

	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			r.Status = StatusCritical
			break
		}
		r.Status = StatusDegraded
	}
	return r
}
