package handlers

import (
	"context"

	"github.com/HanTheDev/content-automation-api/internal/analytics"
	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
)

// queryPeriod resolves the reporting window from ?period=&startDate=&endDate=.
func (h *Handlers) queryPeriod(req *dispatch.Request) (analytics.Period, error) {
	p, err := analytics.ResolvePeriod(req.Query.Get("period"), req.Query.Get("startDate"), req.Query.Get("endDate"), h.analytics.Now())
	if err != nil {
		return analytics.Period{}, apperr.Validation("%s", err.Error())
	}
	return p, nil
}

func (h *Handlers) roi(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	p, err := h.queryPeriod(req)
	if err != nil {
		return nil, err
	}
	r, err := h.analytics.ROI(ctx, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, ""), nil
}

func (h *Handlers) engagement(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	p, err := h.queryPeriod(req)
	if err != nil {
		return nil, err
	}
	r, err := h.analytics.Engagement(ctx, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, ""), nil
}

func (h *Handlers) conversion(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	p, err := h.queryPeriod(req)
	if err != nil {
		return nil, err
	}
	r, err := h.analytics.Conversion(ctx, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, ""), nil
}

type reportRequest struct {
	ReportType          string   `json:"reportType"`
	Period              string   `json:"period"`
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate"`
	ConversionThreshold *float64 `json:"conversionThreshold" validate:"omitempty,gte=0,lte=100"`
}

func (h *Handlers) report(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body reportRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	if !analytics.ValidReportType(body.ReportType) {
		return nil, apperr.Validation("reportType must be one of comprehensive, roi, engagement, conversion")
	}
	p, err := analytics.ResolvePeriod(body.Period, body.StartDate, body.EndDate, h.analytics.Now())
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	threshold := analytics.DefaultConversionThreshold
	if body.ConversionThreshold != nil {
		threshold = *body.ConversionThreshold
	}
	r, err := h.analytics.Report(ctx, analytics.ReportRequest{
		ReportType:          body.ReportType,
		Period:              p,
		ConversionThreshold: threshold,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, "Report generated successfully"), nil
}
