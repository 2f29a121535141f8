package handlers

import (
	"context"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
)

func (h *Handlers) securityAudit(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	r, err := h.analytics.Audit(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, ""), nil
}

func (h *Handlers) monitoringAlerts(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	r, err := h.analytics.Alerts(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ok(r, ""), nil
}
