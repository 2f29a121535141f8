package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const (
	workflowStatusActive    = "active"
	scheduleStatusScheduled = "scheduled"
)

type workflowStep struct {
	Type   string         `json:"type" validate:"notblank"`
	Config map[string]any `json:"config"`
}

type createWorkflowRequest struct {
	Name    string         `json:"name" validate:"notblank"`
	Trigger *workflowStep  `json:"trigger" validate:"required"`
	Actions []workflowStep `json:"actions" validate:"required,min=1,max=20,dive"`
}

var (
	workflowTriggers = []string{"content-created", "schedule", "campaign-activated", "webhook"}
	workflowActions  = []string{"generate-content", "send-email", "publish-social", "update-campaign", "notify"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (h *Handlers) createWorkflow(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body createWorkflowRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	if !oneOf(body.Trigger.Type, workflowTriggers) {
		return nil, apperr.Validation("Unsupported trigger type %q", body.Trigger.Type).With("supportedTriggers", workflowTriggers)
	}
	actions := make([]models.WorkflowAction, 0, len(body.Actions))
	for _, a := range body.Actions {
		if !oneOf(a.Type, workflowActions) {
			return nil, apperr.Validation("Unsupported action type %q", a.Type).With("supportedActions", workflowActions)
		}
		actions = append(actions, models.WorkflowAction{Type: a.Type, Config: a.Config})
	}

	w := &models.AutomationWorkflow{
		Name:    strings.TrimSpace(body.Name),
		Trigger: models.WorkflowTrigger{Type: body.Trigger.Type, Config: body.Trigger.Config},
		Actions: actions,
		Status:  workflowStatusActive,
	}
	if err := h.store.CreateWorkflow(ctx, w); err != nil {
		return nil, storeErr(err, "Workflow")
	}
	return ok(w, "Workflow created successfully"), nil
}

type scheduleContentRequest struct {
	Platforms   []string `json:"platforms" validate:"required,min=1,dive,notblank"`
	ScheduledAt string   `json:"scheduledAt" validate:"notblank"`
	ContentID   string   `json:"contentId"`
	Content     string   `json:"content"`
}

func (h *Handlers) scheduleContent(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body scheduleContentRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(body.ScheduledAt))
	if err != nil {
		return nil, apperr.Validation("scheduledAt must be an RFC3339 timestamp")
	}
	if !at.After(h.now()) {
		return nil, apperr.Validation("scheduledAt must be in the future")
	}

	sc := &models.ScheduledContent{ScheduledAt: at.UTC(), Status: scheduleStatusScheduled}
	switch {
	case strings.TrimSpace(body.ContentID) != "":
		id, err := uuid.Parse(strings.TrimSpace(body.ContentID))
		if err != nil {
			return nil, apperr.NotFound("Content not found")
		}
		c, err := h.store.GetContent(ctx, id.String())
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Content not found")
		}
		if err != nil {
			return nil, storeErr(err, "Content")
		}
		sc.ContentID, sc.Content = c.ID, c.Content
	case strings.TrimSpace(body.Content) != "":
		sc.Content = strings.TrimSpace(body.Content)
	default:
		return nil, apperr.Validation("Missing required fields: contentId or content")
	}

	checks, err := checkPlatforms(body.Platforms, sc.Content)
	if err != nil {
		return nil, err
	}
	for _, c := range checks {
		sc.Platforms = append(sc.Platforms, c.Platform)
	}

	if err := h.store.CreateSchedule(ctx, sc); err != nil {
		return nil, storeErr(err, "Schedule")
	}
	return ok(sc, "Content scheduled successfully"), nil
}
