package db

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/HanTheDev/content-automation-api/internal/models"
)

func (db *DB) CreateWorkflow(ctx context.Context, w *models.AutomationWorkflow) error {
	query := `
        INSERT INTO automation_workflows (name, trigger, actions, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `

	trigger, err := json.Marshal(w.Trigger)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(w.Actions)
	if err != nil {
		return err
	}

	err = db.Pool.QueryRow(ctx, query, w.Name, trigger, actions, w.Status).Scan(&w.ID, &w.CreatedAt)
	return translate(err)
}

func (db *DB) CreateSchedule(ctx context.Context, s *models.ScheduledContent) error {
	query := `
        INSERT INTO scheduled_content (content_id, content, platforms, scheduled_at, status)
        VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5)
        RETURNING id, created_at
    `

	err := db.Pool.QueryRow(ctx, query, s.ContentID, s.Content, s.Platforms, s.ScheduledAt, s.Status).
		Scan(&s.ID, &s.CreatedAt)
	return translate(err)
}
