package db

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const contentColumns = `id, content_type, title, content, api_used, generation_cost, metadata, created_at`

func (db *DB) CreateContent(ctx context.Context, c *models.GeneratedContent) error {
	query := `
        INSERT INTO generated_content (content_type, title, content, api_used, generation_cost, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}

	err = db.Pool.QueryRow(ctx, query,
		c.ContentType,
		c.Title,
		c.Content,
		c.APIUsed,
		c.GenerationCost,
		metadata,
	).Scan(&c.ID, &c.CreatedAt)
	return translate(err)
}

func (db *DB) GetContent(ctx context.Context, id string) (*models.GeneratedContent, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+contentColumns+` FROM generated_content WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanContent)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (db *DB) ListContent(ctx context.Context, f store.ContentFilter) ([]models.GeneratedContent, error) {
	query := `SELECT ` + contentColumns + `
        FROM generated_content
        WHERE ($1 = '' OR content_type = $1)
          AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR content ILIKE '%' || $2 || '%')
          AND ($3::timestamptz IS NULL OR created_at >= $3)
          AND ($4::timestamptz IS NULL OR created_at <= $4)
        ORDER BY created_at DESC
        LIMIT NULLIF($5, 0)
    `

	rows, err := db.Pool.Query(ctx, query, f.ContentType, f.Search, nullTime(f.Range.From), nullTime(f.Range.To), f.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanContent)
}

func scanContent(row pgx.CollectableRow) (models.GeneratedContent, error) {
	var (
		c        models.GeneratedContent
		metadata []byte
	)
	if err := row.Scan(&c.ID, &c.ContentType, &c.Title, &c.Content, &c.APIUsed,
		&c.GenerationCost, &metadata, &c.CreatedAt); err != nil {
		return c, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return c, err
		}
	}
	return c, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
