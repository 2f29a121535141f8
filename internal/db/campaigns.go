package db

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const campaignColumns = `id, name, campaign_type, status, target_audience, content, budget,
        start_date, end_date, metrics, created_at, updated_at`

func (db *DB) CreateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	query := `
        INSERT INTO marketing_campaigns (name, campaign_type, status, target_audience, content, budget,
                                         start_date, end_date, metrics)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at
    `

	content, metrics, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	err = db.Pool.QueryRow(ctx, query,
		c.Name,
		c.CampaignType,
		c.Status,
		c.TargetAudience,
		content,
		c.Budget,
		c.StartDate,
		c.EndDate,
		metrics,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translate(err)
}

func (db *DB) GetCampaign(ctx context.Context, id string) (*models.MarketingCampaign, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+campaignColumns+` FROM marketing_campaigns WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCampaign)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (db *DB) UpdateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	query := `
        UPDATE marketing_campaigns
        SET name = $2, campaign_type = $3, status = $4, target_audience = $5, content = $6,
            budget = $7, start_date = $8, end_date = $9, metrics = $10, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `

	content, metrics, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	err = db.Pool.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.CampaignType,
		c.Status,
		c.TargetAudience,
		content,
		c.Budget,
		c.StartDate,
		c.EndDate,
		metrics,
	).Scan(&c.UpdatedAt)
	return translate(err)
}

func (db *DB) ListCampaigns(ctx context.Context, f store.CampaignFilter) ([]models.MarketingCampaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM marketing_campaigns
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR campaign_type = $2)
          AND ($3::timestamptz IS NULL OR created_at >= $3)
          AND ($4::timestamptz IS NULL OR created_at <= $4)
        ORDER BY created_at DESC, id
    `

	rows, err := db.Pool.Query(ctx, query, f.Status, f.CampaignType, nullTime(f.Range.From), nullTime(f.Range.To))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCampaign)
}

func encodeCampaign(c *models.MarketingCampaign) (content, metrics []byte, err error) {
	if content, err = json.Marshal(c.Content); err != nil {
		return nil, nil, err
	}
	if metrics, err = json.Marshal(c.Metrics); err != nil {
		return nil, nil, err
	}
	return content, metrics, nil
}

func scanCampaign(row pgx.CollectableRow) (models.MarketingCampaign, error) {
	var (
		c                models.MarketingCampaign
		content, metrics []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.CampaignType, &c.Status, &c.TargetAudience, &content,
		&c.Budget, &c.StartDate, &c.EndDate, &metrics, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &c.Content); err != nil {
			return c, err
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
			return c, err
		}
	}
	return c, nil
}
