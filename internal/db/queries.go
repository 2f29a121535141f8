package db

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

func (db *DB) FindActiveKeys(ctx context.Context, keyName, keyValue string) ([]models.APIKey, error) {
	query := `
        SELECT id, key_name, key_value, is_active, created_at
        FROM api_keys
        WHERE key_name = $1 AND key_value = $2 AND is_active = TRUE
        LIMIT 2
    `

	rows, err := db.Pool.Query(ctx, query, keyName, keyValue)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAPIKey)
}

func (db *DB) CountActiveKeys(ctx context.Context, keyName string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE key_name = $1 AND is_active = TRUE`, keyName,
	).Scan(&n)
	return n, err
}

func (db *DB) CreateKey(ctx context.Context, key *models.APIKey) error {
	query := `
        INSERT INTO api_keys (key_name, key_value, is_active)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `

	err := db.Pool.QueryRow(ctx, query, key.KeyName, key.KeyValue, key.IsActive).
		Scan(&key.ID, &key.CreatedAt)
	return translate(err)
}

func (db *DB) SetKeyActive(ctx context.Context, id string, active bool) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE api_keys SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DB) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, key_name, key_value, is_active, created_at FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAPIKey)
}

func scanAPIKey(row pgx.CollectableRow) (models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.KeyName, &k.KeyValue, &k.IsActive, &k.CreatedAt)
	return k, err
}

func (db *DB) RecordUsage(ctx context.Context, entry *models.UsageLogEntry) error {
	query := `
        INSERT INTO api_usage_logs (api_name, endpoint, method, request_id, request_data,
                                    response_status, tokens_used, cost, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `

	requestData, err := json.Marshal(entry.RequestData)
	if err != nil {
		return err
	}

	return db.Pool.QueryRow(ctx, query,
		entry.APIName,
		entry.Endpoint,
		entry.Method,
		entry.RequestID,
		requestData,
		entry.ResponseStatus,
		entry.TokensUsed,
		entry.Cost,
		entry.DurationMs,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (db *DB) ListUsage(ctx context.Context, r store.TimeRange) ([]models.UsageLogEntry, error) {
	query := `
        SELECT id, api_name, endpoint, method, request_id, request_data,
               response_status, tokens_used, cost, duration_ms, created_at
        FROM api_usage_logs
        WHERE ($1::timestamptz IS NULL OR created_at >= $1)
          AND ($2::timestamptz IS NULL OR created_at <= $2)
        ORDER BY created_at
    `

	rows, err := db.Pool.Query(ctx, query, nullTime(r.From), nullTime(r.To))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UsageLogEntry, error) {
		var (
			e   models.UsageLogEntry
			raw []byte
		)
		if err := row.Scan(&e.ID, &e.APIName, &e.Endpoint, &e.Method, &e.RequestID, &raw,
			&e.ResponseStatus, &e.TokensUsed, &e.Cost, &e.DurationMs, &e.CreatedAt); err != nil {
			return e, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.RequestData); err != nil {
				return e, err
			}
		}
		return e, nil
	})
}
