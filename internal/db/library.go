package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const ebookColumns = `id, title, author, description, price, currency, category, cover_image_url,
        file_url, pages, featured, status, language, created_at, updated_at`

func (db *DB) CreateEbook(ctx context.Context, b *models.Ebook) error {
	query := `
        INSERT INTO ebooks (title, author, description, price, currency, category, cover_image_url,
                            file_url, pages, featured, status, language)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at, updated_at
    `

	err := db.Pool.QueryRow(ctx, query,
		b.Title,
		b.Author,
		b.Description,
		b.Price,
		b.Currency,
		b.Category,
		b.CoverImageURL,
		b.FileURL,
		b.Pages,
		b.Featured,
		b.Status,
		b.Language,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

func (db *DB) GetEbook(ctx context.Context, id string) (*models.Ebook, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+ebookColumns+` FROM ebooks WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanEbook)
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (db *DB) UpdateEbook(ctx context.Context, b *models.Ebook) error {
	query := `
        UPDATE ebooks
        SET title = $2, author = $3, description = $4, price = $5, currency = $6, category = $7,
            cover_image_url = $8, file_url = $9, pages = $10, featured = $11, status = $12,
            language = $13, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `

	err := db.Pool.QueryRow(ctx, query,
		b.ID,
		b.Title,
		b.Author,
		b.Description,
		b.Price,
		b.Currency,
		b.Category,
		b.CoverImageURL,
		b.FileURL,
		b.Pages,
		b.Featured,
		b.Status,
		b.Language,
	).Scan(&b.UpdatedAt)
	return translate(err)
}

func (db *DB) ListEbooks(ctx context.Context, f store.EbookFilter) ([]models.Ebook, error) {
	query := `SELECT ` + ebookColumns + `
        FROM ebooks
        WHERE ($1 = '' OR category ILIKE $1)
          AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR author ILIKE '%' || $2 || '%')
        ORDER BY created_at DESC, id
    `

	rows, err := db.Pool.Query(ctx, query, f.Category, f.Search)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEbook)
}

func scanEbook(row pgx.CollectableRow) (models.Ebook, error) {
	var b models.Ebook
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Currency, &b.Category,
		&b.CoverImageURL, &b.FileURL, &b.Pages, &b.Featured, &b.Status, &b.Language,
		&b.CreatedAt, &b.UpdatedAt)
	return b, err
}
