package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"narrativelens/internal/model"
)

type HeadlineRepository struct {
	db *sql.DB
}

func NewHeadlineRepository(db *sql.DB) *HeadlineRepository {
	return &HeadlineRepository{db: db}
}

// Save stores the headline unless its URL is already known. It reports
// whether a row was inserted.
func (r *HeadlineRepository) Save(ctx context.Context, h *model.Headline) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO market_headlines(headline, detail, url, source, publisher, symbols, published_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, h.Headline, h.Detail, h.URL, h.Source, h.Publisher, pq.Array(nonNil(h.Symbols)), nullTime(h.PublishedAt)).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	h.ID = id
	return true, nil
}

// Recent returns the newest headlines by publication time.
func (r *HeadlineRepository) Recent(ctx context.Context, limit int) ([]model.Headline, error) {
	return r.Feed(ctx, limit, 0)
}

func (r *HeadlineRepository) Feed(ctx context.Context, limit, offset int) ([]model.Headline, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, headline, detail, url, source, publisher, symbols, COALESCE(published_at, fetched_at), fetched_at
		FROM market_headlines
		ORDER BY COALESCE(published_at, fetched_at) DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	headlines := []model.Headline{}
	for rows.Next() {
		var h model.Headline
		var symbols pq.StringArray
		err := rows.Scan(&h.ID, &h.Headline, &h.Detail, &h.URL, &h.Source, &h.Publisher, &symbols, &h.PublishedAt, &h.FetchedAt)
		if err != nil {
			return nil, err
		}
		h.Symbols = nonNil(symbols)
		headlines = append(headlines, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return headlines, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *HeadlineRepository) Total(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_headlines`).Scan(&total)
	return total, err
}
