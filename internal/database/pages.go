package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/clarityfilter/internal/model"
)

// PageRecord is the stored metadata of a fetched page.
type PageRecord struct {
	URL         string
	StatusCode  int
	ContentType string
	RawHash     string
	Size        int
	Truncated   bool
	Timestamp   time.Time
}

// UpsertPage records the metadata of page, replacing an earlier fetch of
// the same URL.
func (d *DB) UpsertPage(ctx context.Context, page *model.Page) error {
	query := `
	INSERT INTO pages (url, status_code, content_type, raw_hash, size, truncated, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		raw_hash = excluded.raw_hash,
		size = excluded.size,
		truncated = excluded.truncated,
		timestamp = excluded.timestamp
	`
	_, err := d.db.ExecContext(ctx, query,
		page.URL, page.StatusCode, page.ContentType, page.Hash, len(page.Raw), page.Truncated, now())
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

// GetPage returns the stored metadata for url, or ErrNotFound.
func (d *DB) GetPage(ctx context.Context, url string) (*PageRecord, error) {
	var (
		r         PageRecord
		timestamp string
	)
	err := d.db.QueryRowContext(ctx, `
	SELECT url, status_code, content_type, raw_hash, size, truncated, timestamp
	FROM pages WHERE url = ?`, url).Scan(
		&r.URL, &r.StatusCode, &r.ContentType, &r.RawHash, &r.Size, &r.Truncated, &timestamp)
	if err != nil {
		return nil, notFound(err, "page")
	}
	r.Timestamp = parseTimestamp(timestamp)
	return &r, nil
}

// Unchanged reports whether page has the same hash as the stored fetch of
// its URL.
func (d *DB) Unchanged(ctx context.Context, page *model.Page) (bool, error) {
	r, err := d.GetPage(ctx, page.URL)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.RawHash == page.Hash, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", what, err)
}
