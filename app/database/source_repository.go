package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SourceRepository = (*sourceRepository)(nil)

type sourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

// GetSource returns nil when the source has never been registered.
func (r *sourceRepository) GetSource(ctx context.Context, name string) (*Source, error) {
	var source Source
	var lastFetched, nextFetch sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT name, url, title, last_fetched_at, next_fetch_at, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, name).Scan(&source.Name, &source.URL, &source.Title, &lastFetched, &nextFetch, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	if source.LastFetchedAt, err = parseNullTime(lastFetched); err != nil {
		return nil, err
	}
	if source.NextFetchAt, err = parseNullTime(nextFetch); err != nil {
		return nil, err
	}
	if source.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if source.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &source, nil
}

func (r *sourceRepository) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

// UpsertSource registers a source. A changed URL resets the fetch schedule so
// the next import runs immediately.
func (r *sourceRepository) UpsertSource(ctx context.Context, name, url string) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			next_fetch_at = CASE WHEN sources.url <> excluded.url THEN NULL ELSE sources.next_fetch_at END,
			url = excluded.url,
			updated_at = excluded.updated_at
	`, name, url, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *sourceRepository) UpdateSourceMetadata(ctx context.Context, name, title string, nextFetch time.Time) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET title = ?, last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, now, formatTime(nextFetch), now, name)

	if err != nil {
		return fmt.Errorf("failed to update source metadata: %w", err)
	}

	return nil
}
