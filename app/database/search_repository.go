package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hindustan-founders/hfn-saved/app/search"
)

var _ SearchRepository = (*searchRepository)(nil)

type searchRepository struct {
	db *DB
}

func NewSearchRepository(db *DB) SearchRepository {
	return &searchRepository{db: db}
}

// ForSession scopes saved searches to one session.
func (r *searchRepository) ForSession(session string) search.SearchRepository {
	return &sessionSearches{db: r.db, session: session}
}

type sessionSearches struct {
	db      *DB
	session string
}

func (s *sessionSearches) SaveSearch(ctx context.Context, saved search.SavedSearch) error {
	filters, err := json.Marshal(saved.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_searches (id, session, query, filters, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			query = excluded.query,
			filters = excluded.filters,
			saved_at = excluded.saved_at
	`, saved.ID, s.session, saved.Query, string(filters), formatTime(saved.SavedAt))

	if err != nil {
		return fmt.Errorf("failed to save search: %w", err)
	}

	return nil
}

func (s *sessionSearches) GetSearch(ctx context.Context, id string) (*search.SavedSearch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, filters, saved_at
		FROM saved_searches
		WHERE session = ? AND id = ?
	`, s.session, id)

	saved, err := scanSavedSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	return &saved, nil
}

// ListSearches returns the newest searches first.
func (s *sessionSearches) ListSearches(ctx context.Context) ([]search.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, filters, saved_at
		FROM saved_searches
		WHERE session = ?
		ORDER BY saved_at DESC, rowid DESC
	`, s.session)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	searches := make([]search.SavedSearch, 0)
	for rows.Next() {
		saved, err := scanSavedSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		searches = append(searches, saved)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}

	return searches, nil
}

func (s *sessionSearches) DeleteSearch(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM saved_searches WHERE session = ? AND id = ?", s.session, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete search: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedSearch(row rowScanner) (search.SavedSearch, error) {
	var saved search.SavedSearch
	var filters, savedAt string

	if err := row.Scan(&saved.ID, &saved.Query, &filters, &savedAt); err != nil {
		return search.SavedSearch{}, err
	}

	if err := json.Unmarshal([]byte(filters), &saved.Filters); err != nil {
		return search.SavedSearch{}, fmt.Errorf("invalid filters for search %s: %w", saved.ID, err)
	}

	t, err := parseTime(savedAt)
	if err != nil {
		return search.SavedSearch{}, err
	}
	saved.SavedAt = t

	return saved, nil
}
