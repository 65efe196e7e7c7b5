package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

var _ ResourceRepository = (*resourceRepository)(nil)

type resourceRepository struct {
	db *DB
}

func NewResourceRepository(db *DB) ResourceRepository {
	return &resourceRepository{db: db}
}

// Search returns candidates in insertion order. Only the type filter is
// pushed down. Text stays with the engine's filterer: LIKE folds ASCII only
// and the tags column holds escaped JSON, so a text prefilter would drop
// matches the filterer accepts.
func (r *resourceRepository) Search(ctx context.Context, q search.Query) ([]search.SearchResult, error) {
	var where []string
	var args []interface{}

	if len(q.Filters.Types) > 0 {
		placeholders := make([]string, len(q.Filters.Types))
		for i, t := range q.Filters.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "type IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
		SELECT type, id, title, description, url, image_url, date, tags
		FROM resources`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search resources: %w", err)
	}
	defer rows.Close()

	results := make([]search.SearchResult, 0)
	for rows.Next() {
		var result search.SearchResult
		var itemType, tags string
		var date sql.NullString

		err := rows.Scan(&itemType, &result.ID, &result.Title, &result.Description,
			&result.URL, &result.ImageURL, &date, &tags)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}

		result.Type = saved.ItemType(itemType)
		if result.Date, err = parseNullTime(date); err != nil {
			return nil, fmt.Errorf("resource %s/%s: %w", itemType, result.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &result.Tags); err != nil {
			return nil, fmt.Errorf("resource %s/%s: invalid tags: %w", itemType, result.ID, err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource rows: %w", err)
	}

	return results, nil
}

// UpsertResources keeps the original insertion position of existing rows and
// never replaces a filled description with an empty one.
func (r *resourceRepository) UpsertResources(ctx context.Context, resources []Resource) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resources (
			type, id, title, description, url, image_url, date, tags, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, id) DO UPDATE SET
			title = excluded.title,
			description = CASE WHEN excluded.description <> '' THEN excluded.description ELSE resources.description END,
			url = excluded.url,
			image_url = excluded.image_url,
			date = excluded.date,
			tags = excluded.tags,
			source = excluded.source,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare resource upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	count := 0
	for _, resource := range resources {
		if !resource.Type.Valid() {
			return 0, fmt.Errorf("resource %s has invalid type %q", resource.ID, resource.Type)
		}

		tags := resource.Tags
		if tags == nil {
			tags = []string{}
		}
		encodedTags, err := json.Marshal(tags)
		if err != nil {
			return 0, fmt.Errorf("failed to encode tags: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			string(resource.Type), resource.ID, resource.Title, resource.Description,
			resource.URL, resource.ImageURL, formatNullTime(resource.Date), string(encodedTags),
			resource.Source, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert resource %s/%s: %w", resource.Type, resource.ID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit resources: %w", err)
	}

	return count, nil
}

func (r *resourceRepository) CountByType(ctx context.Context) (map[saved.ItemType]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM resources GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}
	defer rows.Close()

	counts := make(map[saved.ItemType]int, len(saved.AllTypes))
	for _, t := range saved.AllTypes {
		counts[t] = 0
	}
	for rows.Next() {
		var itemType string
		var count int
		if err := rows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan resource count: %w", err)
		}
		counts[saved.ItemType(itemType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource counts: %w", err)
	}

	return counts, nil
}

func (r *resourceRepository) CountBySource(ctx context.Context, source string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources WHERE source = ?", source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count resources for source: %w", err)
	}
	return count, nil
}

func (r *resourceRepository) ListMissingDescriptions(ctx context.Context, source string, limit int) ([]ResourceForSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, id, url
		FROM resources
		WHERE source = ?
		  AND description = ''
		  AND url <> ''
		ORDER BY seq DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources for summary: %w", err)
	}
	defer rows.Close()

	var resources []ResourceForSummary
	for rows.Next() {
		var resource ResourceForSummary
		var itemType string
		if err := rows.Scan(&itemType, &resource.ID, &resource.URL); err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}
		resource.Type = saved.ItemType(itemType)
		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource rows: %w", err)
	}

	return resources, nil
}

func (r *resourceRepository) UpdateDescription(ctx context.Context, itemType saved.ItemType, id string, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET description = ?, updated_at = ?
		WHERE type = ? AND id = ?
	`, description, formatTime(time.Now()), string(itemType), id)

	if err != nil {
		return fmt.Errorf("failed to update resource description: %w", err)
	}

	return nil
}
