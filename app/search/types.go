package search

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

type SearchResult struct {
	ID          string         `json:"id"`
	Type        saved.ItemType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Date        *time.Time     `json:"date,omitempty"`
	Tags        []string       `json:"tags"`
}

// AnnotatedResult carries the derived saved state for UI affordances.
type AnnotatedResult struct {
	SearchResult
	IsSaved bool `json:"isSaved"`
}

// DateRange bounds are inclusive; a nil bound is open.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

type Filters struct {
	Types []saved.ItemType `json:"type,omitempty"`
	Tags  []string         `json:"tags,omitempty"`
	Date  *DateRange       `json:"date,omitempty"`
}

func (f Filters) IsEmpty() bool {
	return len(f.Types) == 0 && len(f.Tags) == 0 && (f.Date == nil || f.Date.IsZero())
}

func (f Filters) clone() Filters {
	c := Filters{
		Types: slices.Clone(f.Types),
		Tags:  slices.Clone(f.Tags),
	}
	if f.Date != nil {
		d := *f.Date
		c.Date = &d
	}
	return c
}

// FilterPatch is merged into the current filters field by field. A nil field
// leaves the current value alone; Types and Tags replace the whole set. A
// zero DateRange clears the date constraint.
type FilterPatch struct {
	Types *[]saved.ItemType
	Tags  *[]string
	Date  *DateRange
}

func (f Filters) apply(patch FilterPatch) Filters {
	merged := f.clone()
	if patch.Types != nil {
		merged.Types = slices.Clone(*patch.Types)
	}
	if patch.Tags != nil {
		merged.Tags = slices.Clone(*patch.Tags)
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			merged.Date = nil
		} else {
			d := *patch.Date
			merged.Date = &d
		}
	}
	return merged
}

// Query is what the backing provider receives.
type Query struct {
	Text    string
	Filters Filters
}

// IsIdle reports whether there is nothing to search for.
func (q Query) IsIdle() bool {
	return strings.TrimSpace(q.Text) == "" && q.Filters.IsEmpty()
}

// Provider is the backing resource set. It may pre-filter; the engine
// re-applies every predicate on what comes back.
type Provider interface {
	Search(ctx context.Context, q Query) ([]SearchResult, error)
}

type ProviderFunc func(ctx context.Context, q Query) ([]SearchResult, error)

func (f ProviderFunc) Search(ctx context.Context, q Query) ([]SearchResult, error) {
	return f(ctx, q)
}

type SavedSearch struct {
	ID      string    `json:"id"`
	Query   string    `json:"query"`
	Filters Filters   `json:"filters"`
	SavedAt time.Time `json:"savedAt"`
}

type SearchRepository interface {
	SaveSearch(ctx context.Context, s SavedSearch) error
	// GetSearch returns nil when the id is unknown.
	GetSearch(ctx context.Context, id string) (*SavedSearch, error)
	ListSearches(ctx context.Context) ([]SavedSearch, error)
	DeleteSearch(ctx context.Context, id string) (bool, error)
}

type SavedLookup interface {
	IsSaved(itemType saved.ItemType, id string) bool
}

var _ SavedLookup = (*saved.Store)(nil)

type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateExecuting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateExecuting:
		return "executing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	State      State
	Query      string
	Filters    Filters
	Results    []SearchResult
	Err        error
	Generation uint64
}

func cloneResults(results []SearchResult) []SearchResult {
	if results == nil {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = r
		out[i].Tags = slices.Clone(r.Tags)
	}
	return out
}
