package database

import (
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// Resource is a searchable entity in the catalog.
type Resource struct {
	Type        saved.ItemType
	ID          string
	Title       string
	Description string
	URL         string
	ImageURL    string
	Date        *time.Time
	Tags        []string
	Source      string // "catalog" for seeded demo data, otherwise the import source name
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Source is an external article feed registered from configuration.
type Source struct {
	Name          string
	URL           string
	Title         string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ResourceForSummary struct {
	Type saved.ItemType
	ID   string
	URL  string
}
