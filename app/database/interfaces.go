package database

import (
	"context"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

type ResourceRepository interface {
	search.Provider

	UpsertResources(ctx context.Context, resources []Resource) (int, error)
	CountByType(ctx context.Context) (map[saved.ItemType]int, error)
	CountBySource(ctx context.Context, source string) (int, error)

	ListMissingDescriptions(ctx context.Context, source string, limit int) ([]ResourceForSummary, error)
	UpdateDescription(ctx context.Context, itemType saved.ItemType, id string, description string) error
}

type SourceRepository interface {
	GetSource(ctx context.Context, name string) (*Source, error)
	GetSourceCount(ctx context.Context) (int, error)

	UpsertSource(ctx context.Context, name, url string) error
	UpdateSourceMetadata(ctx context.Context, name, title string, nextFetch time.Time) error
}

type BlobRepository interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	PutBlob(ctx context.Context, key string, data []byte) error
	DeleteBlob(ctx context.Context, key string) error
	Persister(key string) saved.Persister
}

type SearchRepository interface {
	ForSession(session string) search.SearchRepository
}
