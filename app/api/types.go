package api

import (
	"context"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
	"github.com/hindustan-founders/hfn-saved/app/feed"
	"github.com/hindustan-founders/hfn-saved/app/metrics"
	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
	"github.com/hindustan-founders/hfn-saved/app/tasks"
)

type StoreRegistry interface {
	Get(ctx context.Context, session string) (*saved.Store, error)
	Count() int
}

var _ StoreRegistry = (*saved.Registry)(nil)

type Options struct {
	APIAccessKey string
	RateLimit    float64
	RateBurst    int
	// TrustedProxies may set X-Forwarded-For. Empty means the socket address is the client.
	TrustedProxies []string
	Debounce       time.Duration
	TagMatchAll    bool
	SessionTTL     time.Duration
	BaseURL        string
	Version        string
}

type Handler struct {
	stores       StoreRegistry
	engines      *engineSessions
	resourceRepo database.ResourceRepository
	searchRepo   database.SearchRepository
	sourceRepo   database.SourceRepository
	loader       *catalog.Loader
	generator    *feed.Generator
	scheduler    tasks.TaskSchedulerInterface
	metrics      *metrics.Metrics
	matchAllTags bool
	baseURL      string
	version      string
}

// savedItemView adds the collapsed tag list shown on saved item cards.
type savedItemView struct {
	saved.SavedItem
	VisibleTags []string `json:"visibleTags"`
	MoreTags    int      `json:"moreTags"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type filterPatchRequest struct {
	Type *[]saved.ItemType `json:"type"`
	Tags *[]string         `json:"tags"`
	Date *search.DateRange `json:"date"`
}

type engineView struct {
	State      string                   `json:"state"`
	Query      string                   `json:"query"`
	Filters    search.Filters           `json:"filters"`
	Results    []search.AnnotatedResult `json:"results"`
	Counts     map[saved.ItemType]int   `json:"counts"`
	Error      string                   `json:"error,omitempty"`
	Generation uint64                   `json:"generation"`
}
