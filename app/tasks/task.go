package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
)

type Kind string

const (
	KindSeedCatalog        Kind = "seed_catalog"
	KindSyncSource         Kind = "sync_source"
	KindImportSource       Kind = "import_source"
	KindSummarizeResources Kind = "summarize_resources"
)

// CatalogSource is the source column of resources seeded from the catalog file.
const CatalogSource = "catalog"

const (
	maxRetries = 3
	maxBackoff = 30 * time.Second
)

// Task is a unit of background work. Retries and timing belong to the scheduler.
type Task interface {
	Execute(ctx context.Context) error
	Kind() Kind
	Target() Target
}

// Target is what a task works on: one article source, or the catalog file
// when Source is nil.
type Target struct {
	Source *catalog.Source
}

func CatalogTarget() Target {
	return Target{}
}

func SourceTarget(source *catalog.Source) Target {
	return Target{Source: source}
}

func (t Target) Name() string {
	if t.Source == nil {
		return CatalogSource
	}
	return t.Source.Name
}

func (t Target) Enabled() bool {
	return t.Source == nil || t.Source.Settings.Enabled
}

// Timeout bounds one HTTP fetch made for the target.
func (t Target) Timeout() time.Duration {
	if t.Source == nil {
		return 0
	}
	return seconds(t.Source.Settings.Timeout)
}

// NextFetch is when a source fetched at now becomes due again.
func (t Target) NextFetch(now time.Time) time.Time {
	if t.Source == nil {
		return now
	}
	return now.Add(seconds(t.Source.Settings.RefreshInterval))
}

// SummaryLimit is how many articles one summary pass may fetch. Zero means
// summaries are off for the target.
func (t Target) SummaryLimit() int {
	if t.Source == nil || !t.Source.Settings.Summarize {
		return 0
	}
	return max(t.Source.Settings.MaxItems, 1)
}

// targeted gives a task its Target accessor.
type targeted struct {
	target Target
}

func (t targeted) Target() Target {
	return t.target
}

// attempt is a queued task with its retry count. The id stays the same
// across retries so log lines of one task can be joined.
type attempt struct {
	id      string
	task    Task
	retries int
}

func newAttempt(task Task) *attempt {
	return &attempt{id: uuid.NewString(), task: task}
}

func (a *attempt) exhausted() bool {
	return a.retries >= maxRetries
}

// retry records another try and returns how long to wait before it: one
// second, doubling each time, capped at maxBackoff.
func (a *attempt) retry() time.Duration {
	a.retries++
	delay := time.Second << (a.retries - 1)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}
