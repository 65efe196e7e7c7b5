package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

const DefaultDebounce = 300 * time.Millisecond

// Execution outcomes reported to the observer.
const (
	OutcomeOK         = "ok"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeIdle       = "idle"
)

type Option func(*Engine)

func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

func WithSavedLookup(lookup SavedLookup) Option {
	return func(e *Engine) {
		e.lookup = lookup
	}
}

func WithSearchRepository(repo SearchRepository) Option {
	return func(e *Engine) {
		e.searches = repo
	}
}

func WithTagMatchAll(matchAll bool) Option {
	return func(e *Engine) {
		e.filterer = NewFilterer(matchAll)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithOnChange registers a callback invoked after every state transition.
// It runs outside the engine lock and may be called from timer goroutines.
func WithOnChange(fn func(Snapshot)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

func WithObserver(fn func(outcome string, elapsed time.Duration)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// Engine holds one search session: the current query and filters and the
// last good results. Every new query or filter change bumps a generation
// counter; an execution only publishes its results if its generation is
// still current when the provider answers.
type Engine struct {
	provider Provider
	filterer *Filterer
	debounce time.Duration
	lookup   SavedLookup
	searches SearchRepository
	now      func() time.Time
	onChange func(Snapshot)
	observer func(string, time.Duration)

	mu         sync.Mutex
	state      State
	query      string
	filters    Filters
	results    []SearchResult
	err        error
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
}

func NewEngine(provider Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		filterer: NewFilterer(false),
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetQuery updates the query and (re)starts the debounce window.
func (e *Engine) SetQuery(text string) {
	e.mu.Lock()
	e.query = text
	gen := e.supersedeLocked()

	if e.currentQueryLocked().IsIdle() {
		e.enterIdleLocked()
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.observe(OutcomeIdle, 0)
		e.notify(snap)
		return
	}

	e.state = StateDebouncing
	if !e.closed {
		e.timer = time.AfterFunc(e.debounce, func() {
			e.fire(gen)
		})
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snap)
}

// SetFilters merges the patch and executes right away.
func (e *Engine) SetFilters(patch FilterPatch) {
	e.mu.Lock()
	e.filters = e.filters.apply(patch)
	e.mu.Unlock()

	e.executeAsync()
}

// ClearFilters drops every filter but keeps the query.
func (e *Engine) ClearFilters() {
	e.mu.Lock()
	e.filters = Filters{}
	e.mu.Unlock()

	e.executeAsync()
}

// Execute runs the current query now. A superseded call returns ErrSuperseded.
func (e *Engine) Execute(ctx context.Context) ([]SearchResult, error) {
	e.mu.Lock()
	gen := e.supersedeLocked()
	q := e.currentQueryLocked()

	if q.IsIdle() {
		e.enterIdleLocked()
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.observe(OutcomeIdle, 0)
		e.notify(snap)
		return []SearchResult{}, nil
	}

	e.state = StateExecuting
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(snap)

	return e.run(ctx, gen, q)
}

func (e *Engine) SaveSearch(ctx context.Context) (string, error) {
	e.mu.Lock()
	q := e.currentQueryLocked()
	e.mu.Unlock()

	if strings.TrimSpace(q.Text) == "" {
		return "", ErrEmptyQuery
	}
	if e.searches == nil {
		return "", ErrNoRepository
	}

	s := SavedSearch{
		ID:      uuid.NewString(),
		Query:   strings.TrimSpace(q.Text),
		Filters: q.Filters,
		SavedAt: e.now().UTC(),
	}
	if err := e.searches.SaveSearch(ctx, s); err != nil {
		return "", fmt.Errorf("failed to save search: %w", err)
	}

	slog.Debug("Search saved", "id", s.ID, "query", s.Query)
	return s.ID, nil
}

func (e *Engine) ListSavedSearches(ctx context.Context) ([]SavedSearch, error) {
	if e.searches == nil {
		return nil, ErrNoRepository
	}
	return e.searches.ListSearches(ctx)
}

func (e *Engine) DeleteSavedSearch(ctx context.Context, id string) (bool, error) {
	if e.searches == nil {
		return false, ErrNoRepository
	}
	return e.searches.DeleteSearch(ctx, id)
}

// RunSavedSearch restores a saved query and its filters and executes it.
func (e *Engine) RunSavedSearch(ctx context.Context, id string) ([]SearchResult, error) {
	if e.searches == nil {
		return nil, ErrNoRepository
	}

	s, err := e.searches.GetSearch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved search: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSearchNotFound, id)
	}

	e.mu.Lock()
	e.query = s.Query
	e.filters = s.Filters.clone()
	e.mu.Unlock()

	return e.Execute(ctx)
}

// Close stops pending debounce timers and abandons in-flight executions.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersedeLocked()
	e.closed = true
}

func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

func (e *Engine) Filters() Filters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters.clone()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Results() []SearchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneResults(e.results)
}

// Err is the error of the last failed execution, cleared by the next success.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) Annotate(results []SearchResult) []AnnotatedResult {
	return Annotate(results, e.lookup)
}

// Annotate marks which results are already in the saved items store.
func Annotate(results []SearchResult, lookup SavedLookup) []AnnotatedResult {
	out := make([]AnnotatedResult, len(results))
	for i, r := range results {
		out[i] = AnnotatedResult{SearchResult: r}
		if lookup != nil {
			out[i].IsSaved = lookup.IsSaved(r.Type, r.ID)
		}
	}
	return out
}

func ToSavedInput(r SearchResult) saved.SavedItemInput {
	return saved.SavedItemInput{
		ID:          r.ID,
		Type:        r.Type,
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		Date:        r.Date,
		Tags:        append([]string(nil), r.Tags...),
	}
}

// Run executes a single query without engine state.
func Run(ctx context.Context, provider Provider, q Query, matchAllTags bool) ([]SearchResult, error) {
	if q.IsIdle() {
		return []SearchResult{}, nil
	}

	raw, err := provider.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	return NewFilterer(matchAllTags).Run(raw, q), nil
}

func (e *Engine) executeAsync() {
	e.mu.Lock()
	gen := e.supersedeLocked()
	q := e.currentQueryLocked()

	if q.IsIdle() {
		e.enterIdleLocked()
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.observe(OutcomeIdle, 0)
		e.notify(snap)
		return
	}

	e.state = StateExecuting
	snap := e.snapshotLocked()
	closed := e.closed
	e.mu.Unlock()
	e.notify(snap)

	if closed {
		return
	}
	go e.run(context.Background(), gen, q)
}

// fire is the debounce timer callback.
func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.closed {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.state = StateExecuting
	q := e.currentQueryLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(snap)

	e.run(context.Background(), gen, q)
}

func (e *Engine) run(ctx context.Context, gen uint64, q Query) ([]SearchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.observe(OutcomeSuperseded, 0)
		return nil, ErrSuperseded
	}
	e.cancel = cancel
	e.mu.Unlock()

	start := e.now()
	raw, err := e.provider.Search(ctx, q)
	var results []SearchResult
	if err == nil {
		results = e.filterer.Run(raw, q)
	}
	elapsed := e.now().Sub(start)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		slog.Debug("Discarding superseded search results", "query", q.Text, "generation", gen)
		e.observe(OutcomeSuperseded, elapsed)
		return nil, ErrSuperseded
	}
	e.cancel = nil

	if err != nil {
		e.state = StateFailed
		e.err = fmt.Errorf("%w: %w", ErrProviderFailure, err)
		failure := e.err
		snap := e.snapshotLocked()
		e.mu.Unlock()

		slog.Warn("Search execution failed", "query", q.Text, "error", err)
		e.observe(OutcomeFailed, elapsed)
		e.notify(snap)
		return nil, failure
	}

	e.state = StateReady
	e.results = results
	e.err = nil
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.observe(OutcomeOK, elapsed)
	e.notify(snap)
	return cloneResults(results), nil
}

// supersedeLocked invalidates every pending or in-flight execution.
func (e *Engine) supersedeLocked() uint64 {
	e.generation++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	return e.generation
}

func (e *Engine) enterIdleLocked() {
	e.state = StateIdle
	e.results = nil
	e.err = nil
}

func (e *Engine) currentQueryLocked() Query {
	return Query{Text: e.query, Filters: e.filters.clone()}
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		State:      e.state,
		Query:      e.query,
		Filters:    e.filters.clone(),
		Results:    cloneResults(e.results),
		Err:        e.err,
		Generation: e.generation,
	}
}

func (e *Engine) notify(snap Snapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}

func (e *Engine) observe(outcome string, elapsed time.Duration) {
	if e.observer != nil {
		e.observer(outcome, elapsed)
	}
}
