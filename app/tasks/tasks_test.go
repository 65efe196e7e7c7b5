package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
	"github.com/hindustan-founders/hfn-saved/app/metrics"
	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

type repos struct {
	resources database.ResourceRepository
	sources   database.SourceRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return repos{
		resources: database.NewResourceRepository(db),
		sources:   database.NewSourceRepository(db),
	}
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Hiring</title></head>
<body><article>
<h1>Hiring your first engineer</h1>
<p>Your first engineering hire shapes the culture of the whole team. Look for someone who enjoys ambiguity, ships quickly, and can talk to customers without a product manager in the room.</p>
<p>Pay attention to how candidates explain tradeoffs. The best early hires describe what they would cut to ship sooner, not only what they would add.</p>
</article></body></html>`

func newFeedServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Founders Weekly</title>
<link>%[1]s</link>
<item><title>Raising a seed round</title><link>%[1]s/seed</link><guid>seed</guid>
<description>Already summarized.</description><category>funding</category></item>
<item><title>Hiring your first engineer</title><link>%[1]s/hiring</link><guid>hiring</guid></item>
</channel></rss>`, srv.URL)
		case "/hiring":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, articleHTML)
		case "/broken":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testSource(url string) *catalog.Source {
	return &catalog.Source{
		Name: "weekly",
		URL:  url,
		Tags: []string{"newsletter"},
		Settings: catalog.SourceSettings{
			Enabled:         true,
			RefreshInterval: 3600,
			MaxItems:        10,
			Timeout:         5,
			Summarize:       true,
		},
	}
}

func TestSeedCatalogTask(t *testing.T) {
	r := newRepos(t)

	file := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
resources:
  - {type: profile, id: p1, title: Ananya Rao}
  - {type: job, id: j1, title: Backend Engineer, tags: [go]}
`), 0644))

	task := NewSeedCatalogTask(catalog.NewLoader(file, ""), r.resources)
	require.NoError(t, task.Execute(context.Background()))

	results, err := r.resources.Search(context.Background(), search.Query{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, saved.TypeProfile, results[0].Type)

	count, err := r.resources.CountBySource(context.Background(), CatalogSource)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Seeding again is idempotent.
	require.NoError(t, task.Execute(context.Background()))
	count, err = r.resources.CountBySource(context.Background(), CatalogSource)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportSourceTask(t *testing.T) {
	r := newRepos(t)
	srv := newFeedServer(t, nil)
	ctx := context.Background()

	task := NewImportSourceTask(testSource(srv.URL+"/feed.xml"), srv.Client(), catalog.NewFeedParser(), r.sources, r.resources, "test-agent")
	require.NoError(t, task.Execute(ctx))

	results, err := r.resources.Search(ctx, search.Query{Filters: search.Filters{Types: []saved.ItemType{saved.TypeArticle}}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Raising a seed round", results[0].Title)
	assert.Equal(t, []string{"funding", "newsletter"}, results[0].Tags)

	source, err := r.sources.GetSource(ctx, "weekly")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, "Founders Weekly", source.Title)
	require.NotNil(t, source.NextFetchAt)
	assert.True(t, source.NextFetchAt.After(time.Now()))
}

func TestImportSourceTaskDisabled(t *testing.T) {
	r := newRepos(t)
	var hits atomic.Int32
	srv := newFeedServer(t, &hits)

	source := testSource(srv.URL + "/feed.xml")
	source.Settings.Enabled = false

	task := NewImportSourceTask(source, srv.Client(), catalog.NewFeedParser(), r.sources, r.resources, "test-agent")
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, int32(0), hits.Load())
}

func TestImportSourceTaskHTTPError(t *testing.T) {
	r := newRepos(t)
	srv := newFeedServer(t, nil)

	task := NewImportSourceTask(testSource(srv.URL+"/broken"), srv.Client(), catalog.NewFeedParser(), r.sources, r.resources, "test-agent")
	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error: 500")
}

func TestSummarizeResourcesTask(t *testing.T) {
	r := newRepos(t)
	srv := newFeedServer(t, nil)
	ctx := context.Background()
	source := testSource(srv.URL + "/feed.xml")

	importTask := NewImportSourceTask(source, srv.Client(), catalog.NewFeedParser(), r.sources, r.resources, "test-agent")
	require.NoError(t, importTask.Execute(ctx))

	missing, err := r.resources.ListMissingDescriptions(ctx, "weekly", 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	task := NewSummarizeResourcesTask(source, srv.Client(), catalog.NewSummarizer(), r.resources, "test-agent")
	require.NoError(t, task.Execute(ctx))

	missing, err = r.resources.ListMissingDescriptions(ctx, "weekly", 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	results, err := r.resources.Search(ctx, search.Query{Text: "culture"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hiring your first engineer", results[0].Title)
}

func TestSummarizeResourcesTaskDisabled(t *testing.T) {
	r := newRepos(t)
	source := testSource("http://unused.invalid/feed.xml")
	source.Settings.Summarize = false

	task := NewSummarizeResourcesTask(source, http.DefaultClient, catalog.NewSummarizer(), r.resources, "test-agent")
	assert.NoError(t, task.Execute(context.Background()))
}

type flakyTask struct {
	targeted
	failures int
	mu       sync.Mutex
	runs     int
	done     chan struct{}
}

func (f *flakyTask) Kind() Kind {
	return KindImportSource
}

func (f *flakyTask) Execute(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs++
	if f.runs <= f.failures {
		return errors.New("transient")
	}
	close(f.done)
	return nil
}

func newTestScheduler(t *testing.T, loader *catalog.Loader, r repos, m *metrics.Metrics) *Scheduler {
	t.Helper()

	s := NewScheduler(loader, r.resources, r.sources, http.DefaultClient,
		catalog.NewFeedParser(), catalog.NewSummarizer(), m,
		Options{UserAgent: "test-agent", Interval: time.Hour, WorkerCount: 2})
	return s
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	r := newRepos(t)
	s := newTestScheduler(t, catalog.NewLoader("", ""), r, metrics.New())
	s.Start()
	defer s.Stop()

	task := &flakyTask{
		targeted: targeted{target: SourceTarget(&catalog.Source{Name: "flaky"})},
		failures: 1,
		done:     make(chan struct{}),
	}
	require.NoError(t, s.EnqueueTask(task))

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected task to succeed after a retry")
	}

	task.mu.Lock()
	defer task.mu.Unlock()
	assert.Equal(t, 2, task.runs)
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	r := newRepos(t)
	s := newTestScheduler(t, catalog.NewLoader("", ""), r, metrics.New())

	task := &flakyTask{
		targeted: targeted{target: SourceTarget(&catalog.Source{Name: "broken"})},
		failures: 100,
		done:     make(chan struct{}),
	}
	a := newAttempt(task)
	a.retries = maxRetries

	// Not started, so a scheduled retry would sit in the queue.
	s.executeTask(0, a)
	assert.Equal(t, 0, len(s.taskQueue))
	assert.Equal(t, maxRetries, a.retries)
}

func TestAttemptBackoff(t *testing.T) {
	a := newAttempt(NewSeedCatalogTask(catalog.NewLoader("", ""), nil))
	require.NotEmpty(t, a.id)

	var delays []time.Duration
	for !a.exhausted() {
		delays = append(delays, a.retry())
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)

	for i := 0; i < 10; i++ {
		a.retry()
	}
	assert.Equal(t, maxBackoff, a.retry())
}

func TestTarget(t *testing.T) {
	catalogTarget := CatalogTarget()
	assert.Equal(t, CatalogSource, catalogTarget.Name())
	assert.True(t, catalogTarget.Enabled())
	assert.Equal(t, 0, catalogTarget.SummaryLimit())

	source := testSource("http://unused.invalid/feed.xml")
	target := SourceTarget(source)
	assert.Equal(t, "weekly", target.Name())
	assert.Equal(t, 5*time.Second, target.Timeout())
	assert.Equal(t, 10, target.SummaryLimit())

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), target.NextFetch(now))

	source.Settings.Summarize = false
	source.Settings.Enabled = false
	assert.Equal(t, 0, target.SummaryLimit())
	assert.False(t, target.Enabled())
}

func TestSchedulerStartupSeedsCatalogAndImports(t *testing.T) {
	r := newRepos(t)
	srv := newFeedServer(t, nil)
	dir := t.TempDir()

	catalogFile := filepath.Join(dir, "catalog.yml")
	require.NoError(t, os.WriteFile(catalogFile, []byte("resources:\n  - {type: event, id: e1, title: Founders Meetup}\n"), 0644))

	sourcesDir := filepath.Join(dir, "sources")
	require.NoError(t, os.MkdirAll(sourcesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "weekly.yml"),
		[]byte(fmt.Sprintf("url: %s/feed.xml\nsettings:\n  enabled: true\n", srv.URL)), 0644))

	loader := catalog.NewLoader(catalogFile, sourcesDir)
	require.NoError(t, loader.Run())

	s := newTestScheduler(t, loader, r, nil)
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		counts, err := r.resources.CountByType(context.Background())
		require.NoError(t, err)
		if counts[saved.TypeEvent] == 1 && counts[saved.TypeArticle] == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected seeded and imported resources, got %v", counts)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	r := newRepos(t)
	s := newTestScheduler(t, catalog.NewLoader("", ""), r, nil)
	s.Start()
	s.Stop()

	err := s.EnqueueTask(NewSeedCatalogTask(catalog.NewLoader("", ""), r.resources))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerQueueFull(t *testing.T) {
	r := newRepos(t)
	s := newTestScheduler(t, catalog.NewLoader("", ""), r, nil)

	// Not started, so nothing drains the queue.
	for i := 0; i < cap(s.taskQueue); i++ {
		require.NoError(t, s.EnqueueTask(NewSeedCatalogTask(catalog.NewLoader("", ""), r.resources)))
	}
	err := s.EnqueueTask(NewSeedCatalogTask(catalog.NewLoader("", ""), r.resources))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
}
