package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
	"github.com/hindustan-founders/hfn-saved/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	UserAgent   string
	Interval    time.Duration
	WorkerCount int
}

type Scheduler struct {
	loader       *catalog.Loader
	resourceRepo database.ResourceRepository
	sourceRepo   database.SourceRepository
	httpClient   *http.Client
	parser       *catalog.FeedParser
	summarizer   *catalog.Summarizer
	metrics      *metrics.Metrics
	userAgent    string
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan *attempt
}

func NewScheduler(loader *catalog.Loader, resourceRepo database.ResourceRepository, sourceRepo database.SourceRepository,
	httpClient *http.Client, parser *catalog.FeedParser, summarizer *catalog.Summarizer,
	m *metrics.Metrics, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	return &Scheduler{
		loader:       loader,
		resourceRepo: resourceRepo,
		sourceRepo:   sourceRepo,
		httpClient:   httpClient,
		parser:       parser,
		summarizer:   summarizer,
		metrics:      m,
		userAgent:    opts.UserAgent,
		interval:     opts.Interval,
		workerCount:  opts.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan *attempt, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task Task) error {
	return s.enqueue(newAttempt(task))
}

func (s *Scheduler) enqueue(a *attempt) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- a:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewSeedCatalogTask(s.loader, s.resourceRepo)); err != nil {
		slog.Warn("Failed to enqueue SeedCatalogTask", "error", err)
	}

	sources := s.loader.GetSources()
	if len(sources) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sources))

	for _, source := range sources {
		if err := s.EnqueueTask(NewSyncSourceTask(source, s.sourceRepo)); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", source.Name, "error", err)
			continue
		}

		if !source.Settings.Enabled {
			slog.Debug("Source disabled, skipping ImportSourceTask", "source", source.Name)
			continue
		}

		if err := s.EnqueueTask(s.newImportTask(source)); err != nil {
			slog.Warn("Failed to enqueue ImportSourceTask", "source", source.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	sources := s.loader.GetEnabledSources()
	if len(sources) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	for _, source := range sources {
		stored, err := s.sourceRepo.GetSource(s.ctx, source.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", source.Name, "error", err)
			continue
		}

		now := time.Now().UTC()
		if stored != nil && stored.NextFetchAt != nil && stored.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", source.Name, "next_fetch_at", stored.NextFetchAt)
		} else if err := s.EnqueueTask(s.newImportTask(source)); err != nil {
			slog.Warn("Failed to enqueue ImportSourceTask", "source", source.Name, "error", err)
		}

		if source.Settings.Summarize {
			task := NewSummarizeResourcesTask(source, s.httpClient, s.summarizer, s.resourceRepo, s.userAgent)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue SummarizeResourcesTask", "source", source.Name, "error", err)
			}
		}
	}
}

// EnqueueImport schedules an out-of-band import of one source, followed by a
// summary pass when the source asks for it.
func (s *Scheduler) EnqueueImport(source *catalog.Source) error {
	if err := s.EnqueueTask(s.newImportTask(source)); err != nil {
		return err
	}
	if source.Settings.Summarize {
		task := NewSummarizeResourcesTask(source, s.httpClient, s.summarizer, s.resourceRepo, s.userAgent)
		if err := s.EnqueueTask(task); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) newImportTask(source *catalog.Source) *ImportSourceTask {
	return NewImportSourceTask(source, s.httpClient, s.parser, s.sourceRepo, s.resourceRepo, s.userAgent)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case a := <-s.taskQueue:
			s.executeTask(id, a)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, a *attempt) {
	kind := string(a.task.Kind())
	target := a.task.Target().Name()
	started := time.Now()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := a.task.Execute(taskCtx)
	s.metrics.TaskCompleted(kind, err)

	if err == nil {
		slog.Info("Task completed", "type", kind, "target", target, "id", a.id, "retries", a.retries, "duration", time.Since(started))
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", kind, "target", target, "id", a.id, "retries", a.retries, "error", err)

	if a.exhausted() {
		slog.Error("Task failed after maximum retries", "type", kind, "target", target, "id", a.id, "max_retries", maxRetries, "last_error", err)
		return
	}

	delay := a.retry()
	slog.Warn("Task retry scheduled", "type", kind, "target", target, "id", a.id, "retries", a.retries, "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", kind, "id", a.id)
		case <-time.After(delay):
			if retryErr := s.enqueue(a); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", kind, "id", a.id, "retries", a.retries, "error", retryErr)
			}
		}
	}()
}
