package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
)

// ImportSourceTask fetches an article feed and upserts its entries as
// searchable article resources.
type ImportSourceTask struct {
	targeted
	httpClient   *http.Client
	parser       *catalog.FeedParser
	sourceRepo   database.SourceRepository
	resourceRepo database.ResourceRepository
	userAgent    string
}

func NewImportSourceTask(source *catalog.Source, httpClient *http.Client, parser *catalog.FeedParser, sourceRepo database.SourceRepository, resourceRepo database.ResourceRepository, userAgent string) *ImportSourceTask {
	return &ImportSourceTask{
		targeted:     targeted{target: SourceTarget(source)},
		httpClient:   httpClient,
		parser:       parser,
		sourceRepo:   sourceRepo,
		resourceRepo: resourceRepo,
		userAgent:    userAgent,
	}
}

func (t *ImportSourceTask) Kind() Kind {
	return KindImportSource
}

func (t *ImportSourceTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := t.target
	if !target.Enabled() {
		slog.Debug("Source disabled, skipping", "source", target.Name())
		return nil
	}
	source := target.Source

	// The sync task may still be queued behind us.
	if err := t.sourceRepo.UpsertSource(ctx, source.Name, source.URL); err != nil {
		return fmt.Errorf("failed to register source: %w", err)
	}

	data, err := fetch(ctx, t.httpClient, source.URL, t.userAgent, target.Timeout(), false)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, entries, err := t.parser.Run(data, source)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	count, err := t.resourceRepo.UpsertResources(ctx, toResources(entries, target.Name()))
	if err != nil {
		return fmt.Errorf("failed to store resources: %w", err)
	}

	nextFetch := target.NextFetch(time.Now().UTC())
	if err := t.sourceRepo.UpdateSourceMetadata(ctx, source.Name, metadata.Title, nextFetch); err != nil {
		return fmt.Errorf("failed to update source metadata: %w", err)
	}

	slog.Info("Feed imported",
		"source", target.Name(),
		"total", len(entries),
		"stored", count,
		"next_fetch_at", nextFetch)

	return nil
}
