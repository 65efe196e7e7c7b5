package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
)

// SummarizeResourcesTask fills empty article descriptions from the linked page.
type SummarizeResourcesTask struct {
	targeted
	httpClient   *http.Client
	summarizer   *catalog.Summarizer
	resourceRepo database.ResourceRepository
	userAgent    string
}

func NewSummarizeResourcesTask(source *catalog.Source, httpClient *http.Client, summarizer *catalog.Summarizer, resourceRepo database.ResourceRepository, userAgent string) *SummarizeResourcesTask {
	return &SummarizeResourcesTask{
		targeted:     targeted{target: SourceTarget(source)},
		httpClient:   httpClient,
		summarizer:   summarizer,
		resourceRepo: resourceRepo,
		userAgent:    userAgent,
	}
}

func (t *SummarizeResourcesTask) Kind() Kind {
	return KindSummarizeResources
}

func (t *SummarizeResourcesTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	limit := t.target.SummaryLimit()
	if limit == 0 {
		slog.Debug("Summaries disabled for source", "source", t.target.Name())
		return nil
	}

	resources, err := t.resourceRepo.ListMissingDescriptions(ctx, t.target.Name(), limit)
	if err != nil {
		return fmt.Errorf("failed to get resources for summary: %w", err)
	}

	if len(resources) == 0 {
		slog.Debug("No resources need a summary", "source", t.target.Name())
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, resource := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.summarize(ctx, resource); err != nil {
			slog.Warn("Failed to summarize resource", "id", resource.ID, "url", resource.URL, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.Info("Summaries stored",
		"source", t.target.Name(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *SummarizeResourcesTask) summarize(ctx context.Context, resource database.ResourceForSummary) error {
	data, err := fetch(ctx, t.httpClient, resource.URL, t.userAgent, t.target.Timeout(), true)
	if err != nil {
		return fmt.Errorf("failed to fetch article: %w", err)
	}

	summary, err := t.summarizer.Run(data, resource.URL)
	if err != nil {
		return err
	}

	if err := t.resourceRepo.UpdateDescription(ctx, resource.Type, resource.ID, summary); err != nil {
		return fmt.Errorf("failed to update description: %w", err)
	}

	slog.Debug("Summary stored", "id", resource.ID, "length", len(summary))
	return nil
}
