package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
)

// SyncSourceTask registers a configured source so its row exists before the
// first import.
type SyncSourceTask struct {
	targeted
	sourceRepo database.SourceRepository
}

func NewSyncSourceTask(source *catalog.Source, sourceRepo database.SourceRepository) *SyncSourceTask {
	return &SyncSourceTask{
		targeted:   targeted{target: SourceTarget(source)},
		sourceRepo: sourceRepo,
	}
}

func (t *SyncSourceTask) Kind() Kind {
	return KindSyncSource
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	source := t.target.Source
	if err := t.sourceRepo.UpsertSource(ctx, source.Name, source.URL); err != nil {
		return fmt.Errorf("failed to sync source config to database: %w", err)
	}

	slog.Debug("Source registered", "source", source.Name, "url", source.URL)
	return nil
}
