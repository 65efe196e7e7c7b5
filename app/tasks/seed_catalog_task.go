package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
)

type SeedCatalogTask struct {
	targeted
	loader       *catalog.Loader
	resourceRepo database.ResourceRepository
}

func NewSeedCatalogTask(loader *catalog.Loader, resourceRepo database.ResourceRepository) *SeedCatalogTask {
	return &SeedCatalogTask{
		targeted:     targeted{target: CatalogTarget()},
		loader:       loader,
		resourceRepo: resourceRepo,
	}
}

func (t *SeedCatalogTask) Kind() Kind {
	return KindSeedCatalog
}

func (t *SeedCatalogTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := t.loader.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(entries) == 0 {
		slog.Debug("Catalog is empty, nothing to seed")
		return nil
	}

	count, err := t.resourceRepo.UpsertResources(ctx, toResources(entries, t.target.Name()))
	if err != nil {
		return fmt.Errorf("failed to store catalog resources: %w", err)
	}

	slog.Info("Catalog seeded", "entries", len(entries), "resources", count)
	return nil
}
