package saved

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFilePersister_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.json")
	ctx := context.Background()

	store := NewStore(NewFilePersister(path))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Expected missing file to load as empty, got: %v", err)
	}
	if _, err := store.SaveItem(ctx, SavedItemInput{ID: "9", Type: TypeGroup, Title: "Climate founders"}); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(NewFilePersister(path))
	if err := reloaded.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsSaved(TypeGroup, "9") {
		t.Error("Expected item to survive reload from file")
	}
}

func TestRegistry_OneStorePerSession(t *testing.T) {
	calls := 0
	registry := NewRegistry(func(ctx context.Context, session string) (*Store, error) {
		calls++
		store := NewStore(nil)
		return store, store.Init(ctx)
	}, time.Minute)

	ctx := context.Background()

	a1, err := registry.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := registry.Get(ctx, "alice")
	b, _ := registry.Get(ctx, "bob")

	if a1 != a2 {
		t.Error("Expected the same store for the same session")
	}
	if a1 == b {
		t.Error("Expected different stores for different sessions")
	}
	if calls != 2 {
		t.Errorf("Expected factory to run 2 times, got %d", calls)
	}
	if registry.Count() != 2 {
		t.Errorf("Expected 2 cached stores, got %d", registry.Count())
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	registry := NewRegistry(func(ctx context.Context, session string) (*Store, error) {
		return nil, ErrCorruptData
	}, 0)

	_, err := registry.Get(context.Background(), "x")
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("Expected wrapped factory error, got: %v", err)
	}
	if registry.Count() != 0 {
		t.Error("Expected nothing cached after a failed open")
	}
}
