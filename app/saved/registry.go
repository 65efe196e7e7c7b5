package saved

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Factory builds and initializes the store for one session.
type Factory func(ctx context.Context, session string) (*Store, error)

// Registry hands out one Store per session. Idle stores are evicted from
// memory; their data is already persisted so the next request reloads it.
type Registry struct {
	factory Factory
	stores  *cache.Cache
	mu      sync.Mutex
}

func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	expiration := idleTTL
	cleanup := idleTTL / 2
	if idleTTL <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}

	stores := cache.New(expiration, cleanup)
	stores.OnEvicted(func(session string, _ interface{}) {
		slog.Debug("Saved items store evicted", "session", session)
	})

	return &Registry{
		factory: factory,
		stores:  stores,
	}
}

func (r *Registry) Get(ctx context.Context, session string) (*Store, error) {
	if store, ok := r.lookup(session); ok {
		return store, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.lookup(session); ok {
		return store, nil
	}

	store, err := r.factory(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved items store for session %s: %w", session, err)
	}

	r.stores.SetDefault(session, store)
	return store, nil
}

func (r *Registry) Count() int {
	return r.stores.ItemCount()
}

// lookup refreshes the idle deadline of a hit.
func (r *Registry) lookup(session string) (*Store, bool) {
	v, ok := r.stores.Get(session)
	if !ok {
		return nil, false
	}
	store := v.(*Store)
	r.stores.SetDefault(session, store)
	return store, true
}
