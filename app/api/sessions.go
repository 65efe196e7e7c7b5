package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

// engineSessions keeps one live search engine per session so debounced
// queries and filter changes accumulate across requests.
type engineSessions struct {
	newEngine func(session string) *search.Engine
	engines   *cache.Cache
	mu        sync.Mutex
}

func newEngineSessions(idleTTL time.Duration, newEngine func(session string) *search.Engine) *engineSessions {
	expiration := idleTTL
	cleanup := idleTTL / 2
	if idleTTL <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}

	engines := cache.New(expiration, cleanup)
	engines.OnEvicted(func(session string, value interface{}) {
		if engine, ok := value.(*search.Engine); ok {
			engine.Close()
		}
		slog.Debug("Search engine evicted", "session", session)
	})

	return &engineSessions{
		newEngine: newEngine,
		engines:   engines,
	}
}

func (s *engineSessions) Get(session string) *search.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.engines.Get(session); ok {
		engine := value.(*search.Engine)
		s.engines.SetDefault(session, engine)
		return engine
	}

	engine := s.newEngine(session)
	s.engines.SetDefault(session, engine)
	return engine
}

func (s *engineSessions) Count() int {
	return s.engines.ItemCount()
}

// sessionLookup resolves the saved store on every call, so an engine never
// holds on to a store the registry has already evicted.
type sessionLookup struct {
	stores  StoreRegistry
	session string
}

func (l sessionLookup) IsSaved(itemType saved.ItemType, id string) bool {
	store, err := l.stores.Get(context.Background(), l.session)
	if err != nil {
		slog.Warn("Saved items lookup failed", "session", l.session, "error", err)
		return false
	}
	return store.IsSaved(itemType, id)
}
