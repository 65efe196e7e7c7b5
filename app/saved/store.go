package saved

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// Persister is the durable backing of a Store. Load returns nil data when
// nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLocale sets the collation used by SortAlphabetical.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) {
		s.locale = tag
	}
}

// Store is a deduplicated collection of saved items keyed by (type, id).
// Every mutation is written through to the Persister before it returns; a
// failed write is rolled back so memory and storage never diverge.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	items     []SavedItem // insertion order
	index     map[Key]int
	ids       map[string]int // bare id -> number of types holding it
	now       func() time.Time
	locale    language.Tag
}

// NewStore creates an empty store. A nil persister keeps the store in memory only.
func NewStore(persister Persister, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		index:     make(map[Key]int),
		ids:       make(map[string]int),
		now:       time.Now,
		locale:    language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init replaces the in-memory collection with the persisted one.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(nil)

	if s.persister == nil {
		return nil
	}

	data, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	items := make([]SavedItem, 0, len(snap.Items))
	seen := make(map[Key]bool, len(snap.Items))
	for _, item := range snap.Items {
		if !item.Type.Valid() || item.ID == "" || item.Title == "" {
			return fmt.Errorf("%w: invalid entry %s", ErrCorruptData, item.Key())
		}
		if seen[item.Key()] {
			slog.Warn("Dropping duplicate saved item from persisted data", "type", item.Type, "id", item.ID)
			continue
		}
		seen[item.Key()] = true
		items = append(items, item)
	}
	s.reset(items)

	slog.Debug("Saved items loaded", "count", len(items))
	return nil
}

func (s *Store) SaveItem(ctx context.Context, input SavedItemInput) (SavedItem, error) {
	if err := input.validate(); err != nil {
		return SavedItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{Type: input.Type, ID: input.ID}
	if _, exists := s.index[key]; exists {
		return SavedItem{}, fmt.Errorf("%w: %s", ErrAlreadySaved, key)
	}

	item := SavedItem{
		ID:          input.ID,
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
		URL:         input.URL,
		ImageURL:    input.ImageURL,
		Date:        input.Date,
		Tags:        slices.Clone(input.Tags),
		SavedAt:     s.now().UTC(),
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item = item.clone()

	s.insertAt(len(s.items), item)
	if err := s.persist(ctx); err != nil {
		s.removeAt(len(s.items) - 1)
		return SavedItem{}, err
	}

	return item.clone(), nil
}

// RemoveItem removes the first item in insertion order whose id matches,
// whatever its type. Prefer RemoveTypedItem: ids are only unique per type.
func (s *Store) RemoveItem(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := slices.IndexFunc(s.items, func(item SavedItem) bool {
		return item.ID == id
	})
	if pos < 0 {
		return false, nil
	}

	if s.ids[id] > 1 {
		slog.Warn("Bare id removal is ambiguous, removing first match", "id", id, "type", s.items[pos].Type)
	}

	return s.removeAndPersist(ctx, pos)
}

func (s *Store) RemoveTypedItem(ctx context.Context, itemType ItemType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[Key{Type: itemType, ID: id}]
	if !ok {
		return false, nil
	}

	return s.removeAndPersist(ctx, pos)
}

func (s *Store) ClearAllItems(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.items
	s.reset(nil)

	if err := s.persist(ctx); err != nil {
		s.reset(previous)
		return err
	}

	return nil
}

func (s *Store) IsItemSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[id] > 0
}

func (s *Store) IsSaved(itemType ItemType, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[Key{Type: itemType, ID: id}]
	return ok
}

// GetItemTypeCounts always reports every type, including those with no items.
func (s *Store) GetItemTypeCounts() map[ItemType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[ItemType]int, len(AllTypes))
	for _, t := range AllTypes {
		counts[t] = 0
	}
	for _, item := range s.items {
		counts[item.Type]++
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) ListItems(sortBy SortOrder) []SavedItem {
	return s.list(sortBy, func(SavedItem) bool { return true })
}

func (s *Store) ListItemsByType(itemType ItemType, sortBy SortOrder) []SavedItem {
	return s.list(sortBy, func(item SavedItem) bool { return item.Type == itemType })
}

func (s *Store) list(sortBy SortOrder, keep func(SavedItem) bool) []SavedItem {
	s.mu.RLock()
	items := make([]SavedItem, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			items = append(items, item.clone())
		}
	}
	locale := s.locale
	s.mu.RUnlock()

	SortItems(items, sortBy, locale)
	return items
}

func (s *Store) removeAndPersist(ctx context.Context, pos int) (bool, error) {
	removed := s.items[pos]
	s.removeAt(pos)

	if err := s.persist(ctx); err != nil {
		s.insertAt(pos, removed)
		return false, err
	}

	return true, nil
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	data, err := json.Marshal(snapshot{
		Version:   snapshotVersion,
		Items:     s.items,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}

	if err := s.persister.Save(ctx, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

func (s *Store) reset(items []SavedItem) {
	s.items = items
	s.index = make(map[Key]int, len(items))
	s.ids = make(map[string]int, len(items))
	for i, item := range items {
		s.index[item.Key()] = i
		s.ids[item.ID]++
	}
}

func (s *Store) insertAt(pos int, item SavedItem) {
	s.items = slices.Insert(slices.Clip(s.items), pos, item)
	s.ids[item.ID]++
	s.reindexFrom(pos)
}

func (s *Store) removeAt(pos int) {
	item := s.items[pos]
	s.items = slices.Delete(slices.Clone(s.items), pos, pos+1)
	delete(s.index, item.Key())
	if s.ids[item.ID]--; s.ids[item.ID] <= 0 {
		delete(s.ids, item.ID)
	}
	s.reindexFrom(pos)
}

func (s *Store) reindexFrom(pos int) {
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].Key()] = i
	}
}
