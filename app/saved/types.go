package saved

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type ItemType string

const (
	TypeProfile ItemType = "profile"
	TypeJob     ItemType = "job"
	TypeEvent   ItemType = "event"
	TypeGroup   ItemType = "group"
	TypeArticle ItemType = "article"
	TypePost    ItemType = "post"
)

// AllTypes lists every item type in tab display order.
var AllTypes = []ItemType{TypeProfile, TypeJob, TypeEvent, TypeGroup, TypeArticle, TypePost}

func (t ItemType) Valid() bool {
	return slices.Contains(AllTypes, t)
}

func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown item type: %q", s)
	}
	return t, nil
}

// Key is the composite identity of a saved item. IDs are only unique per type.
type Key struct {
	Type ItemType
	ID   string
}

func (k Key) String() string {
	return string(k.Type) + "/" + k.ID
}

type SavedItem struct {
	ID          string     `json:"id"`
	Type        ItemType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Date        *time.Time `json:"date,omitempty"` // content date, e.g. event start
	Tags        []string   `json:"tags"`
	SavedAt     time.Time  `json:"savedAt"`
}

func (i SavedItem) Key() Key {
	return Key{Type: i.Type, ID: i.ID}
}

// VisibleTags returns at most n leading tags and how many were left out.
func (i SavedItem) VisibleTags(n int) ([]string, int) {
	if n < 0 {
		n = 0
	}
	if len(i.Tags) <= n {
		return slices.Clone(i.Tags), 0
	}
	return slices.Clone(i.Tags[:n]), len(i.Tags) - n
}

func (i SavedItem) clone() SavedItem {
	c := i
	c.Tags = slices.Clone(i.Tags)
	if i.Date != nil {
		d := *i.Date
		c.Date = &d
	}
	return c
}

// SavedItemInput is what callers hand to SaveItem. SavedAt is always stamped by the store.
type SavedItemInput struct {
	ID          string     `json:"id"`
	Type        ItemType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

func (in SavedItemInput) validate() error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidItem, in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	return nil
}

type SortOrder string

const (
	SortRecent       SortOrder = "recent"
	SortOldest       SortOrder = "oldest"
	SortAlphabetical SortOrder = "alphabetical"
)

// ParseSortOrder falls back to SortRecent for an empty value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRecent:
		return SortRecent, nil
	case SortOldest:
		return SortOldest, nil
	case SortAlphabetical:
		return SortAlphabetical, nil
	default:
		return "", fmt.Errorf("unknown sort order: %q", s)
	}
}

// snapshot is the unit of persistence.
type snapshot struct {
	Version   int         `json:"version"`
	Items     []SavedItem `json:"items"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

const snapshotVersion = 1
