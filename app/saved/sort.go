package saved

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortItems orders items in place. Input is expected in insertion order; ties
// are resolved deterministically so repeated calls give the same result.
func SortItems(items []SavedItem, order SortOrder, locale language.Tag) {
	switch order {
	case SortOldest:
		slices.SortStableFunc(items, func(a, b SavedItem) int {
			return a.SavedAt.Compare(b.SavedAt)
		})
	case SortAlphabetical:
		// Collators keep scratch buffers and are not safe to share.
		col := collate.New(locale)
		slices.SortStableFunc(items, func(a, b SavedItem) int {
			if c := col.CompareString(a.Title, b.Title); c != 0 {
				return c
			}
			return a.SavedAt.Compare(b.SavedAt)
		})
	default:
		// Newest insertion first among equal timestamps.
		slices.Reverse(items)
		slices.SortStableFunc(items, func(a, b SavedItem) int {
			return b.SavedAt.Compare(a.SavedAt)
		})
	}
}
