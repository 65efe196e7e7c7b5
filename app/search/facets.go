package search

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// TypeCounts counts results per type over the full result list. Every type is
// present so tabs can decide for themselves whether to hide empty ones.
func TypeCounts(results []SearchResult) map[saved.ItemType]int {
	counts := make(map[saved.ItemType]int, len(saved.AllTypes))
	for _, t := range saved.AllTypes {
		counts[t] = 0
	}
	for _, r := range results {
		counts[r.Type]++
	}
	return counts
}

// FilterByType is the per-tab view of the same list TypeCounts counted.
func FilterByType(results []SearchResult, itemType saved.ItemType) []SearchResult {
	out := make([]SearchResult, 0)
	for _, r := range results {
		if r.Type == itemType {
			out = append(out, r)
		}
	}
	return out
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts counts each tag once per result, most frequent first. Tags are
// grouped the way the tag filter compares them, case-folded, and shown with
// the first spelling seen.
func TagCounts(results []SearchResult) []TagCount {
	fold := cases.Fold()

	counts := make(map[string]int)
	display := make(map[string]string)
	var order []string
	for _, r := range results {
		seen := make(map[string]bool, len(r.Tags))
		for _, tag := range r.Tags {
			tag = strings.TrimSpace(tag)
			key := fold.String(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := display[key]; !ok {
				display[key] = tag
				order = append(order, key)
			}
			counts[key]++
		}
	}

	out := make([]TagCount, 0, len(order))
	for _, key := range order {
		out = append(out, TagCount{Tag: display[key], Count: counts[key]})
	}
	slices.SortStableFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(fold.String(a.Tag), fold.String(b.Tag))
	})
	return out
}
