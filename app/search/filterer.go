package search

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// Filterer applies the text query and the conjunctive facet filters.
type Filterer struct {
	matchAllTags bool
}

// NewFilterer returns a filterer whose tag facet matches ANY selected tag,
// or ALL of them when matchAllTags is set.
func NewFilterer(matchAllTags bool) *Filterer {
	return &Filterer{matchAllTags: matchAllTags}
}

// Run keeps the input order.
func (f *Filterer) Run(results []SearchResult, q Query) []SearchResult {
	// Casers are stateful; one per run.
	fold := cases.Fold()

	needle := fold.String(strings.TrimSpace(q.Text))
	wanted := make([]string, 0, len(q.Filters.Tags))
	for _, tag := range q.Filters.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			wanted = append(wanted, fold.String(tag))
		}
	}

	filtered := make([]SearchResult, 0, len(results))
	for _, result := range results {
		if !f.matchesText(fold, result, needle) {
			continue
		}
		if !matchesTypes(result, q.Filters.Types) {
			continue
		}
		if !f.matchesTags(fold, result, wanted) {
			continue
		}
		if !matchesDate(result, q.Filters.Date) {
			continue
		}
		filtered = append(filtered, result)
	}

	return filtered
}

// matchesText is true when title, description or any tag contains the needle.
func (f *Filterer) matchesText(fold cases.Caser, result SearchResult, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(fold.String(result.Title), needle) {
		return true
	}
	if strings.Contains(fold.String(result.Description), needle) {
		return true
	}
	for _, tag := range result.Tags {
		if strings.Contains(fold.String(tag), needle) {
			return true
		}
	}
	return false
}

func (f *Filterer) matchesTags(fold cases.Caser, result SearchResult, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}

	have := make(map[string]bool, len(result.Tags))
	for _, tag := range result.Tags {
		have[fold.String(strings.TrimSpace(tag))] = true
	}

	if f.matchAllTags {
		for _, tag := range wanted {
			if !have[tag] {
				return false
			}
		}
		return true
	}

	for _, tag := range wanted {
		if have[tag] {
			return true
		}
	}
	return false
}

func matchesTypes(result SearchResult, types []saved.ItemType) bool {
	return len(types) == 0 || slices.Contains(types, result.Type)
}

// matchesDate requires a dated result once any bound is set.
func matchesDate(result SearchResult, r *DateRange) bool {
	if r == nil || r.IsZero() {
		return true
	}
	if result.Date == nil {
		return false
	}
	if r.From != nil && result.Date.Before(*r.From) {
		return false
	}
	if r.To != nil && result.Date.After(*r.To) {
		return false
	}
	return true
}
