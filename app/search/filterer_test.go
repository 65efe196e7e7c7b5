package search

import (
	"slices"
	"testing"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFilterer_NoQueryNoFilters(t *testing.T) {
	filterer := NewFilterer(false)

	result := filterer.Run(sampleResults(), Query{})

	if len(result) != 3 {
		t.Errorf("Expected 3 results, got %d", len(result))
	}
}

func TestFilterer_TextMatchesTitleDescriptionAndTags(t *testing.T) {
	filterer := NewFilterer(false)
	results := []SearchResult{
		{ID: "title", Title: "SaaS Pricing Playbook"},
		{ID: "desc", Title: "Notes", Description: "A saas teardown"},
		{ID: "tag", Title: "Meetup", Tags: []string{"B2B-SaaS"}},
		{ID: "none", Title: "Hardware", Description: "Chips"},
	}

	got := filterer.Run(results, Query{Text: "  SAAS "})

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	if !slices.Equal(ids, []string{"title", "desc", "tag"}) {
		t.Errorf("Expected [title desc tag] in provider order, got %v", ids)
	}
}

func TestFilterer_TagsAnyOf(t *testing.T) {
	filterer := NewFilterer(false)
	results := []SearchResult{
		{ID: "1", Tags: []string{"fintech", "seed"}},
		{ID: "2", Tags: []string{"seed"}},
		{ID: "3", Tags: []string{"climate"}},
	}

	got := filterer.Run(results, Query{Filters: Filters{Tags: []string{"Fintech", "seed"}}})

	if len(got) != 2 {
		t.Errorf("Expected 2 results with any selected tag, got %d", len(got))
	}
}

func TestFilterer_TagsAllOf(t *testing.T) {
	filterer := NewFilterer(true)
	results := []SearchResult{
		{ID: "1", Tags: []string{"fintech", "seed"}},
		{ID: "2", Tags: []string{"seed"}},
	}

	got := filterer.Run(results, Query{Filters: Filters{Tags: []string{"fintech", "seed"}}})

	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Expected only the result with every tag, got %v", got)
	}
}

func TestFilterer_DateRange(t *testing.T) {
	filterer := NewFilterer(false)
	results := []SearchResult{
		{ID: "before", Date: date(2023, 12, 31)},
		{ID: "from", Date: date(2024, 1, 1)},
		{ID: "inside", Date: date(2024, 6, 1)},
		{ID: "to", Date: date(2024, 12, 31)},
		{ID: "after", Date: date(2025, 1, 1)},
		{ID: "undated"},
	}

	got := filterer.Run(results, Query{Filters: Filters{Date: &DateRange{From: date(2024, 1, 1), To: date(2024, 12, 31)}}})

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	if !slices.Equal(ids, []string{"from", "inside", "to"}) {
		t.Errorf("Expected inclusive bounds [from inside to], got %v", ids)
	}

	open := filterer.Run(results, Query{Filters: Filters{Date: &DateRange{From: date(2024, 12, 31)}}})
	if len(open) != 2 {
		t.Errorf("Expected 2 results with an open upper bound, got %d", len(open))
	}
}

func TestFilterer_Conjunction(t *testing.T) {
	filterer := NewFilterer(false)

	var results []SearchResult
	tags := [][]string{{"fintech"}, {"seed"}, {"fintech", "seed"}, {}, {"climate"}}
	for i := 0; i < 30; i++ {
		results = append(results, SearchResult{
			ID:    string(rune('a' + i)),
			Type:  saved.AllTypes[i%len(saved.AllTypes)],
			Title: "Result",
			Tags:  tags[i%len(tags)],
		})
	}

	filters := Filters{
		Types: []saved.ItemType{saved.TypeJob, saved.TypeArticle},
		Tags:  []string{"fintech", "seed"},
	}
	got := filterer.Run(results, Query{Filters: filters})

	if len(got) == 0 {
		t.Fatal("Expected some results to match")
	}
	for _, r := range got {
		if !slices.Contains(filters.Types, r.Type) {
			t.Errorf("Result %s has type %s outside the type filter", r.ID, r.Type)
		}
		if !slices.ContainsFunc(r.Tags, func(tag string) bool { return slices.Contains(filters.Tags, tag) }) {
			t.Errorf("Result %s has tags %v outside the tag filter", r.ID, r.Tags)
		}
	}
}
