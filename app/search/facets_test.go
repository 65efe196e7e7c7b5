package search

import (
	"testing"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

func TestTypeCounts_MatchTabViews(t *testing.T) {
	results := sampleResults()
	results = append(results, SearchResult{ID: "4", Type: saved.TypeJob, Title: "Growth lead"})

	counts := TypeCounts(results)

	if len(counts) != len(saved.AllTypes) {
		t.Errorf("Expected all %d types, got %d", len(saved.AllTypes), len(counts))
	}
	for _, itemType := range saved.AllTypes {
		if tab := FilterByType(results, itemType); len(tab) != counts[itemType] {
			t.Errorf("Type %s: count %d disagrees with tab of %d", itemType, counts[itemType], len(tab))
		}
	}
	if counts[saved.TypeJob] != 2 {
		t.Errorf("Expected 2 jobs, got %d", counts[saved.TypeJob])
	}
}

func TestTagCounts(t *testing.T) {
	results := []SearchResult{
		{ID: "1", Tags: []string{"seed", "fintech", "seed"}},
		{ID: "2", Tags: []string{"seed"}},
		{ID: "3", Tags: []string{"climate"}},
	}

	counts := TagCounts(results)

	if len(counts) != 3 {
		t.Fatalf("Expected 3 tags, got %d", len(counts))
	}
	if counts[0].Tag != "seed" || counts[0].Count != 2 {
		t.Errorf("Expected seed=2 first, got %+v", counts[0])
	}
	if counts[1].Tag != "climate" || counts[2].Tag != "fintech" {
		t.Errorf("Expected ties ordered by name, got %+v", counts[1:])
	}
}

func TestTagCountsGroupsCaseVariants(t *testing.T) {
	results := []SearchResult{
		{ID: "1", Tags: []string{"Go", "go"}},
		{ID: "2", Tags: []string{"go "}},
		{ID: "3", Tags: []string{"GO", "Remote"}},
	}

	counts := TagCounts(results)

	if len(counts) != 2 {
		t.Fatalf("Expected 2 tags, got %+v", counts)
	}
	if counts[0].Tag != "Go" || counts[0].Count != 3 {
		t.Errorf("Expected Go=3 under its first spelling, got %+v", counts[0])
	}
	if counts[1].Tag != "Remote" || counts[1].Count != 1 {
		t.Errorf("Expected Remote=1, got %+v", counts[1])
	}

	// Selecting the facet must return exactly the counted results.
	selected := NewFilterer(false).Run(results, Query{Filters: Filters{Tags: []string{counts[0].Tag}}})
	if len(selected) != counts[0].Count {
		t.Errorf("Expected %d results for tag %q, got %d", counts[0].Count, counts[0].Tag, len(selected))
	}
}
