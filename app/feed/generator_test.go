package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

func TestGenerateSavedItemsFeed(t *testing.T) {
	generator := NewGenerator("1.2.3")

	savedAt := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)
	items := []saved.SavedItem{
		{
			ID:          "j-201",
			Type:        saved.TypeJob,
			Title:       "Founding Backend Engineer",
			Description: "Build the ledger & payouts",
			URL:         "https://hfn.example/jobs/j-201",
			ImageURL:    "https://hfn.example/img/logo.PNG",
			Tags:        []string{"go", "remote"},
			SavedAt:     savedAt,
		},
		{
			ID:      "e-301",
			Type:    saved.TypeEvent,
			Title:   "Founders Meetup",
			SavedAt: savedAt.Add(-time.Hour),
		},
	}

	rss, err := generator.Run(Channel{
		Title:    "Saved items",
		Link:     "https://saved.example.com",
		SelfLink: "https://saved.example.com/api/saved/feed.xml?a=1&b=2",
	}, items)
	if err != nil {
		t.Fatalf("Failed to generate RSS: %v", err)
	}

	expected := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<title>Saved items</title>`,
		`<description>Saved items</description>`,
		`href="https://saved.example.com/api/saved/feed.xml?a=1&amp;b=2"`,
		`<lastBuildDate>Thu, 03 Jul 2025 10:00:00 +0000</lastBuildDate>`,
		`<generator>HFN-Saved/1.2.3</generator>`,
		`<guid isPermaLink="false">job/j-201</guid>`,
		`<description>Build the ledger &amp; payouts</description>`,
		`<category>job</category>`,
		`<category>remote</category>`,
		`type="image/png"`,
		`<guid isPermaLink="false">event/e-301</guid>`,
		`<description>No description available</description>`,
	}

	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("Expected RSS to contain %q", want)
		}
	}

	if strings.Count(rss, "<item>") != 2 {
		t.Errorf("Expected 2 items, got %d", strings.Count(rss, "<item>"))
	}
	if strings.Contains(rss, "<link></link>") {
		t.Error("Expected empty links to be omitted")
	}
}

func TestGenerateEmptyFeed(t *testing.T) {
	rss, err := NewGenerator("dev").Run(Channel{Title: "Saved items"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("Expected no items")
	}
	if strings.Contains(rss, "atom:link href") {
		t.Error("Expected no self link without a base URL")
	}
	if !strings.HasSuffix(rss, "</rss>") {
		t.Error("Expected closed rss element")
	}
}
