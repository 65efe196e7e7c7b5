package catalog

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const testArticle = `<!DOCTYPE html>
<html>
<head><title>Raising a seed round</title></head>
<body>
	<nav><a href="/">Home</a> <a href="/about">About</a></nav>
	<article>
		<h1>Raising a seed round</h1>
		<p>Most founders raise their first institutional money from a small group of angels and a lead seed fund. This guide walks through how to prepare, whom to approach, and how long the process usually takes.</p>
		<p>Start by writing down the milestones the round should fund. Investors want to see a plan that connects the money to specific, measurable progress over the next eighteen to twenty four months.</p>
		<p>Next, build a target list and warm introductions. Cold outreach works less often, and a referral from a founder the investor already backed carries real weight in the first meeting.</p>
	</article>
	<footer>Copyright Example</footer>
</body>
</html>`

func TestSummarizerExtractsText(t *testing.T) {
	summary, err := NewSummarizer().Run([]byte(testArticle), "https://example.com/seed")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if summary == "" {
		t.Fatal("Expected non-empty summary")
	}
	if !strings.Contains(summary, "founders") {
		t.Errorf("Expected summary to contain article text, got %q", summary)
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength {
		t.Errorf("Expected at most %d runes, got %d", maxSummaryLength, utf8.RuneCountInString(summary))
	}
	if strings.Contains(summary, "<p>") {
		t.Errorf("Expected plain text, got %q", summary)
	}
}

func TestSummarizerEmptyData(t *testing.T) {
	if _, err := NewSummarizer().Run(nil, ""); err == nil {
		t.Error("Expected error for empty data")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected 'short', got %q", got)
	}

	got := truncate("ééééééééééé", 5)
	if utf8.RuneCountInString(got) != 5 {
		t.Errorf("Expected 5 runes, got %d (%q)", utf8.RuneCountInString(got), got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
}
