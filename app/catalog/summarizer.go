package catalog

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxSummaryLength = 280

// Summarizer extracts a short plain-text description from an article page.
type Summarizer struct{}

func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

func (s *Summarizer) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var parsedURL *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			parsedURL = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	summary := strings.Join(strings.Fields(article.Excerpt), " ")
	if summary == "" {
		summary = strings.Join(strings.Fields(article.TextContent), " ")
	}
	if summary == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Summary extracted", "title", article.Title, "length", len(summary))

	return truncate(summary, maxSummaryLength), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimSpace(string(runes[:max-1]))
	return cut + "…"
}
