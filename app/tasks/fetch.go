package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
)

const maxResponseBytes = 10 << 20

func fetch(ctx context.Context, client *http.Client, url, userAgent string, timeout time.Duration, requireHTML bool) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if requireHTML {
		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(contentType), "text/html") {
			return nil, fmt.Errorf("content type is not HTML: %s", contentType)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func toResources(entries []catalog.Entry, source string) []database.Resource {
	resources := make([]database.Resource, 0, len(entries))
	for _, entry := range entries {
		resources = append(resources, database.Resource{
			Type:        entry.Type,
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			URL:         entry.URL,
			ImageURL:    entry.ImageURL,
			Date:        entry.Date,
			Tags:        entry.Tags,
			Source:      source,
		})
	}
	return resources
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
