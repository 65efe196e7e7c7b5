package catalog

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// FeedParser turns RSS, Atom and JSON feeds into article entries.
type FeedParser struct {
	gofeedParser *gofeed.Parser
}

func NewFeedParser() *FeedParser {
	return &FeedParser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *FeedParser) Run(data []byte, source *Source) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title: feed.Title,
		Link:  feed.Link,
	}

	limit := len(feed.Items)
	if source != nil && source.Settings.MaxItems > 0 && source.Settings.MaxItems < limit {
		limit = source.Settings.MaxItems
	}

	entries := make([]Entry, 0, limit)
	for _, item := range feed.Items[:limit] {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		entries = append(entries, p.normalizeItem(item, source))
	}

	return metadata, entries, nil
}

func (p *FeedParser) normalizeItem(item *gofeed.Item, source *Source) Entry {
	entry := Entry{
		Type:        saved.TypeArticle,
		ID:          entryID(item),
		Title:       strings.TrimSpace(item.Title),
		Description: plainText(item.Description),
		URL:         item.Link,
		Date:        cmp.Or(item.PublishedParsed, item.UpdatedParsed),
	}

	if item.Image != nil {
		entry.ImageURL = item.Image.URL
	} else {
		for _, enclosure := range item.Enclosures {
			if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
				entry.ImageURL = enclosure.URL
				break
			}
		}
	}

	var sourceTags []string
	if source != nil {
		sourceTags = source.Tags
	}
	entry.Tags = mergeTags(item.Categories, sourceTags)

	return entry
}

// Ids are stable across refreshes so re-imports update rather than duplicate.
func entryID(item *gofeed.Item) string {
	hash := sha256.Sum256([]byte(item.Link + "|" + item.GUID))
	return hex.EncodeToString(hash[:])[:16]
}

func plainText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.Join(strings.Fields(html), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func mergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}
