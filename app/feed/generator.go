package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"path"
	"strings"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// Generator renders a list of saved items as an RSS 2.0 channel so a
// member can follow their bookmarks in a feed reader.
type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Channel describes the feed wrapping the items.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}

// Run expects items newest first; the first item's save time becomes the
// channel's lastBuildDate.
func (g *Generator) Run(channel Channel, items []saved.SavedItem) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = items[0].SavedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("HFN-Saved/%s", g.version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item saved.SavedItem) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(item.Key().String()))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.URL, 6)
	g.writeElement(buf, "description", cmp.Or(item.Description, "No description available"), 6)

	// pubDate is the save time, not the content date.
	g.writeElement(buf, "pubDate", item.SavedAt.Format(time.RFC1123Z), 6)

	g.writeElement(buf, "category", string(item.Type), 6)
	for _, tag := range item.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	if item.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(item.ImageURL),
			html.EscapeString(imageType(item.ImageURL))))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func imageType(url string) string {
	switch path.Ext(strings.ToLower(url)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
