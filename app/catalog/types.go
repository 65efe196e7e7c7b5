package catalog

import (
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// Entry is one searchable resource as read from catalog.yml or an imported feed.
type Entry struct {
	Type        saved.ItemType `yaml:"type"`
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	URL         string         `yaml:"url"`
	ImageURL    string         `yaml:"image_url"`
	Date        *time.Time     `yaml:"date"`
	Tags        []string       `yaml:"tags"`
}

type Catalog struct {
	Resources []Entry `yaml:"resources"`
}

// Feed metadata returned alongside imported entries.
type Metadata struct {
	Title string
	Link  string
}

// Source configuration types

type Source struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Tags     []string       `yaml:"tags"`
	Settings SourceSettings `yaml:"settings"`
}

type SourceSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`   // seconds
	Summarize       bool `yaml:"summarize"` // fill empty descriptions from the article page
}
