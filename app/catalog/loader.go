package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

// Loader reads the demo catalog and caches the import source configurations.
type Loader struct {
	catalogFile string
	sourcesDir  string
	cache       map[string]*Source
	mu          sync.RWMutex
}

func NewLoader(catalogFile, sourcesDir string) *Loader {
	return &Loader{
		catalogFile: catalogFile,
		sourcesDir:  sourcesDir,
		cache:       make(map[string]*Source),
	}
}

// Run loads every sources/*.yml file. A missing directory is not an error.
func (l *Loader) Run() error {
	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		source, err := l.LoadSource(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source loaded", "source", name, "enabled", source.Settings.Enabled, "refresh_interval", source.Settings.RefreshInterval)
	}

	return nil
}

func (l *Loader) LoadSource(name string) (*Source, error) {
	file := filepath.Join(l.sourcesDir, name+".yml")

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	source.Name = name
	applySourceDefaults(&source)

	if err := validateSource(&source); err != nil {
		return nil, fmt.Errorf("invalid source %s: %w", file, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[source.Name] = &source

	return &source, nil
}

func (l *Loader) GetSource(name string) (*Source, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	source, ok := l.cache[name]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", name)
	}
	return source, nil
}

func (l *Loader) GetSources() map[string]*Source {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sources := make(map[string]*Source, len(l.cache))
	for k, v := range l.cache {
		sources[k] = v
	}
	return sources
}

func (l *Loader) GetEnabledSources() map[string]*Source {
	l.mu.RLock()
	defer l.mu.RUnlock()

	enabled := make(map[string]*Source)
	for k, v := range l.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (l *Loader) GetSourceCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// LoadCatalog reads the demo dataset. An unset or missing file yields an empty catalog.
func (l *Loader) LoadCatalog() ([]Entry, error) {
	if l.catalogFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(l.catalogFile)
	if os.IsNotExist(err) {
		slog.Debug("Catalog file not found", "file", l.catalogFile)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	seen := make(map[saved.Key]struct{}, len(catalog.Resources))
	for i, entry := range catalog.Resources {
		if err := validateEntry(entry); err != nil {
			return nil, fmt.Errorf("invalid catalog entry at index %d: %w", i, err)
		}

		key := saved.Key{Type: entry.Type, ID: entry.ID}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %s", key)
		}
		seen[key] = struct{}{}
	}

	return catalog.Resources, nil
}

func applySourceDefaults(source *Source) {
	if source.Settings.RefreshInterval == 0 {
		source.Settings.RefreshInterval = 3600
	}
	if source.Settings.MaxItems == 0 {
		source.Settings.MaxItems = 50
	}
	if source.Settings.Timeout == 0 {
		source.Settings.Timeout = 30
	}
}

func validateSource(source *Source) error {
	if source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if source.URL == "" {
		return fmt.Errorf("source URL is required")
	}

	nonNegativeFields := map[string]int{
		"refresh interval": source.Settings.RefreshInterval,
		"max items":        source.Settings.MaxItems,
		"timeout":          source.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func validateEntry(entry Entry) error {
	if !entry.Type.Valid() {
		return fmt.Errorf("unknown type %q", entry.Type)
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(entry.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
