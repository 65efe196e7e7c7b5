package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/hfn-saved.db" description:"SQLite database file"`
	CatalogFile string `long:"catalog-file" env:"CATALOG_FILE" default:"./catalog.yml" description:"YAML file with the demo resource catalog"`
	SourcesDir  string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing article source configuration files"`

	// Application configuration
	Port              string   `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string   `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://saved.example.com)"`
	WorkerCount       int      `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for imports"`
	SchedulerInterval int      `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string   `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RateLimit         float64  `long:"rate-limit" env:"RATE_LIMIT" default:"20" description:"Requests per second allowed per client IP (0 disables)"`
	RateBurst         int      `long:"rate-burst" env:"RATE_BURST" default:"40" description:"Burst size for the per-client rate limiter"`
	TrustedProxies    []string `long:"trusted-proxy" env:"TRUSTED_PROXIES" env-delim:"," description:"Proxy IP or CIDR allowed to set X-Forwarded-For (repeatable)"`
	SessionTTL        int      `long:"session-ttl" env:"SESSION_TTL" default:"1800" description:"Seconds an idle session store stays in memory (0 keeps it forever)"`

	// Search and saved items behaviour
	DebounceMs  int    `long:"debounce-ms" env:"DEBOUNCE_MS" default:"300" description:"Search debounce interval in milliseconds"`
	TagMatchAll bool   `long:"tag-match-all" env:"TAG_MATCH_ALL" description:"Require every selected tag to match instead of any"`
	Locale      string `long:"locale" env:"LOCALE" default:"en" description:"BCP 47 locale for alphabetical sorting"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"HFN Saved/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads an optional .env file, then flags and environment.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		CatalogFile:       raw.CatalogFile,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		RateLimit:         raw.RateLimit,
		RateBurst:         raw.RateBurst,
		TrustedProxies:    raw.TrustedProxies,
		SessionTTL:        raw.SessionTTL,
		DebounceMs:        raw.DebounceMs,
		TagMatchAll:       raw.TagMatchAll,
		Locale:            raw.Locale,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 second")
	}
	if cfg.DebounceMs < 0 {
		return fmt.Errorf("debounce must be non-negative")
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return fmt.Errorf("rate limit and burst must be non-negative")
	}
	for _, proxy := range cfg.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err != nil {
			return fmt.Errorf("invalid trusted proxy %q: expected IP or CIDR", proxy)
		}
	}
	if _, err := language.Parse(cfg.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
