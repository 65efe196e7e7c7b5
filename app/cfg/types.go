package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath      string
	CatalogFile string
	SourcesDir  string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	RateLimit         float64
	RateBurst         int
	TrustedProxies    []string
	SessionTTL        int

	// Search and saved items behaviour
	DebounceMs  int
	TagMatchAll bool
	Locale      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// SessionIdleTTL is how long an unused session store stays in memory. Zero keeps it forever.
func (c *Cfg) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}
