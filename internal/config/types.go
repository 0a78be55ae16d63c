package config

// Config is the root of wingwatch's config file (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Storage    StorageConfig    `json:"storage"`
	Source     SourceConfig     `json:"source"`
	Classifier ClassifierConfig `json:"classifier"`
	Notify     NotifyConfig     `json:"notify"`
	Scheduler  SchedulerConfig  `json:"scheduler"`

	// Telegram enables out-of-band operator alerts. Optional.
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

// ServerConfig controls the HTTP trigger API.
//
// CronSecret gates the check-updates and status endpoints; requests without
// a matching bearer token are rejected before any scraping work starts.
type ServerConfig struct {
	Addr       string `json:"addr"`
	CronSecret string `json:"cron_secret"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/wingwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SourceConfig describes the monitored page and the extraction strategy.
//
// Strategy values:
//   - "css": fetch the page and extract items with the configured selectors
//   - "ai": fetch the page, clean the HTML, and extract items with the model
//
// If Fallback is true and the primary strategy fails, the other one runs.
type SourceConfig struct {
	URL       string `json:"url"`
	Strategy  string `json:"strategy"`
	Fallback  bool   `json:"fallback,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Timeout   string `json:"timeout,omitempty"`

	Selectors SelectorConfig `json:"selectors"`
}

// SelectorConfig holds CSS selectors for the "css" strategy.
// Marker points at the page's own "last updated" stamp (freshness marker);
// it is read under both strategies when present.
type SelectorConfig struct {
	Item   string `json:"item"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Date   string `json:"date,omitempty"`
	Link   string `json:"link,omitempty"`
	Marker string `json:"marker,omitempty"`
}

// ClassifierConfig selects the semantic-comparison backend.
//
// Provider values:
//   - "gemini": Google Gemini (APIKey required; Models tried in order, the
//     next one is used when a model hits its quota)
//   - "hash": deterministic hash-only comparison, no external calls
//
// Timeout bounds a single comparison call (default 60s).
type ClassifierConfig struct {
	Provider string   `json:"provider"`
	APIKey   string   `json:"api_key,omitempty"`
	Models   []string `json:"models,omitempty"`
	Timeout  string   `json:"timeout,omitempty"`
}

// NotifyConfig controls the sequential email fan-out.
//
// SendDelay is the minimum gap between two recipients (provider quota).
// RetryBackoff is the fixed wait before the single retry of a transient
// failure.
type NotifyConfig struct {
	Enabled bool   `json:"enabled"`
	From    string `json:"from"`
	APIKey  string `json:"api_key"`

	// AppURL is the public base URL used to build unsubscribe links.
	AppURL string `json:"app_url"`

	SubjectPrefix string `json:"subject_prefix,omitempty"`
	SendDelay     string `json:"send_delay,omitempty"`
	RetryBackoff  string `json:"retry_backoff,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}

// SchedulerConfig controls the optional self-hosted trigger.
// When disabled, runs only happen via the HTTP endpoint (external cron).
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// TelegramConfig routes operator alerts (run failures, dispatch summaries)
// to an owner chat. This is separate from the subscriber email fan-out.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
}
