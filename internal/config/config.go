// Package config loads and validates crawl configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Saver   SaverConfig   `mapstructure:"saver"`
	Events  EventsConfig  `mapstructure:"events"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CrawlConfig governs the crawl itself.
type CrawlConfig struct {
	Name                string   `mapstructure:"name"`
	Workers             int      `mapstructure:"workers"`
	BatchSize           int      `mapstructure:"batch_size"`
	PollIntervalSeconds int      `mapstructure:"poll_interval_seconds"`
	FetchConcurrency    int      `mapstructure:"fetch_concurrency"`
	Seeds               []string `mapstructure:"seeds"`
	KnownFile           string   `mapstructure:"known_file"`
	ExploredFile        string   `mapstructure:"explored_file"`
}

// PollInterval returns the empty-checkout backoff as a duration.
func (c CrawlConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// TrackerConfig selects and configures the frontier backend.
type TrackerConfig struct {
	// Backend is "memory" for single-process crawls or "redis" for
	// crawls shared across processes and hosts.
	Backend    string `mapstructure:"backend"`
	RedisAddr  string `mapstructure:"redis_addr"`
	FreshStart bool   `mapstructure:"fresh_start"`
}

// ScraperConfig selects and configures the download strategy.
type ScraperConfig struct {
	// Kind is "null", "links" or "ids".
	Kind string `mapstructure:"kind"`
	// Fetcher is "resty" or "colly".
	Fetcher string `mapstructure:"fetcher"`
	// URLFmt templates an item into a URL for the "ids" kind (one %s verb).
	URLFmt string `mapstructure:"url_fmt"`
	// Pattern extracts new items from response bodies.
	Pattern        string `mapstructure:"pattern"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the fetch timeout as a duration.
func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SaverConfig selects and configures response persistence.
type SaverConfig struct {
	// Kind is "null", "file", "tar", "redis" or "gcs".
	Kind      string `mapstructure:"kind"`
	PathFmt   string `mapstructure:"path_fmt"`
	BaseDir   string `mapstructure:"base_dir"`
	TarPath   string `mapstructure:"tar_path"`
	RedisAddr string `mapstructure:"redis_addr"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// EventsConfig selects the lifecycle event publisher.
type EventsConfig struct {
	// Backend is "none" or "pubsub".
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FRONTIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.name", "crawl")
	v.SetDefault("crawl.workers", 4)
	v.SetDefault("crawl.batch_size", 1000)
	v.SetDefault("crawl.poll_interval_seconds", 30)
	v.SetDefault("crawl.fetch_concurrency", 8)
	v.SetDefault("tracker.backend", "memory")
	v.SetDefault("tracker.fresh_start", false)
	v.SetDefault("scraper.kind", "links")
	v.SetDefault("scraper.fetcher", "resty")
	v.SetDefault("scraper.pattern", `href="(https?://[^"]+)"`)
	v.SetDefault("scraper.user_agent", "frontier/1.0")
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("saver.kind", "null")
	v.SetDefault("saver.path_fmt", "%s")
	v.SetDefault("events.backend", "none")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.port", 9090)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.Name == "" {
		return fmt.Errorf("crawl.name must be set")
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be > 0")
	}

	switch c.Tracker.Backend {
	case "memory":
	case "redis":
		if c.Tracker.RedisAddr == "" {
			return fmt.Errorf("tracker.redis_addr must be set when tracker.backend is redis")
		}
	default:
		return fmt.Errorf("unknown tracker backend: %s", c.Tracker.Backend)
	}

	switch c.Scraper.Kind {
	case "null":
	case "links":
		if c.Scraper.Pattern == "" {
			return fmt.Errorf("scraper.pattern must be set for the links scraper")
		}
	case "ids":
		if c.Scraper.URLFmt == "" || c.Scraper.Pattern == "" {
			return fmt.Errorf("scraper.url_fmt and scraper.pattern must be set for the ids scraper")
		}
	default:
		return fmt.Errorf("unknown scraper kind: %s", c.Scraper.Kind)
	}
	if c.Scraper.Fetcher != "resty" && c.Scraper.Fetcher != "colly" {
		return fmt.Errorf("unknown scraper fetcher: %s", c.Scraper.Fetcher)
	}

	switch c.Saver.Kind {
	case "null":
	case "file":
		if c.Saver.BaseDir == "" {
			return fmt.Errorf("saver.base_dir must be set for the file saver")
		}
	case "tar":
		if c.Saver.TarPath == "" {
			return fmt.Errorf("saver.tar_path must be set for the tar saver")
		}
	case "redis":
		if c.Saver.RedisAddr == "" {
			return fmt.Errorf("saver.redis_addr must be set for the redis saver")
		}
	case "gcs":
		if c.Saver.GCSBucket == "" {
			return fmt.Errorf("saver.gcs_bucket must be set for the gcs saver")
		}
	default:
		return fmt.Errorf("unknown saver kind: %s", c.Saver.Kind)
	}

	switch c.Events.Backend {
	case "none":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set for pubsub events")
		}
	default:
		return fmt.Errorf("unknown events backend: %s", c.Events.Backend)
	}

	return nil
}
