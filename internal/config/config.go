// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Sitemap  SitemapConfig  `mapstructure:"sitemap"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Store    StoreConfig    `mapstructure:"store"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// WorkflowConfig governs instance execution.
type WorkflowConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// SitemapConfig bounds link discovery.
type SitemapConfig struct {
	MaxLinks       int    `mapstructure:"max_links"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// ScraperConfig configures the content-extraction client.
type ScraperConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIToken       string `mapstructure:"api_token"`
	DelaySeconds   int    `mapstructure:"delay_seconds"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects and configures the archive blob store.
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	ContentType   string `mapstructure:"content_type"`
}

// StoreConfig selects the durable instance/step store.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// PubSubConfig holds metadata for completion-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEPACK")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("workflow.workers", 4)
	v.SetDefault("workflow.queue_depth", 64)
	v.SetDefault("sitemap.max_links", 10)
	v.SetDefault("sitemap.timeout_seconds", 60)
	v.SetDefault("sitemap.user_agent", "sitepack-bot/0.1")
	v.SetDefault("scraper.delay_seconds", 3)
	v.SetDefault("scraper.timeout_seconds", 30)
	// Empty defaults register the keys so AutomaticEnv can supply them.
	v.SetDefault("scraper.api_url", "")
	v.SetDefault("scraper.api_token", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.gcs_bucket", "sitepack-archives")
	v.SetDefault("storage.public_base_url", "https://storage.googleapis.com/sitepack-archives")
	v.SetDefault("storage.content_type", "application/zip")
	v.SetDefault("store.provider", "memory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Workflow.Workers <= 0 {
		return fmt.Errorf("workflow.workers must be > 0")
	}
	if c.Sitemap.MaxLinks <= 0 {
		return fmt.Errorf("sitemap.max_links must be > 0")
	}
	if c.Scraper.APIURL == "" {
		return fmt.Errorf("scraper.api_url must be set")
	}
	if c.Storage.PublicBaseURL == "" {
		return fmt.Errorf("storage.public_base_url must be set")
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	if c.Store.Provider == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn must be set when store.provider is postgres")
	}
	return nil
}

// ScrapeDelay converts the configured per-request delay into a duration.
func (c Config) ScrapeDelay() time.Duration {
	return time.Duration(c.Scraper.DelaySeconds) * time.Second
}

// SitemapTimeout converts the sitemap fetch timeout into a duration.
func (c Config) SitemapTimeout() time.Duration {
	return time.Duration(c.Sitemap.TimeoutSeconds) * time.Second
}

// ScrapeTimeout converts the extraction request timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}
