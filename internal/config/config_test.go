package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SITEPACK_SCRAPER_API_URL", "https://extract.example.com/v1")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Workflow.Workers)
	require.Equal(t, 64, cfg.Workflow.QueueDepth)
	require.Equal(t, 10, cfg.Sitemap.MaxLinks)
	require.Equal(t, "sitepack-bot/0.1", cfg.Sitemap.UserAgent)
	require.Equal(t, "memory", cfg.Storage.Provider)
	require.Equal(t, "memory", cfg.Store.Provider)
	require.Equal(t, "https://storage.googleapis.com/sitepack-archives", cfg.Storage.PublicBaseURL)
	require.Equal(t, "application/zip", cfg.Storage.ContentType)
	require.True(t, cfg.Logging.Development)

	require.Equal(t, 3*time.Second, cfg.ScrapeDelay())
	require.Equal(t, 60*time.Second, cfg.SitemapTimeout())
	require.Equal(t, 30*time.Second, cfg.ScrapeTimeout())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SITEPACK_SCRAPER_API_URL", "https://extract.example.com/v1")
	t.Setenv("SITEPACK_SCRAPER_API_TOKEN", "secret")
	t.Setenv("SITEPACK_SERVER_PORT", "9090")
	t.Setenv("SITEPACK_SCRAPER_DELAY_SECONDS", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://extract.example.com/v1", cfg.Scraper.APIURL)
	require.Equal(t, "secret", cfg.Scraper.APIToken)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, time.Second, cfg.ScrapeDelay())
}

func TestLoadRequiresScraperAPIURL(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "scraper.api_url")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:   ServerConfig{Port: 8080},
		Workflow: WorkflowConfig{Workers: 4, QueueDepth: 64},
		Sitemap:  SitemapConfig{MaxLinks: 10},
		Scraper:  ScraperConfig{APIURL: "https://extract.example.com/v1"},
		Storage: StorageConfig{
			Provider:      "memory",
			PublicBaseURL: "https://storage.googleapis.com/sitepack-archives",
		},
		Store: StoreConfig{Provider: "memory"},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero workers", func(c *Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"zero max links", func(c *Config) { c.Sitemap.MaxLinks = 0 }, "sitemap.max_links"},
		{"missing public base url", func(c *Config) { c.Storage.PublicBaseURL = "" }, "storage.public_base_url"},
		{"gcs without bucket", func(c *Config) { c.Storage.Provider = "gcs" }, "storage.gcs_bucket"},
		{"postgres without dsn", func(c *Config) { c.Store.Provider = "postgres" }, "store.dsn"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
