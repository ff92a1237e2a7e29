package workflow

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Step names, in execution order. Step results are memoized under these
// names, so they are part of the persisted contract and must not change.
const (
	StepGetSitemapURL  = "Get Sitemap URL"
	StepFetchSitemap   = "Fetch & Parse Sitemap"
	StepScrapePages    = "Scrape Pages"
	StepZipAndUpload   = "Zip and Upload"
	StepGenerateResult = "Generate Result"
)

// StepConfig is the retry/timeout policy for a single durable step.
type StepConfig struct {
	Name      string
	Retries   int // re-attempts after the first try
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration
}

// StepConfigs holds the per-step policies for one workflow run.
type StepConfigs struct {
	GetSitemapURL  StepConfig
	FetchSitemap   StepConfig
	ScrapePages    StepConfig
	ZipAndUpload   StepConfig
	GenerateResult StepConfig
}

// DefaultStepConfigs returns the standard per-step policies. The sitemap
// fetch is deliberately not retried: a bad sitemap URL should fail fast.
func DefaultStepConfigs() StepConfigs {
	return StepConfigs{
		GetSitemapURL: StepConfig{
			Name:      StepGetSitemapURL,
			Retries:   2,
			BaseDelay: 250 * time.Millisecond,
			MaxDelay:  5 * time.Second,
			Timeout:   30 * time.Second,
		},
		FetchSitemap: StepConfig{
			Name:    StepFetchSitemap,
			Retries: 0,
			Timeout: 10 * time.Minute,
		},
		ScrapePages: StepConfig{
			Name:      StepScrapePages,
			Retries:   2,
			BaseDelay: 5 * time.Second,
			MaxDelay:  60 * time.Second,
			Timeout:   15 * time.Minute,
		},
		ZipAndUpload: StepConfig{
			Name:      StepZipAndUpload,
			Retries:   4,
			BaseDelay: time.Second,
			MaxDelay:  30 * time.Second,
			Timeout:   5 * time.Minute,
		},
		GenerateResult: StepConfig{
			Name:    StepGenerateResult,
			Retries: 0,
			Timeout: 10 * time.Second,
		},
	}
}

// Backoff returns the jittered wait before re-attempt number attempt
// (0-based count of completed failed tries).
func (c StepConfig) Backoff(attempt int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	maxDelay := c.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	delay := float64(base) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
