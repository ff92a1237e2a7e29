// Package scraper converts candidate URLs into readable documents via the
// external content-extraction API.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sitepack/sitepack/internal/metrics"
	"github.com/sitepack/sitepack/internal/workflow"
)

// DefaultRequestDelay is the unconditional pause between extraction requests,
// respecting the external service's rate limit.
const DefaultRequestDelay = 3 * time.Second

// Config controls the extraction client and loop pacing.
type Config struct {
	APIURL       string
	APIToken     string
	RequestDelay time.Duration
	Timeout      time.Duration
}

// Scraper implements workflow.PageScraper.
type Scraper struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
}

type extractRequest struct {
	URL             string          `json:"url"`
	ContextSelector string          `json:"contextSelector"`
	Markdown        markdownOptions `json:"markdown"`
}

type markdownOptions struct {
	Images bool        `json:"images"`
	Links  linkOptions `json:"links"`
}

type linkOptions struct {
	Type           string `json:"type"`
	ResourceLinks  bool   `json:"resourceLinks"`
	IncludeAnchors bool   `json:"includeAnchors"`
}

type extractResponse struct {
	Markdown string `json:"markdown"`
}

// New constructs a Scraper.
func New(cfg Config, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = DefaultRequestDelay
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIToken)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Scraper{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// ScrapePages processes URLs strictly serially. A failed extraction is a
// per-URL skip, never fatal; the run fails only when every URL is skipped.
// The loop pauses RequestDelay between iterations whether or not the previous
// page succeeded.
func (s *Scraper) ScrapePages(ctx context.Context, urls []string) ([]workflow.Page, error) {
	pages := make([]workflow.Page, 0, len(urls))
	assigned := make(map[string]int)
	skipped := 0

	for i, pageURL := range urls {
		page, err := s.scrapeOne(ctx, pageURL)
		if err != nil {
			skipped++
			metrics.PageSkipped()
			s.logger.Warn("page skipped", zap.String("url", pageURL), zap.Error(err))
		} else {
			page.FileName = disambiguate(assigned, page.FileName)
			pages = append(pages, page)
			metrics.PageScraped()
			s.logger.Debug("page scraped",
				zap.String("url", pageURL), zap.String("file_name", page.FileName))
		}
		if i < len(urls)-1 {
			if err := s.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	if len(pages) == 0 {
		return nil, workflow.ErrAllPagesFailed
	}
	s.logger.Info("scrape loop finished",
		zap.Int("scraped", len(pages)), zap.Int("skipped", skipped))
	return pages, nil
}

func (s *Scraper) scrapeOne(ctx context.Context, pageURL string) (workflow.Page, error) {
	var out extractResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(extractRequest{
			URL:             pageURL,
			ContextSelector: "",
			Markdown: markdownOptions{
				Images: false,
				Links: linkOptions{
					Type:           "ALL",
					ResourceLinks:  true,
					IncludeAnchors: true,
				},
			},
		}).
		SetResult(&out).
		Post(s.cfg.APIURL)
	if err != nil {
		return workflow.Page{}, fmt.Errorf("extraction request: %w", err)
	}
	if resp.IsError() {
		return workflow.Page{}, &workflow.FetchStatusError{URL: pageURL, StatusCode: resp.StatusCode()}
	}
	name, err := FileNameForURL(pageURL)
	if err != nil {
		return workflow.Page{}, err
	}
	return workflow.Page{
		FileName:  name,
		Content:   out.Markdown,
		SourceURL: pageURL,
	}, nil
}

func (s *Scraper) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape loop canceled: %w", ctx.Err())
	case <-time.After(s.cfg.RequestDelay):
		return nil
	}
}
