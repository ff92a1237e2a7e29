// Package sitemap discovers candidate page URLs from a sitemap document.
package sitemap

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sitepack/sitepack/internal/workflow"
)

// DefaultMaxLinks bounds scraping cost and request volume per run.
const DefaultMaxLinks = 10

// The document is scanned textually rather than XML-decoded so that HTML
// link listings masquerading as sitemaps are tolerated.
var (
	locPattern  = regexp.MustCompile(`(?is)<loc>\s*(.*?)\s*</loc>`)
	hrefPattern = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']+)["']`)
)

// Config controls extraction limits.
type Config struct {
	MaxLinks int
}

// Extractor implements workflow.LinkExtractor.
type Extractor struct {
	fetcher workflow.DocumentFetcher
	cfg     Config
	logger  *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(fetcher workflow.DocumentFetcher, cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = DefaultMaxLinks
	}
	return &Extractor{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// ExtractLinks fetches the sitemap and returns a deduplicated, bounded list
// of candidate URLs: <loc> entries first, then anchor hrefs, each in
// first-seen order, truncated to MaxLinks.
func (e *Extractor) ExtractLinks(ctx context.Context, sitemapURL string) ([]string, error) {
	doc, err := e.fetcher.FetchDocument(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if doc.StatusCode < 200 || doc.StatusCode >= 300 {
		return nil, &workflow.FetchStatusError{URL: sitemapURL, StatusCode: doc.StatusCode}
	}

	body := string(doc.Body)
	links := make([]string, 0, e.cfg.MaxLinks)
	seen := make(map[string]struct{})
	add := func(raw string) {
		link := strings.TrimSpace(raw)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	for _, m := range locPattern.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	for _, m := range hrefPattern.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	if len(links) == 0 {
		return nil, workflow.ErrNoLinks
	}
	total := len(links)
	if total > e.cfg.MaxLinks {
		links = links[:e.cfg.MaxLinks]
	}
	e.logger.Info("sitemap parsed",
		zap.String("sitemap_url", sitemapURL),
		zap.Int("unique_links", total),
		zap.Int("selected", len(links)),
	)
	return links, nil
}
