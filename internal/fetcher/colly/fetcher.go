// Package collyfetcher implements DocumentFetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sitepack/sitepack/internal/workflow"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements workflow.DocumentFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// The document URL is caller-supplied; robots rules do not apply to a
	// single direct GET of the caller's own sitemap.
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// FetchDocument executes a single HTTP GET using Colly. A response with a
// non-2xx status is returned as a document with that status, not as an error.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (workflow.FetchedDocument, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		doc      workflow.FetchedDocument
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		doc = workflow.FetchedDocument{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			doc = workflow.FetchedDocument{
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return workflow.FetchedDocument{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if doc.StatusCode != 0 {
			return doc, nil
		}
		if fetchErr != nil {
			return workflow.FetchedDocument{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if err != nil {
			return workflow.FetchedDocument{}, fmt.Errorf("fetch %s: %w", url, err)
		}
		return doc, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
