package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced through the step pipeline.
var (
	// ErrInstanceNotFound is returned for status lookups on unknown ids.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrNoLinks means the sitemap document yielded zero candidate URLs.
	ErrNoLinks = errors.New("no links found in sitemap")

	// ErrAllPagesFailed means every candidate URL was skipped.
	ErrAllPagesFailed = errors.New("all pages failed to scrape")
)

// FetchStatusError reports a non-2xx response while fetching a document.
type FetchStatusError struct {
	URL        string
	StatusCode int
}

func (e *FetchStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
