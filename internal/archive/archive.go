// Package archive assembles scraped pages into a single zip blob.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/sitepack/sitepack/internal/workflow"
)

// timestampLayout is filesystem-safe and carries nanosecond resolution so
// concurrent instances for the same host cannot collide on the archive name.
const timestampLayout = "20060102T150405.000000000"

// Builder implements workflow.Archiver.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ArchiveName derives the stored archive name from the sitemap URL's host
// (non-alphanumerics replaced with underscores) and the upload moment.
func (Builder) ArchiveName(sitemapURL string, at time.Time) (string, error) {
	u, err := url.Parse(sitemapURL)
	if err != nil {
		return "", fmt.Errorf("parse sitemap url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("sitemap url %q has no host", sitemapURL)
	}
	return fmt.Sprintf("%s_%s.zip", sanitizeHost(host), at.UTC().Format(timestampLayout)), nil
}

// Build packages the pages into a zip in input order. It is a pure function
// of its input: the same page list yields the same file membership and order.
func (Builder) Build(name string, pages []workflow.Page) (workflow.Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fileList := make([]string, 0, len(pages))
	for _, page := range pages {
		entry, err := zw.Create(page.FileName)
		if err != nil {
			return workflow.Artifact{}, fmt.Errorf("create archive entry %s: %w", page.FileName, err)
		}
		if _, err := entry.Write([]byte(page.Content)); err != nil {
			return workflow.Artifact{}, fmt.Errorf("write archive entry %s: %w", page.FileName, err)
		}
		fileList = append(fileList, page.FileName)
	}
	if err := zw.Close(); err != nil {
		return workflow.Artifact{}, fmt.Errorf("finalize archive: %w", err)
	}
	return workflow.Artifact{
		Name:     name,
		Bytes:    buf.Bytes(),
		FileList: fileList,
		Size:     buf.Len(),
	}, nil
}

func sanitizeHost(host string) string {
	out := make([]rune, 0, len(host))
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
