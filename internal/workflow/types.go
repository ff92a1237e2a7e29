// Package workflow defines core types shared across subsystems.
package workflow

import (
	"time"
)

// Status represents the lifecycle state of a workflow instance.
type Status string

// Instance status values persisted in the instance store.
const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusErrored  Status = "errored"
)

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusErrored
}

// Payload is the caller-supplied input for a workflow instance.
type Payload struct {
	SitemapURL string `json:"sitemapUrl"`
}

// Instance represents the metadata persisted for each submitted workflow.
type Instance struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Payload     Payload    `json:"payload"`
	ErrorText   string     `json:"error_text,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	Submitted   time.Time  `json:"submitted_at"`
	Started     *time.Time `json:"started_at,omitempty"`
	Finished    *time.Time `json:"finished_at,omitempty"`
}

// Page is a single scraped document destined for the archive.
type Page struct {
	FileName  string `json:"file_name"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
}

// Artifact is the assembled archive blob plus its manifest.
type Artifact struct {
	Name     string   `json:"name"`
	Bytes    []byte   `json:"-"`
	FileList []string `json:"file_list"`
	Size     int      `json:"size"`
}

// DownloadResult is the terminal output of a completed instance.
type DownloadResult struct {
	DownloadURL string `json:"downloadUrl"`
}

// FetchedDocument is the raw result of a plain HTTP GET for a document.
type FetchedDocument struct {
	StatusCode int
	Body       []byte
}

// QueueItem wraps an instance ready to run.
type QueueItem struct {
	InstanceID string
	Payload    Payload
	Submitted  int64
}
