package workflow

import (
	"context"
	"time"
)

// InstanceStore persists workflow instance metadata.
type InstanceStore interface {
	CreateInstance(ctx context.Context, inst Instance) error
	UpdateInstanceStatus(ctx context.Context, id string, status Status, errText string, downloadURL string) error
	GetInstance(ctx context.Context, id string) (Instance, error)
}

// StepLog persists committed step results. PutStepResult must be idempotent:
// committing a result for an already-committed step is a no-op, never an
// overwrite, so a replayed step cannot change history.
type StepLog interface {
	PutStepResult(ctx context.Context, instanceID string, stepName string, result []byte) error
	GetStepResult(ctx context.Context, instanceID string, stepName string) ([]byte, bool, error)
}

// DocumentFetcher retrieves a document over plain HTTP GET. A non-2xx
// response is returned as a document, not an error; the caller decides.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (FetchedDocument, error)
}

// LinkExtractor discovers candidate page URLs from a sitemap document.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, sitemapURL string) ([]string, error)
}

// PageScraper converts candidate URLs into readable documents.
type PageScraper interface {
	ScrapePages(ctx context.Context, urls []string) ([]Page, error)
}

// Archiver assembles pages into a single named archive blob.
type Archiver interface {
	ArchiveName(sitemapURL string, at time.Time) (string, error)
	Build(name string, pages []Page) (Artifact, error)
}

// BlobStore writes archive blobs and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for workflow instances.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces instance IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
