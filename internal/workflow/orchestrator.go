package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sitepack/sitepack/internal/metrics"
)

// ErrInvalidPayload marks validation failures rejected before any step runs.
var ErrInvalidPayload = errors.New("invalid payload")

// Config controls Orchestrator behavior.
type Config struct {
	PublicBaseURL string
	Topic         string
	Steps         StepConfigs
}

// Orchestrator owns instance identity and status. It runs the fixed step
// sequence for an instance, memoizing each committed step result so a resumed
// or retried run never re-executes a completed step.
type Orchestrator struct {
	instances InstanceStore
	stepLog   StepLog
	queue     Queue
	blobs     BlobStore
	publisher Publisher
	extractor LinkExtractor
	scraper   PageScraper
	archiver  Archiver
	clock     Clock
	idGen     IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	instances InstanceStore,
	stepLog StepLog,
	queue Queue,
	blobs BlobStore,
	publisher Publisher,
	extractor LinkExtractor,
	scraper PageScraper,
	archiver Archiver,
	clock Clock,
	idGen IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Steps == (StepConfigs{}) {
		cfg.Steps = DefaultStepConfigs()
	}
	return &Orchestrator{
		instances: instances,
		stepLog:   stepLog,
		queue:     queue,
		blobs:     blobs,
		publisher: publisher,
		extractor: extractor,
		scraper:   scraper,
		archiver:  archiver,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create validates the payload, persists a queued instance, and enqueues it.
// Validation failures never reach the step log.
func (o *Orchestrator) Create(ctx context.Context, payload Payload) (Instance, error) {
	if strings.TrimSpace(payload.SitemapURL) == "" {
		return Instance{}, fmt.Errorf("%w: sitemapUrl is required", ErrInvalidPayload)
	}
	id, err := o.idGen.NewID()
	if err != nil {
		return Instance{}, fmt.Errorf("generate instance id: %w", err)
	}
	now := o.clock.Now()
	inst := Instance{
		ID:        id,
		Status:    StatusQueued,
		Payload:   payload,
		Submitted: now,
	}
	if err := o.instances.CreateInstance(ctx, inst); err != nil {
		return Instance{}, fmt.Errorf("create instance: %w", err)
	}
	item := QueueItem{
		InstanceID: id,
		Payload:    payload,
		Submitted:  now.Unix(),
	}
	if err := o.queue.Enqueue(ctx, item); err != nil {
		return Instance{}, fmt.Errorf("enqueue instance: %w", err)
	}
	return inst, nil
}

// Status looks up an instance by id.
func (o *Orchestrator) Status(ctx context.Context, id string) (Instance, error) {
	inst, err := o.instances.GetInstance(ctx, id)
	if err != nil {
		return Instance{}, err
	}
	return inst, nil
}

// Run drives one instance to a terminal state, resuming from the first
// uncommitted step.
func (o *Orchestrator) Run(ctx context.Context, instanceID string) {
	inst, err := o.instances.GetInstance(ctx, instanceID)
	if err != nil {
		o.logger.Error("load instance failed", zap.String("instance_id", instanceID), zap.Error(err))
		return
	}
	if inst.Status.IsTerminal() {
		o.logger.Debug("instance already terminal", zap.String("instance_id", instanceID))
		return
	}
	if err := o.instances.UpdateInstanceStatus(ctx, instanceID, StatusRunning, "", ""); err != nil {
		o.logger.Error("mark instance running failed", zap.String("instance_id", instanceID), zap.Error(err))
		return
	}

	result, err := o.execute(ctx, inst)
	if err != nil {
		o.finish(ctx, instanceID, StatusErrored, err.Error(), "")
		return
	}
	o.finish(ctx, instanceID, StatusComplete, "", result.DownloadURL)
}

// runState enumerates the orchestrator's state machine: one state per durable
// step plus the two terminal states.
type runState int

const (
	stateGetSitemapURL runState = iota
	stateFetchSitemap
	stateScrapePages
	stateZipAndUpload
	stateGenerateResult
	stateComplete
)

// zipUploadResult is the memoized result of the Zip and Upload step.
type zipUploadResult struct {
	Name     string   `json:"name"`
	FileList []string `json:"file_list"`
	Size     int      `json:"size"`
}

func (o *Orchestrator) execute(ctx context.Context, inst Instance) (DownloadResult, error) {
	var (
		sitemapURL string
		links      []string
		pages      []Page
		upload     zipUploadResult
		result     DownloadResult
		err        error
	)

	state := stateGetSitemapURL
	for {
		switch state {
		case stateGetSitemapURL:
			sitemapURL, err = runStep(ctx, o, inst.ID, o.cfg.Steps.GetSitemapURL,
				func(context.Context) (string, error) {
					if strings.TrimSpace(inst.Payload.SitemapURL) == "" {
						return "", fmt.Errorf("%w: payload has no sitemap url", ErrInvalidPayload)
					}
					return inst.Payload.SitemapURL, nil
				})
			if err != nil {
				return DownloadResult{}, err
			}
			state = stateFetchSitemap

		case stateFetchSitemap:
			links, err = runStep(ctx, o, inst.ID, o.cfg.Steps.FetchSitemap,
				func(stepCtx context.Context) ([]string, error) {
					return o.extractor.ExtractLinks(stepCtx, sitemapURL)
				})
			if err != nil {
				return DownloadResult{}, err
			}
			state = stateScrapePages

		case stateScrapePages:
			pages, err = runStep(ctx, o, inst.ID, o.cfg.Steps.ScrapePages,
				func(stepCtx context.Context) ([]Page, error) {
					return o.scraper.ScrapePages(stepCtx, links)
				})
			if err != nil {
				return DownloadResult{}, err
			}
			state = stateZipAndUpload

		case stateZipAndUpload:
			upload, err = runStep(ctx, o, inst.ID, o.cfg.Steps.ZipAndUpload,
				func(stepCtx context.Context) (zipUploadResult, error) {
					return o.zipAndUpload(stepCtx, sitemapURL, pages)
				})
			if err != nil {
				return DownloadResult{}, err
			}
			state = stateGenerateResult

		case stateGenerateResult:
			result, err = runStep(ctx, o, inst.ID, o.cfg.Steps.GenerateResult,
				func(context.Context) (DownloadResult, error) {
					return DownloadResult{DownloadURL: o.downloadURL(upload.Name)}, nil
				})
			if err != nil {
				return DownloadResult{}, err
			}
			state = stateComplete

		case stateComplete:
			return result, nil
		}
	}
}

func (o *Orchestrator) zipAndUpload(ctx context.Context, sitemapURL string, pages []Page) (zipUploadResult, error) {
	name, err := o.archiver.ArchiveName(sitemapURL, o.clock.Now())
	if err != nil {
		return zipUploadResult{}, fmt.Errorf("derive archive name: %w", err)
	}
	artifact, err := o.archiver.Build(name, pages)
	if err != nil {
		return zipUploadResult{}, fmt.Errorf("build archive: %w", err)
	}
	if _, err := o.blobs.PutObject(ctx, artifact.Name, "application/zip", artifact.Bytes); err != nil {
		return zipUploadResult{}, fmt.Errorf("put object: %w", err)
	}
	metrics.ArchiveUploaded(artifact.Size)
	return zipUploadResult{
		Name:     artifact.Name,
		FileList: artifact.FileList,
		Size:     artifact.Size,
	}, nil
}

// downloadURL substitutes the archive name into the public-access template.
// The archive name alone determines the public URL.
func (o *Orchestrator) downloadURL(archiveName string) string {
	return strings.TrimRight(o.cfg.PublicBaseURL, "/") + "/" + archiveName
}

func (o *Orchestrator) finish(ctx context.Context, instanceID string, status Status, errText, downloadURL string) {
	if err := o.instances.UpdateInstanceStatus(ctx, instanceID, status, errText, downloadURL); err != nil {
		o.logger.Error("final instance status update failed",
			zap.String("instance_id", instanceID), zap.Error(err))
	}
	metrics.InstanceFinished(string(status))
	if status == StatusErrored {
		o.logger.Warn("instance errored", zap.String("instance_id", instanceID), zap.String("error", errText))
	} else {
		o.logger.Info("instance complete",
			zap.String("instance_id", instanceID), zap.String("download_url", downloadURL))
	}
	o.publishCompletion(ctx, instanceID, status, downloadURL)
}

func (o *Orchestrator) publishCompletion(ctx context.Context, instanceID string, status Status, downloadURL string) {
	if o.cfg.Topic == "" || o.publisher == nil {
		return
	}
	payload := map[string]any{
		"instance_id":  instanceID,
		"status":       string(status),
		"download_url": downloadURL,
		"timestamp":    o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Warn("publish completion event failed",
			zap.String("instance_id", instanceID), zap.Error(err))
	}
}

// runStep executes one durable step. A result already present in the step log
// is decoded and returned without re-invoking the step. A fresh result is
// committed to the log before it is handed to the next step. Failures are
// wrapped with the step's name and retried per the step's policy.
func runStep[T any](
	ctx context.Context,
	o *Orchestrator,
	instanceID string,
	cfg StepConfig,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	raw, ok, err := o.stepLog.GetStepResult(ctx, instanceID, cfg.Name)
	if err != nil {
		return zero, fmt.Errorf("%s failed: load step result: %w", cfg.Name, err)
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("%s failed: decode step result: %w", cfg.Name, err)
		}
		o.logger.Debug("step replayed from log",
			zap.String("instance_id", instanceID), zap.String("step", cfg.Name))
		metrics.StepReplayed(cfg.Name)
		return v, nil
	}

	attempt := 0
	for {
		stepCtx := ctx
		cancel := func() {}
		if cfg.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		v, err := fn(stepCtx)
		cancel()

		if err == nil {
			encoded, err := json.Marshal(v)
			if err != nil {
				return zero, fmt.Errorf("%s failed: encode step result: %w", cfg.Name, err)
			}
			if err := o.stepLog.PutStepResult(ctx, instanceID, cfg.Name, encoded); err != nil {
				return zero, fmt.Errorf("%s failed: commit step result: %w", cfg.Name, err)
			}
			metrics.StepCompleted(cfg.Name)
			return v, nil
		}

		metrics.StepFailed(cfg.Name)
		if attempt >= cfg.Retries || ctx.Err() != nil {
			return zero, fmt.Errorf("%s failed: %w", cfg.Name, err)
		}
		wait := cfg.Backoff(attempt)
		o.logger.Warn("step attempt failed",
			zap.String("instance_id", instanceID),
			zap.String("step", cfg.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))
		metrics.StepRetried(cfg.Name)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s failed: %w", cfg.Name, ctx.Err())
		case <-time.After(wait):
		}
		attempt++
	}
}
