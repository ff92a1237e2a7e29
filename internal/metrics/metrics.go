// Package metrics exposes Prometheus collectors for the sitepack service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	workflowStepsTotal     *prometheus.CounterVec
	workflowInstancesTotal *prometheus.CounterVec
	scraperPagesTotal      *prometheus.CounterVec
	archiveBytesTotal      prometheus.Counter
	archivesTotal          prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		workflowStepsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepack_workflow_steps_total",
				Help: "Total step executions, labeled by step and outcome.",
			},
			[]string{"step", "outcome"},
		)

		workflowInstancesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepack_workflow_instances_total",
				Help: "Total instances that reached a terminal status.",
			},
			[]string{"status"},
		)

		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepack_scraper_pages_total",
				Help: "Total per-page extraction attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		archiveBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitepack_archive_bytes_total",
				Help: "Total bytes of archives uploaded to object storage.",
			},
		)

		archivesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitepack_archives_total",
				Help: "Total archives uploaded to object storage.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StepCompleted records a step that committed a fresh result.
func StepCompleted(step string) {
	observeStep(step, "completed")
}

// StepReplayed records a step skipped because its result was already logged.
func StepReplayed(step string) {
	observeStep(step, "replayed")
}

// StepRetried records a step attempt that will be retried.
func StepRetried(step string) {
	observeStep(step, "retried")
}

// StepFailed records a failed step attempt.
func StepFailed(step string) {
	observeStep(step, "failed")
}

func observeStep(step, outcome string) {
	if workflowStepsTotal == nil {
		return
	}
	workflowStepsTotal.WithLabelValues(step, outcome).Inc()
}

// InstanceFinished records an instance reaching a terminal status.
func InstanceFinished(status string) {
	if workflowInstancesTotal == nil {
		return
	}
	workflowInstancesTotal.WithLabelValues(status).Inc()
}

// PageScraped records a successful per-page extraction.
func PageScraped() {
	observePage("scraped")
}

// PageSkipped records a per-page extraction skip.
func PageSkipped() {
	observePage("skipped")
}

func observePage(outcome string) {
	if scraperPagesTotal == nil {
		return
	}
	scraperPagesTotal.WithLabelValues(outcome).Inc()
}

// ArchiveUploaded records a stored archive and its size.
func ArchiveUploaded(size int) {
	if archivesTotal == nil || archiveBytesTotal == nil {
		return
	}
	archivesTotal.Inc()
	archiveBytesTotal.Add(float64(size))
}
