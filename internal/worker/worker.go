// Package worker implements the workflow execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitepack/sitepack/internal/workflow"
)

// Worker consumes queue items and drives instances to a terminal state.
type Worker struct {
	queue        workflow.Queue
	orchestrator *workflow.Orchestrator
	logger       *zap.Logger
}

// New constructs a Worker.
func New(queue workflow.Queue, orchestrator *workflow.Orchestrator, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:        queue,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Run blocks, consuming queue items until the context finishes. Each item is
// run on its own logical thread of control; suspensions inside one instance
// never block another worker's instance.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued instance", zap.String("instance_id", item.InstanceID))
		w.orchestrator.Run(ctx, item.InstanceID)
	}
}
