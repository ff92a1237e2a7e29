// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sitepack/sitepack/internal/workflow"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan workflow.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan workflow.QueueItem, capacity),
	}
}

// Enqueue pushes an instance into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item workflow.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next instance, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (workflow.QueueItem, error) {
	select {
	case <-ctx.Done():
		return workflow.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return workflow.QueueItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
