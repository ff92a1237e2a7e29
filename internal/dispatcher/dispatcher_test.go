package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitepack/sitepack/internal/queue/memory"
	"github.com/sitepack/sitepack/internal/worker"
	"github.com/sitepack/sitepack/internal/workflow"
)

func TestDispatcherEnqueueProxiesToQueue(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(4)
	d := New(q, nil)

	ctx := context.Background()
	require.NoError(t, d.Enqueue(ctx, workflow.QueueItem{InstanceID: "inst-1"}))

	item, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "inst-1", item.InstanceID)
}

func TestDispatcherRunStopsAllWorkersOnCancel(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	workers := []*worker.Worker{
		worker.New(q, nil, nil),
		worker.New(q, nil, nil),
	}
	d := New(q, workers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancellation")
	}
}
