package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitepack/sitepack/internal/workflow"
)

func queuedInstance(id string) workflow.Instance {
	return workflow.Instance{
		ID:        id,
		Status:    workflow.StatusQueued,
		Payload:   workflow.Payload{SitemapURL: "https://example.com/sitemap.xml"},
		Submitted: time.Now().UTC(),
	}
}

func TestCreateAndGetInstance(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateInstance(ctx, queuedInstance("inst-1")))

	got, err := s.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusQueued, got.Status)
	require.Equal(t, "https://example.com/sitemap.xml", got.Payload.SitemapURL)

	require.Error(t, s.CreateInstance(ctx, queuedInstance("inst-1")))
}

func TestGetInstance_Unknown(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, err := s.GetInstance(context.Background(), "missing")
	require.ErrorIs(t, err, workflow.ErrInstanceNotFound)
}

func TestUpdateInstanceStatus_Lifecycle(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateInstance(ctx, queuedInstance("inst-1")))

	require.NoError(t, s.UpdateInstanceStatus(ctx, "inst-1", workflow.StatusRunning, "", ""))
	running, err := s.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusRunning, running.Status)
	require.NotNil(t, running.Started)
	require.Nil(t, running.Finished)

	require.NoError(t, s.UpdateInstanceStatus(ctx, "inst-1", workflow.StatusComplete, "", "https://example.com/a.zip"))
	done, err := s.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusComplete, done.Status)
	require.Equal(t, "https://example.com/a.zip", done.DownloadURL)
	require.NotNil(t, done.Finished)
	// Started is set once, on the first transition to running.
	require.Equal(t, running.Started, done.Started)
}

func TestUpdateInstanceStatus_KeepsDownloadURLWhenOmitted(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateInstance(ctx, queuedInstance("inst-1")))
	require.NoError(t, s.UpdateInstanceStatus(ctx, "inst-1", workflow.StatusComplete, "", "https://example.com/a.zip"))
	require.NoError(t, s.UpdateInstanceStatus(ctx, "inst-1", workflow.StatusComplete, "", ""))

	got, err := s.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a.zip", got.DownloadURL)
}

func TestUpdateInstanceStatus_Unknown(t *testing.T) {
	t.Parallel()

	s := NewStore()
	err := s.UpdateInstanceStatus(context.Background(), "missing", workflow.StatusRunning, "", "")
	require.ErrorIs(t, err, workflow.ErrInstanceNotFound)
}

func TestStepLog_PutIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.PutStepResult(ctx, "inst-1", workflow.StepFetchSitemap, []byte(`["a"]`)))
	// A second commit must not overwrite the first.
	require.NoError(t, s.PutStepResult(ctx, "inst-1", workflow.StepFetchSitemap, []byte(`["b"]`)))

	got, ok, err := s.GetStepResult(ctx, "inst-1", workflow.StepFetchSitemap)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `["a"]`, string(got))
}

func TestStepLog_MissingStep(t *testing.T) {
	t.Parallel()

	s := NewStore()
	got, ok, err := s.GetStepResult(context.Background(), "inst-1", workflow.StepScrapePages)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestStepLog_IsolatesInstances(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.PutStepResult(ctx, "inst-1", workflow.StepFetchSitemap, []byte(`["a"]`)))

	_, ok, err := s.GetStepResult(ctx, "inst-2", workflow.StepFetchSitemap)
	require.NoError(t, err)
	require.False(t, ok)
}
