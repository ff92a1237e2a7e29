package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/sitepack/sitepack/internal/workflow"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestCreateInstanceInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	inst := workflow.Instance{
		ID:        "inst-1",
		Status:    workflow.StatusQueued,
		Payload:   workflow.Payload{SitemapURL: "https://example.com/sitemap.xml"},
		Submitted: now,
	}

	mock.ExpectExec("INSERT INTO workflow_instances").
		WithArgs(inst.ID, "queued", inst.Payload.SitemapURL, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateInstance(context.Background(), inst))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInstanceStatus(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE workflow_instances").
		WithArgs("inst-1", "complete", "", "https://example.com/a.zip", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateInstanceStatus(
		context.Background(), "inst-1", workflow.StatusComplete, "", "https://example.com/a.zip")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInstanceStatusUnknownID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE workflow_instances").
		WithArgs("missing", "running", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateInstanceStatus(context.Background(), "missing", workflow.StatusRunning, "", "")
	require.ErrorIs(t, err, workflow.ErrInstanceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInstance(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	submitted := time.Unix(1700000000, 0).UTC()
	started := submitted.Add(time.Second)
	finished := submitted.Add(time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "status", "sitemap_url", "error_text", "download_url",
		"submitted_at", "started_at", "finished_at",
	}).AddRow(
		"inst-1", "complete", "https://example.com/sitemap.xml", "", "https://example.com/a.zip",
		submitted, &started, &finished,
	)
	mock.ExpectQuery("SELECT id, status, sitemap_url").
		WithArgs("inst-1").
		WillReturnRows(rows)

	inst, err := store.GetInstance(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusComplete, inst.Status)
	require.Equal(t, "https://example.com/a.zip", inst.DownloadURL)
	require.NotNil(t, inst.Started)
	require.NotNil(t, inst.Finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInstanceUnknownID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, status, sitemap_url").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetInstance(context.Background(), "missing")
	require.ErrorIs(t, err, workflow.ErrInstanceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutStepResult(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO workflow_steps").
		WithArgs("inst-1", workflow.StepFetchSitemap, []byte(`["a"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.PutStepResult(context.Background(), "inst-1", workflow.StepFetchSitemap, []byte(`["a"]`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStepResult(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"result"}).AddRow([]byte(`["a"]`))
	mock.ExpectQuery("SELECT result").
		WithArgs("inst-1", workflow.StepFetchSitemap).
		WillReturnRows(rows)

	result, ok, err := store.GetStepResult(context.Background(), "inst-1", workflow.StepFetchSitemap)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `["a"]`, string(result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStepResultMissing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT result").
		WithArgs("inst-1", workflow.StepScrapePages).
		WillReturnError(pgx.ErrNoRows)

	result, ok, err := store.GetStepResult(context.Background(), "inst-1", workflow.StepScrapePages)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}
