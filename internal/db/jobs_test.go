package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherframe/orchestrator/internal/models"
)

var jobRowColumns = []string{
	"id", "pipeline_id", "target_type", "target_path", "options", "tags", "created_by", "status",
	"current_stage", "progress", "result", "error", "created_at", "started_at", "completed_at", "claimed_at",
}

func jobRow(id int64, status models.JobStatus) *sqlmock.Rows {
	return sqlmock.NewRows(jobRowColumns).AddRow(
		id, "quicklook", models.TargetBinary, "/samples/a.bin", []byte(`{}`), []byte(`[]`), "analyst",
		status, nil, 0, []byte(`{}`), nil, time.Now(), nil, nil, nil,
	)
}

func TestJobStore_Create(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs("quicklook", models.TargetBinary, "/samples/a.bin", sqlmock.AnyArg(), sqlmock.AnyArg(), "analyst").
		WillReturnRows(jobRow(1, models.JobPending))

	job, err := store.Create(context.Background(), models.JobCreate{
		PipelineID: "quicklook",
		TargetType: models.TargetBinary,
		TargetPath: "/samples/a.bin",
		CreatedBy:  "analyst",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), job.ID)
	assert.Equal(t, models.JobPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Get(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(jobRow(7, models.JobRunning))

	job, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, models.JobRunning, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Get_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	job, err := store.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_List(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	rows := sqlmock.NewRows(jobRowColumns).
		AddRow(2, "quicklook", models.TargetBinary, "/a.bin", []byte(`{}`), []byte(`[]`), "a", models.JobCompleted, nil, 100, []byte(`{}`), nil, time.Now(), nil, nil, nil).
		AddRow(1, "quicklook", models.TargetBinary, "/b.bin", []byte(`{}`), []byte(`[]`), "a", models.JobCompleted, nil, 100, []byte(`{}`), nil, time.Now(), nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM jobs ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	jobs, err := store.List(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_List_FilteredByStatus(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE status").
		WithArgs(models.JobFailed, 5).
		WillReturnRows(jobRow(3, models.JobFailed))

	jobs, err := store.List(context.Background(), models.JobFailed, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_MarkRunning(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status = 'running'").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.MarkRunning(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_MarkRunning_AlreadyClaimed(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status = 'running'").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.MarkRunning(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Finish(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(models.JobCompleted, sqlmock.AnyArg(), nil, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Finish(context.Background(), 4, models.JobCompleted, models.JobResult{PipelineID: "quicklook"}, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Finish_WithError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(models.JobFailed, sqlmock.AnyArg(), "plugin crashed", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Finish(context.Background(), 4, models.JobFailed, models.JobResult{}, "plugin crashed")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Cancel(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status = 'cancelled'").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Cancel(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Cancel_AlreadyTerminal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status = 'cancelled'").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Cancel(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_IsCancelled(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("SELECT status FROM jobs WHERE id").
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.JobCancelled))

	cancelled, err := store.IsCancelled(context.Background(), 6)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_ListStaleRunning(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(300).
		WillReturnRows(jobRow(8, models.JobRunning))

	jobs, err := store.ListStaleRunning(context.Background(), 300)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(8), jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_Requeue(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewJobStore(sqlDB)

	mock.ExpectExec("UPDATE jobs SET status = 'pending'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Requeue(context.Background(), 9)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
