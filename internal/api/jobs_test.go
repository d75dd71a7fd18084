package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherframe/orchestrator/internal/config"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/pipeline"
	"github.com/aetherframe/orchestrator/internal/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *queue.ChanQueue) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	q := queue.NewChanQueue(10)
	t.Cleanup(func() { q.Close() })

	deps := Deps{
		Jobs:        db.NewJobStore(sqlDB),
		Findings:    db.NewFindingStore(sqlDB),
		Artifacts:   db.NewArtifactStore(sqlDB),
		TraceEvents: db.NewTraceEventStore(sqlDB),
		Events:      db.NewEventStore(sqlDB),
		Plugins:     db.NewPluginStore(sqlDB),
		Catalogue:   pipeline.NewCatalogue(),
		Queue:       q,
		Config:      config.Config{DefaultPipeline: "quicklook", Environment: "test"},
		StartedAt:   time.Now(),
	}
	return NewRouter(deps), mock, q
}

var jobRowCols = []string{
	"id", "pipeline_id", "target_type", "target_path", "options", "tags", "created_by", "status",
	"current_stage", "progress", "result", "error", "created_at", "started_at", "completed_at", "claimed_at",
}

func jobRow(id int64, status models.JobStatus) *sqlmock.Rows {
	return sqlmock.NewRows(jobRowCols).AddRow(
		id, "quicklook", models.TargetBinary, "/samples/a.bin", []byte(`{}`), []byte(`[]`), "analyst",
		status, nil, 0, []byte(`{}`), nil, time.Now(), nil, nil, nil,
	)
}

func TestCreateJob_Success(t *testing.T) {
	router, mock, q := newTestRouter(t)

	mock.ExpectQuery("INSERT INTO jobs").
		WillReturnRows(jobRow(1, models.JobPending))

	body, _ := json.Marshal(models.JobCreate{TargetPath: "/samples/a.bin"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, q.Len())

	var got models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJob_UnknownPipelineRejected(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	body, _ := json.Marshal(models.JobCreate{TargetPath: "/samples/a.bin", PipelineID: "does-not-exist"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJob_MissingTargetIs400(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/jobs/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_DatabaseError(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs(int64(5)).
		WillReturnError(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/jobs/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_Found(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(jobRow(7, models.JobCompleted))

	req := httptest.NewRequest(http.MethodGet, "/jobs/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_InvalidID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListPipelines(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/pipelines", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	assert.NotEmpty(t, summaries)
}

func TestGetPipeline_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/pipelines/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
