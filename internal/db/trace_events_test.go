package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherframe/orchestrator/internal/models"
)

func traceEventColumns() []string {
	return []string{"id", "job_id", "plugin_id", "sequence", "timestamp", "source", "type", "target", "detail"}
}

func TestTraceEventStore_Create(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewTraceEventStore(sqlDB)

	ts := time.Now().UTC()
	rows := sqlmock.NewRows(traceEventColumns()).
		AddRow(1, 7, "trace", 0, ts, "laintrace", "hook_enter", "0x7ff800000000", []byte(`{"symbol":"kernel32.CreateFileW"}`))

	mock.ExpectQuery("INSERT INTO trace_events").
		WithArgs(int64(7), "trace", int64(0), ts, models.SourceLaintrace, models.EventHookEnter,
			"0x7ff800000000", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e, err := store.Create(context.Background(), 7, models.TraceEventCreate{
		PluginID:  "trace",
		Sequence:  0,
		Timestamp: ts,
		Source:    models.SourceLaintrace,
		Type:      models.EventHookEnter,
		Target:    "0x7ff800000000",
		Detail:    models.JSONMap{"symbol": "kernel32.CreateFileW"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), e.JobID)
	assert.Equal(t, models.EventHookEnter, e.Type)
	assert.Equal(t, "kernel32.CreateFileW", e.Detail["symbol"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceEventStore_ListByJob_OrderedByTimestampSequence(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewTraceEventStore(sqlDB)

	ts := time.Now().UTC()
	rows := sqlmock.NewRows(traceEventColumns()).
		AddRow(1, 7, "trace", 0, ts, "laintrace", "hook_enter", "", []byte(`{}`)).
		AddRow(2, 7, "trace", 1, ts, "laintrace", "hook_exit", "", []byte(`{}`))

	mock.ExpectQuery("SELECT (.+) FROM trace_events WHERE job_id = (.+) ORDER BY timestamp ASC, sequence ASC").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	events, err := store.ListByJob(context.Background(), 7, TraceEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Sequence, events[1].Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceEventStore_ListByJob_Filtered(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewTraceEventStore(sqlDB)

	rows := sqlmock.NewRows(traceEventColumns()).
		AddRow(3, 7, "", 0, time.Now(), "orchestrator", "stage_start", "", []byte(`{}`))

	mock.ExpectQuery("SELECT (.+) FROM trace_events WHERE job_id = (.+) AND source = (.+) AND type = (.+)").
		WithArgs(int64(7), models.SourceOrchestrator, models.EventStageStart).
		WillReturnRows(rows)

	events, err := store.ListByJob(context.Background(), 7, TraceEventFilter{
		Source: models.SourceOrchestrator,
		Type:   models.EventStageStart,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SourceOrchestrator, events[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
