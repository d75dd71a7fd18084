package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// TraceEventStore provides persistence for trace events.
type TraceEventStore struct {
	db *sql.DB
}

func NewTraceEventStore(database *sql.DB) *TraceEventStore {
	return &TraceEventStore{db: database}
}

func (s *TraceEventStore) Create(ctx context.Context, jobID int64, in models.TraceEventCreate) (*models.TraceEvent, error) {
	detail := in.Detail
	if detail == nil {
		detail = models.JSONMap{}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO trace_events (job_id, plugin_id, sequence, timestamp, source, type, target, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, job_id, plugin_id, sequence, timestamp, source, type, target, detail`,
		jobID, in.PluginID, in.Sequence, in.Timestamp, in.Source, in.Type, in.Target, detail,
	)

	var e models.TraceEvent
	if err := row.Scan(&e.ID, &e.JobID, &e.PluginID, &e.Sequence, &e.Timestamp,
		&e.Source, &e.Type, &e.Target, &e.Detail); err != nil {
		return nil, fmt.Errorf("db: create trace event: %w", err)
	}
	return &e, nil
}

// TraceEventFilter narrows ListByJob to events matching a source
// and/or event_type, for GET /jobs/{id}/events.
type TraceEventFilter struct {
	Source models.EventSource
	Type   models.EventType
}

// ListByJob returns a job's trace events ordered by (timestamp, sequence),
// never by insertion order alone.
func (s *TraceEventStore) ListByJob(ctx context.Context, jobID int64, filter TraceEventFilter) ([]*models.TraceEvent, error) {
	query := `
		SELECT id, job_id, plugin_id, sequence, timestamp, source, type, target, detail
		FROM trace_events WHERE job_id = $1`
	args := []interface{}{jobID}

	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY timestamp ASC, sequence ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: list trace events for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var out []*models.TraceEvent
	for rows.Next() {
		var e models.TraceEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.PluginID, &e.Sequence, &e.Timestamp,
			&e.Source, &e.Type, &e.Target, &e.Detail); err != nil {
			return nil, fmt.Errorf("db: scan trace event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
