package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// EventStore provides persistence for the generic audit event log.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(database *sql.DB) *EventStore {
	return &EventStore{db: database}
}

func (s *EventStore) Create(ctx context.Context, in models.EventCreate) (*models.Event, error) {
	data := in.Data
	if data == nil {
		data = models.JSONMap{}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO events (type, job_id, message, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, type, job_id, message, data, created_at`,
		in.Type, in.JobID, in.Message, data,
	)

	var e models.Event
	if err := row.Scan(&e.ID, &e.Type, &e.JobID, &e.Message, &e.Data, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("db: create event: %w", err)
	}
	return &e, nil
}

func (s *EventStore) List(ctx context.Context, limit int) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, job_id, message, data, created_at
		FROM events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.JobID, &e.Message, &e.Data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
