package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// ArtifactStore provides persistence for artifacts.
type ArtifactStore struct {
	db *sql.DB
}

func NewArtifactStore(database *sql.DB) *ArtifactStore {
	return &ArtifactStore{db: database}
}

func (s *ArtifactStore) Create(ctx context.Context, jobID int64, in models.ArtifactCreate) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO artifacts (job_id, plugin_id, stage, name, type, path, inline_data, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, job_id, plugin_id, stage, name, type, path, inline_data, content_type, size_bytes, created_at`,
		jobID, in.PluginID, in.Stage, in.Name, in.Type, in.Path, in.InlineData, in.ContentType, in.SizeBytes,
	)

	var a models.Artifact
	if err := row.Scan(&a.ID, &a.JobID, &a.PluginID, &a.Stage, &a.Name, &a.Type,
		&a.Path, &a.InlineData, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("db: create artifact: %w", err)
	}
	return &a, nil
}

func (s *ArtifactStore) ListByJob(ctx context.Context, jobID int64) ([]*models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, plugin_id, stage, name, type, path, inline_data, content_type, size_bytes, created_at
		FROM artifacts WHERE job_id = $1 ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("db: list artifacts for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.JobID, &a.PluginID, &a.Stage, &a.Name, &a.Type,
			&a.Path, &a.InlineData, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan artifact: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *ArtifactStore) CountByJob(ctx context.Context, jobID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts WHERE job_id = $1`, jobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db: count artifacts for job %d: %w", jobID, err)
	}
	return count, nil
}
