package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// FindingStore provides persistence for findings.
type FindingStore struct {
	db *sql.DB
}

func NewFindingStore(database *sql.DB) *FindingStore {
	return &FindingStore{db: database}
}

func (s *FindingStore) Create(ctx context.Context, jobID int64, in models.FindingCreate) (*models.Finding, error) {
	evidence := in.Evidence
	if evidence == nil {
		evidence = models.EvidenceList{}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO findings (job_id, plugin_id, stage, category, severity, confidence, title, detail, evidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, job_id, plugin_id, stage, category, severity, confidence, title, detail, evidence, created_at`,
		jobID, in.PluginID, in.Stage, in.Category, in.Severity, in.Confidence, in.Title, in.Detail, evidence,
	)

	var f models.Finding
	if err := row.Scan(&f.ID, &f.JobID, &f.PluginID, &f.Stage, &f.Category, &f.Severity,
		&f.Confidence, &f.Title, &f.Detail, &f.Evidence, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("db: create finding: %w", err)
	}
	return &f, nil
}

// FindingFilter narrows ListByJob to findings matching a severity and/or
// category, leaving a field empty to mean "no filter on this attribute".
type FindingFilter struct {
	Severity models.Severity
	Category models.Category
}

// ListByJob returns a job's findings newest-first, optionally
// filtered by severity and category for GET /jobs/{id}/findings.
func (s *FindingStore) ListByJob(ctx context.Context, jobID int64, filter FindingFilter) ([]*models.Finding, error) {
	query := `
		SELECT id, job_id, plugin_id, stage, category, severity, confidence, title, detail, evidence, created_at
		FROM findings WHERE job_id = $1`
	args := []interface{}{jobID}

	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: list findings for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var out []*models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.JobID, &f.PluginID, &f.Stage, &f.Category, &f.Severity,
			&f.Confidence, &f.Title, &f.Detail, &f.Evidence, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan finding: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *FindingStore) CountByJob(ctx context.Context, jobID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings WHERE job_id = $1`, jobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db: count findings for job %d: %w", jobID, err)
	}
	return count, nil
}
