package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// JobStore provides persistence for jobs.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(database *sql.DB) *JobStore {
	return &JobStore{db: database}
}

const jobColumns = `id, pipeline_id, target_type, target_path, options, tags, created_by, status,
		       current_stage, progress, result, error, created_at, started_at, completed_at, claimed_at`

// Create inserts a new job in the pending state and returns its assigned id.
func (s *JobStore) Create(ctx context.Context, in models.JobCreate) (*models.Job, error) {
	options := in.Options
	if options == nil {
		options = models.JSONMap{}
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (pipeline_id, target_type, target_path, options, tags, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING `+jobColumns,
		in.PipelineID, in.TargetType, in.TargetPath, options, pqStringArray(tags), in.CreatedBy,
	)
	return scanJob(row)
}

// Get fetches a single job by id.
func (s *JobStore) Get(ctx context.Context, id int64) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// List returns jobs ordered newest-first, optionally filtered by status.
func (s *JobStore) List(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+`
			FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+`
			FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("db: list jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// MarkRunning transitions a job from pending to running, recording the
// claim so the sweep job can recognize orphaned claims later. It is a
// no-op (zero rows affected) if the job is no longer pending — e.g. it
// was already cancelled — which the worker must check for.
func (s *JobStore) MarkRunning(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'running', started_at = CURRENT_TIMESTAMP, claimed_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("db: mark job %d running: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateProgress records the current stage name and percentage complete.
func (s *JobStore) UpdateProgress(ctx context.Context, id int64, stage string, progress int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET current_stage = $1, progress = $2 WHERE id = $3`, stage, progress, id)
	if err != nil {
		return fmt.Errorf("db: update job %d progress: %w", id, err)
	}
	return nil
}

// Finish transitions a job to a terminal status with its result summary
// and, for a failed job, the error string surfaced on the row itself.
func (s *JobStore) Finish(ctx context.Context, id int64, status models.JobStatus, result models.JobResult, jobErr string) error {
	var errArg interface{}
	if jobErr != "" {
		errArg = jobErr
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, result = $2, error = $3, progress = 100, completed_at = CURRENT_TIMESTAMP
		WHERE id = $4`, status, result, errArg, id)
	if err != nil {
		return fmt.Errorf("db: finish job %d: %w", id, err)
	}
	return nil
}

// Cancel transitions a job to cancelled, but only while it is still
// pending or running — a terminal job cannot be cancelled after the
// fact.
func (s *JobStore) Cancel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'cancelled', completed_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('pending', 'running')`, id)
	if err != nil {
		return false, fmt.Errorf("db: cancel job %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// IsCancelled reports whether a job's current status is cancelled —
// used by the worker to detect a cancellation requested between stages.
func (s *JobStore) IsCancelled(ctx context.Context, id int64) (bool, error) {
	var status models.JobStatus
	if err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status); err != nil {
		return false, fmt.Errorf("db: check job %d status: %w", id, err)
	}
	return status == models.JobCancelled, nil
}

// ListStaleRunning returns jobs claimed more than staleSeconds ago that
// are still "running" — candidates for the recovery sweep.
func (s *JobStore) ListStaleRunning(ctx context.Context, staleSeconds int) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'running' AND claimed_at < NOW() - ($1 || ' seconds')::interval
		ORDER BY claimed_at ASC`, staleSeconds)
	if err != nil {
		return nil, fmt.Errorf("db: list stale jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ListPending returns jobs never picked up by a worker, oldest first —
// used on worker startup to re-enqueue work a prior crash left behind.
func (s *JobStore) ListPending(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.List(ctx, models.JobPending, 10000)
	if err != nil {
		return nil, err
	}
	// List returns newest first; reverse it.
	for i, j := 0, len(jobs)-1; i < j; i, j = i+1, j-1 {
		jobs[i], jobs[j] = jobs[j], jobs[i]
	}
	return jobs, nil
}

// Requeue resets a stuck job back to pending so it can be redelivered.
func (s *JobStore) Requeue(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'pending', claimed_at = NULL
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')`, id)
	if err != nil {
		return fmt.Errorf("db: requeue job %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var tags pqStringArray
	if err := row.Scan(&job.ID, &job.PipelineID, &job.TargetType, &job.TargetPath,
		&job.Options, &tags, &job.CreatedBy, &job.Status, &job.CurrentStage, &job.Progress,
		&job.Result, &job.Error, &job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ClaimedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("db: scan job: %w", err)
	}
	job.Tags = []string(tags)
	return &job, nil
}
