package queue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aetherframe/orchestrator/internal/logger"
	"github.com/aetherframe/orchestrator/internal/models"
)

// StaleJobLister is the narrow store dependency Sweep needs: find jobs
// claimed more than a staleness threshold ago that are still running,
// and reset one back to pending for redelivery.
type StaleJobLister interface {
	ListStaleRunning(ctx context.Context, staleSeconds int) ([]*models.Job, error)
	Requeue(ctx context.Context, id int64) error
}

// Sweep is a cron job (a shared *cron.Cron entry with panic recovery
// per tick) that re-enqueues jobs stuck in "running"
// with no corresponding live worker claim. This is a bounded,
// explicit crash-recovery mechanism, not a retry policy — task retry
// is none by default; this only repairs process-crash orphans (a
// worker died mid-job, leaving the row claimed forever).
type Sweep struct {
	cron          *cron.Cron
	store         StaleJobLister
	q             Queue
	staleSeconds  int
	entryID       cron.EntryID
}

// NewSweep builds a Sweep bound to store and q. staleAfter is how long
// a "running" job may go unclaimed-looking before it is considered
// orphaned; the firing cadence is given to Start.
func NewSweep(store StaleJobLister, q Queue, staleAfter time.Duration) *Sweep {
	c := cron.New()
	return &Sweep{
		cron:         c,
		store:        store,
		q:            q,
		staleSeconds: int(staleAfter.Seconds()),
	}
}

// Start schedules the sweep to run every interval and starts the
// underlying cron scheduler. The cron spec is built from interval
// directly (e.g. "@every 2m0s") rather than a fixed 5-field
// expression, since the sweep cadence is a duration, not a wall-clock
// schedule.
func (s *Sweep) Start(interval time.Duration) error {
	id, err := s.cron.AddFunc(intervalSpec(interval), s.runOnce)
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	return nil
}

// Stop halts the cron scheduler. Blocks until the in-flight run, if
// any, completes.
func (s *Sweep) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func intervalSpec(d time.Duration) string {
	return "@every " + d.String()
}

// runOnce performs a single sweep pass: list stale running jobs,
// requeue each, and re-submit it to the task queue. Panics are
// recovered and logged so a single bad pass never kills future ticks.
func (s *Sweep) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			logger.Queue().Error().Interface("panic", r).Msg("sweep pass panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stale, err := s.store.ListStaleRunning(ctx, s.staleSeconds)
	if err != nil {
		logger.Queue().Error().Err(err).Msg("sweep: failed to list stale jobs")
		return
	}
	if len(stale) == 0 {
		return
	}

	logger.Queue().Warn().Int("count", len(stale)).Msg("sweep: recovering orphaned running jobs")
	for _, job := range stale {
		if err := s.store.Requeue(ctx, job.ID); err != nil {
			logger.Queue().Error().Err(err).Int64("job_id", job.ID).Msg("sweep: requeue failed")
			continue
		}
		if err := s.q.Enqueue(ctx, Task{JobID: job.ID, Target: job.TargetPath}); err != nil {
			logger.Queue().Error().Err(err).Int64("job_id", job.ID).Msg("sweep: re-submit to queue failed")
		}
	}
}
