// Package queue implements the Task Queue: a named queue of
// (job_id, target) tuples that workers dequeue, execute against the
// orchestrator, and acknowledge on terminal transition. Retry policy
// is none by default — the orchestrator's own error handling is
// authoritative; this package only guarantees redelivery-safety (a
// worker that dequeues an already-terminal job no-ops) and, via
// sweep.go, recovery from a worker process crash.
package queue

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned by Dequeue once Close has been called and
// no further tasks remain.
var ErrQueueClosed = errors.New("queue: closed")

// ErrQueueFull is returned by Enqueue when the backend cannot accept
// more outstanding tasks.
var ErrQueueFull = errors.New("queue: full")

// Task is a single unit of dispatchable work: a job id and the target
// path resolved at submission time, so a worker doesn't need to go
// back to the store before it can start resolving the target.
type Task struct {
	JobID  int64
	Target string
}

// Ack acknowledges a dequeued task has reached a terminal state. Queue
// implementations that track in-flight delivery (e.g. Redis's
// BRPOPLPUSH variants) use this to drop the in-flight marker; the
// channel-backed default ignores it, since a buffered channel has no
// separate in-flight bookkeeping.
type Ack func()

// Queue is the Task Queue contract every backend satisfies.
type Queue interface {
	// Enqueue submits a task for a worker to pick up.
	Enqueue(ctx context.Context, task Task) error

	// Dequeue blocks until a task is available, ctx is cancelled, or the
	// queue is closed.
	Dequeue(ctx context.Context) (Task, Ack, error)

	// Close releases the backend's resources. Safe to call once.
	Close() error
}
