package queue

import (
	"context"
	"sync"

	"github.com/aetherframe/orchestrator/internal/logger"
)

// ChanQueue is the default Task Queue backend: a buffered Go channel
// with a non-blocking, "queue full" producer side. Unlike a
// dispatcher, ChanQueue does not own the worker pool itself —
// internal/orchestrator/worker.go spins up its own fixed set of
// goroutines that call Dequeue, so workers dequeue, call the
// orchestrator, and acknowledge, rather than the queue pushing work
// to a hub on its own.
type ChanQueue struct {
	tasks chan Task

	mu     sync.Mutex
	closed bool
}

// NewChanQueue builds a ChanQueue with the given buffer capacity.
func NewChanQueue(capacity int) *ChanQueue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ChanQueue{tasks: make(chan Task, capacity)}
}

// Enqueue offers task to the channel, returning ErrQueueFull rather
// than blocking when the buffer is saturated.
func (q *ChanQueue) Enqueue(ctx context.Context, task Task) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		logger.Queue().Debug().Int64("job_id", task.JobID).Msg("task enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a task arrives, ctx is cancelled, or Close is
// called. Ack is a no-op: a buffered channel has no separate in-flight
// state to release.
func (q *ChanQueue) Dequeue(ctx context.Context) (Task, Ack, error) {
	select {
	case t, ok := <-q.tasks:
		if !ok {
			return Task{}, nil, ErrQueueClosed
		}
		return t, func() {}, nil
	case <-ctx.Done():
		return Task{}, nil, ctx.Err()
	}
}

// Close closes the underlying channel, causing blocked Dequeue calls
// to return ErrQueueClosed once drained.
func (q *ChanQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.tasks)
	return nil
}

// Len reports the number of tasks currently buffered, for /status and
// /metrics reporting.
func (q *ChanQueue) Len() int { return len(q.tasks) }

// Cap reports the channel's buffer capacity.
func (q *ChanQueue) Cap() int { return cap(q.tasks) }
