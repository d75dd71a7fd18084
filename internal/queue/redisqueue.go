package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aetherframe/orchestrator/internal/logger"
)

// RedisQueue is the optional Task Queue backend for deployments where
// the API and worker processes run on separate hosts, selected with
// QUEUE_BACKEND=redis. It implements the same Queue contract as
// ChanQueue over a single Redis list, using LPUSH/BRPOP — a direct
// analogue of the channel-based default, without pulling in a
// dedicated broker for the one queue this system has.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a RedisQueue against addr, using key as the
// list name (callers typically use one key per environment, e.g.
// "aether:tasks").
func NewRedisQueue(addr, key string) *RedisQueue {
	return &RedisQueue{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Enqueue LPUSHes the task's JSON encoding onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("queue: redis lpush: %w", err)
	}
	logger.Queue().Debug().Int64("job_id", task.JobID).Msg("task enqueued (redis)")
	return nil
}

// Dequeue BRPOPs with a bounded poll interval so ctx cancellation is
// observed promptly instead of blocking on Redis indefinitely.
func (q *RedisQueue) Dequeue(ctx context.Context) (Task, Ack, error) {
	for {
		select {
		case <-ctx.Done():
			return Task{}, nil, ctx.Err()
		default:
		}

		res, err := q.client.BRPop(ctx, 2*time.Second, q.key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Task{}, nil, ctx.Err()
			}
			return Task{}, nil, fmt.Errorf("queue: redis brpop: %w", err)
		}

		// res is [key, value]
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			logger.Queue().Error().Err(err).Msg("dropping malformed redis task payload")
			continue
		}
		return task, func() {}, nil
	}
}

// Close closes the underlying Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
