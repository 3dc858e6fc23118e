// queue.go - plain Redis-list-backed task queue under one fixed key, giving
// FIFO handoff with blocking consumption.

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/toonslate/toonslate-backend/internal/store"
)

// QueueKey is the Redis list every translate task is pushed onto.
const QueueKey = "queue:translate"

// Enqueuer is the subset of *store.Client the queue needs to push a task.
// Accepting the interface rather than the concrete client lets callers
// substitute a test double that fails on demand.
type Enqueuer interface {
	ListPush(ctx context.Context, key, value string) error
}

// Enqueue pushes task onto the queue for a worker to pick up.
func Enqueue(ctx context.Context, client Enqueuer, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("worker: marshal task: %w", err)
	}
	if err := client.ListPush(ctx, QueueKey, string(data)); err != nil {
		return fmt.Errorf("worker: enqueue: %w", err)
	}
	return nil
}

// errNoTask is returned by dequeue on a poll timeout with nothing queued; it
// is not a failure, just an empty poll cycle.
var errNoTask = errors.New("worker: no task available")

func dequeue(ctx context.Context, client *store.Client, pollTimeout time.Duration) (Task, error) {
	raw, err := client.ListPopBlocking(ctx, QueueKey, pollTimeout)
	if errors.Is(err, store.ErrNotFound) {
		return Task{}, errNoTask
	}
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return Task{}, fmt.Errorf("worker: unmarshal task: %w", err)
	}
	return task, nil
}
