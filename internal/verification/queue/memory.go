package queue

import (
	"context"
	"fmt"
)

// MemoryQueue is a channel-backed Queue for tests and local runs.
type MemoryQueue struct {
	jobs chan Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue full, dropping job %s", job.VerificationID)
	}
}

// Jobs exposes the channel for the consuming side.
func (q *MemoryQueue) Jobs() <-chan Job {
	return q.jobs
}
