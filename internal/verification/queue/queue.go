// Package queue moves verification jobs from the upload boundary to the
// worker. A job carries only the record ID; all state lives in the stores,
// so a duplicate delivery is harmless.
package queue

import (
	"context"

	id "talanta/pkg/domain"
)

// Job is the unit of work handed to the dispatcher.
type Job struct {
	VerificationID id.VerificationID
	Attempt        int
}

//go:generate mockgen -source=queue.go -destination=mocks/mocks.go -package=mocks Queue

// Queue enqueues verification jobs.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
