package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/sentinel"

	"talanta/internal/platform/kafka"
	"talanta/internal/verification/metrics"
)

// Processor runs one verification job to completion. A rejected document is
// a normal completion; only infrastructure trouble comes back as an error,
// wrapped in sentinel.ErrUnavailable when a retry could help.
type Processor interface {
	Process(ctx context.Context, recID id.VerificationID) error
}

// DispatcherConfig bounds one job's execution.
type DispatcherConfig struct {
	// MaxAttempts counts the first run plus retries.
	MaxAttempts int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
	// SoftTimeLimit only logs when exceeded; HardTimeLimit cancels the job.
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	// LockTTL caps how long a crashed worker can hold a record's lock.
	LockTTL time.Duration
}

// Dispatcher pulls jobs off the queue and drives the processor with the
// retry, lock and time-limit policy. Safe for concurrent use.
type Dispatcher struct {
	processor Processor
	locker    Locker
	cfg       DispatcherConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(processor Processor, locker Locker, cfg DispatcherConfig, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		processor: processor,
		locker:    locker,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle adapts the dispatcher to the Kafka consumer. Malformed payloads are
// logged and dropped so one bad message cannot wedge the partition.
func (d *Dispatcher) Handle(ctx context.Context, msg *kafka.Message) error {
	job, err := DecodeJob(msg)
	if err != nil {
		d.logger.Error("dropping malformed job payload",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return nil
	}
	return d.Dispatch(ctx, job)
}

// Dispatch runs one job under the per-record lock, retrying transient
// failures up to MaxAttempts. A job that exhausts its attempts is abandoned:
// logged, counted and acknowledged, leaving the record for the sweep.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) error {
	recID := job.VerificationID

	acquired, err := d.locker.Acquire(ctx, recID, d.cfg.LockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		d.logger.Info("verification already being processed elsewhere", "verification_id", recID)
		return nil
	}
	defer func() {
		if err := d.locker.Release(context.WithoutCancel(ctx), recID); err != nil {
			d.logger.Warn("failed to release job lock", "verification_id", recID, "error", err)
		}
	}()

	for attempt := 1; ; attempt++ {
		err := d.runOnce(ctx, recID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			d.logger.Error("verification job failed", "verification_id", recID, "error", err)
			return err
		}
		if attempt >= d.cfg.MaxAttempts {
			d.metrics.IncrementJob("abandoned")
			d.logger.Error("abandoning verification job after retries",
				"verification_id", recID, "attempts", attempt, "error", err)
			return nil
		}

		d.metrics.IncrementJob("retried")
		d.logger.Warn("retrying verification job",
			"verification_id", recID, "attempt", attempt, "backoff", d.cfg.RetryBackoff, "error", err)
		if err := d.sleep(ctx, d.cfg.RetryBackoff); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context, recID id.VerificationID) error {
	if d.cfg.HardTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.HardTimeLimit)
		defer cancel()
	}

	start := time.Now()
	err := d.processor.Process(ctx, recID)
	if d.cfg.SoftTimeLimit > 0 {
		if elapsed := time.Since(start); elapsed > d.cfg.SoftTimeLimit {
			d.logger.Warn("verification job exceeded soft time limit",
				"verification_id", recID, "elapsed", elapsed, "limit", d.cfg.SoftTimeLimit)
		}
	}
	return err
}
