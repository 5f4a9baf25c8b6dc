// Package recon closes the gaps a crash can leave between the relational
// store and the skill graph: records stuck in PROCESSING and VERIFIED
// records whose graph edge never landed.
package recon

import (
	"context"
	"log/slog"
	"time"

	"talanta/internal/audit"
	"talanta/internal/verification/graph"
	"talanta/internal/verification/metrics"
	"talanta/internal/verification/queue"
	"talanta/internal/verification/service"
	"talanta/internal/verification/store"
)

// Config bounds the sweep.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration
	// StuckThreshold is how long a record may sit in PROCESSING before
	// the sweep re-enqueues it.
	StuckThreshold time.Duration
}

// Auditor receives audit events from the sweeper.
type Auditor interface {
	Publish(event audit.Event)
}

// Sweeper periodically repairs pipeline state. Re-enqueueing a stuck record
// is safe because processing is idempotent; re-promoting an edge is safe
// because promotion is a merge.
type Sweeper struct {
	records store.RecordStore
	skills  graph.SkillGraph
	jobs    queue.Queue
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
}

func New(records store.RecordStore, skills graph.SkillGraph, jobs queue.Queue, auditor Auditor, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Sweeper {
	return &Sweeper{
		records: records,
		skills:  skills,
		jobs:    jobs,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run sweeps on the configured interval until the context ends.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both repairs once. Failures are logged and left for the next
// sweep; one broken record must not stop the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.requeueStuck(ctx)
	s.repairGraph(ctx)
}

func (s *Sweeper) requeueStuck(ctx context.Context) {
	stuck, err := s.records.ListStuckProcessing(ctx, s.cfg.StuckThreshold)
	if err != nil {
		s.logger.Error("sweep: failed to list stuck records", "error", err)
		return
	}
	s.metrics.SetStuckRecords(len(stuck))
	if len(stuck) == 0 {
		return
	}

	s.logger.Warn("sweep: found records stuck in PROCESSING", "count", len(stuck))
	for _, rec := range stuck {
		if err := s.jobs.Enqueue(ctx, queue.Job{VerificationID: rec.ID}); err != nil {
			s.logger.Error("sweep: failed to re-enqueue stuck record",
				"verification_id", rec.ID, "error", err)
			continue
		}
		s.logger.Info("sweep: re-enqueued stuck record",
			"verification_id", rec.ID, "stuck_since", rec.UpdatedAt)
	}
}

func (s *Sweeper) repairGraph(ctx context.Context) {
	recs, err := s.records.ListVerifiedWithSkill(ctx)
	if err != nil {
		s.logger.Error("sweep: failed to list verified records", "error", err)
		return
	}

	for _, rec := range recs {
		ok, err := s.skills.HasVerified(ctx, rec.UserID, rec.ExtractedSkill)
		if err != nil {
			s.logger.Error("sweep: failed to check graph edge",
				"verification_id", rec.ID, "skill", rec.ExtractedSkill, "error", err)
			continue
		}
		if ok {
			continue
		}

		verifiedAt := rec.UpdatedAt
		if rec.VerifiedAt != nil {
			verifiedAt = *rec.VerifiedAt
		}
		err = s.skills.Promote(ctx, graph.Promotion{
			UserID:     rec.UserID,
			Skill:      rec.ExtractedSkill,
			Method:     service.MethodCertificate,
			VerifiedAt: verifiedAt,
		})
		if err != nil {
			s.logger.Error("sweep: failed to re-promote skill edge",
				"verification_id", rec.ID, "skill", rec.ExtractedSkill, "error", err)
			continue
		}

		s.metrics.IncrementSweepRepair()
		s.auditor.Publish(audit.Event{
			Actor:      service.SystemActor,
			Action:     audit.ActionSweepRepair,
			EntityType: "skill",
			EntityID:   rec.ExtractedSkill,
			UserID:     rec.UserID,
			New:        map[string]any{"verification_id": rec.ID.String()},
		})
		s.logger.Warn("sweep: re-promoted missing skill edge",
			"verification_id", rec.ID, "user_id", rec.UserID, "skill", rec.ExtractedSkill)
	}
}
