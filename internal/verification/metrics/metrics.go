package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Jobs by final outcome: verified, rejected, retried, abandoned
	JobsProcessed *prometheus.CounterVec

	// End-to-end job duration by document type
	JobDuration *prometheus.HistogramVec

	// Per-stage latency: fetch, extract, parse, validate, commit
	StageDuration *prometheus.HistogramVec

	// Uploads accepted by document type
	Uploads *prometheus.CounterVec

	// Skill edges promoted claimed -> verified
	GraphPromotions prometheus.Counter

	// Trust points actually credited (post-clamp)
	TrustCredited prometheus.Counter

	// Records the reconciliation sweep found stuck in PROCESSING
	StuckRecords prometheus.Gauge

	// Graph edges the sweep had to re-promote
	SweepRepairs prometheus.Counter
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talanta_verification_jobs_total",
			Help: "Total verification jobs by outcome",
		}, []string{"outcome"}), // outcome: "verified", "rejected", "retried", "abandoned"

		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talanta_verification_job_duration_seconds",
			Help:    "Duration of one verification job by document type",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"document_type"}),

		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talanta_verification_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"stage"}), // stage: "fetch", "extract", "parse", "validate", "commit"

		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talanta_verification_uploads_total",
			Help: "Total accepted document uploads by type",
		}, []string{"document_type"}),

		GraphPromotions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talanta_skill_promotions_total",
			Help: "Total skill edges promoted from claimed to verified",
		}),

		TrustCredited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talanta_trust_points_credited_total",
			Help: "Total trust points credited after clamping",
		}),

		StuckRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talanta_verification_stuck_records",
			Help: "Records in PROCESSING past the stuck threshold at last sweep",
		}),

		SweepRepairs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talanta_verification_sweep_repairs_total",
			Help: "Graph edges re-promoted by the reconciliation sweep",
		}),
	}
}

// IncrementJob records a job outcome.
func (m *Metrics) IncrementJob(outcome string) {
	if m != nil {
		m.JobsProcessed.WithLabelValues(outcome).Inc()
	}
}

// ObserveJobDuration records the end-to-end duration of one job.
func (m *Metrics) ObserveJobDuration(docType string, d time.Duration) {
	if m != nil {
		m.JobDuration.WithLabelValues(docType).Observe(d.Seconds())
	}
}

// ObserveStage records one pipeline stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementUpload records an accepted upload.
func (m *Metrics) IncrementUpload(docType string) {
	if m != nil {
		m.Uploads.WithLabelValues(docType).Inc()
	}
}

// IncrementPromotion records a claimed-to-verified edge upgrade.
func (m *Metrics) IncrementPromotion() {
	if m != nil {
		m.GraphPromotions.Inc()
	}
}

// AddTrustCredited records trust points actually applied.
func (m *Metrics) AddTrustCredited(points int) {
	if m != nil && points > 0 {
		m.TrustCredited.Add(float64(points))
	}
}

// SetStuckRecords records the stuck-record count from the last sweep.
func (m *Metrics) SetStuckRecords(n int) {
	if m != nil {
		m.StuckRecords.Set(float64(n))
	}
}

// IncrementSweepRepair records one re-promoted graph edge.
func (m *Metrics) IncrementSweepRepair() {
	if m != nil {
		m.SweepRepairs.Inc()
	}
}
