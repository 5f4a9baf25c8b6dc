// Package service holds the verification orchestrator: the single writer of
// record status, trust credits and skill promotions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	id "talanta/pkg/domain"
	"talanta/pkg/domainerrors"
	"talanta/pkg/platform/sentinel"

	"talanta/internal/audit"
	"talanta/internal/verification/cache"
	"talanta/internal/verification/extractor"
	"talanta/internal/verification/graph"
	"talanta/internal/verification/metrics"
	"talanta/internal/verification/models"
	"talanta/internal/verification/objectstore"
	"talanta/internal/verification/parser"
	"talanta/internal/verification/queue"
	"talanta/internal/verification/store"
	"talanta/internal/verification/trust"
	"talanta/internal/verification/validator"
)

const (
	// SystemActor is recorded as the verifier on machine-made decisions.
	SystemActor = "SYSTEM"

	// MethodCertificate is stamped on promoted skill edges.
	MethodCertificate = "CERTIFICATE"

	reasonStorageFailure = "Failed to retrieve document from storage"

	// MaxUploadBytes caps one document upload.
	MaxUploadBytes = 5 << 20
)

var allowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

// Auditor receives audit events from the orchestrator.
type Auditor interface {
	Publish(event audit.Event)
}

// Service drives a verification record from upload to its terminal status.
type Service struct {
	records   store.RecordStore
	users     store.UserStore
	txr       store.TxRunner
	objects   objectstore.Gateway
	skills    graph.SkillGraph
	extractor extractor.Extractor
	jobs      queue.Queue
	statuses  cache.StatusCache
	auditor   Auditor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	now func() time.Time
}

func New(
	records store.RecordStore,
	users store.UserStore,
	txr store.TxRunner,
	objects objectstore.Gateway,
	skills graph.SkillGraph,
	ext extractor.Extractor,
	jobs queue.Queue,
	statuses cache.StatusCache,
	auditor Auditor,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		records:   records,
		users:     users,
		txr:       txr,
		objects:   objects,
		skills:    skills,
		extractor: ext,
		jobs:      jobs,
		statuses:  statuses,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("talanta/verification"),
		now:       time.Now,
	}
}

// Upload validates and stores a document, creates the PENDING record and
// enqueues the job. The record is durable before the job is visible to any
// worker, so a consumed job always finds its record.
func (s *Service) Upload(ctx context.Context, userID id.UserID, docType models.DocumentType, filename string, data []byte) (*models.VerificationRecord, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeBadRequest,
			fmt.Sprintf("unsupported file type %q, allowed: jpg, jpeg, png, pdf", ext))
	}
	if len(data) == 0 {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "empty file")
	}
	if len(data) > MaxUploadBytes {
		return nil, domainerrors.New(domainerrors.CodeTooLarge, "file exceeds 5MB limit")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}

	rec := &models.VerificationRecord{
		ID:           id.NewVerificationID(),
		UserID:       userID,
		DocumentType: docType,
		FileSize:     int64(len(data)),
		Status:       models.StatusPending,
		CreatedAt:    s.now(),
	}
	rec.StorageKey = objectstore.Key(userID, rec.ID, ext)

	if err := s.objects.Put(ctx, rec.StorageKey, data, contentType); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating verification record: %w", err)
	}
	if err := s.jobs.Enqueue(ctx, queue.Job{VerificationID: rec.ID}); err != nil {
		return nil, fmt.Errorf("enqueueing verification job: %w", err)
	}

	s.metrics.IncrementUpload(string(docType))
	s.auditor.Publish(audit.Event{
		Actor:      userID.String(),
		Action:     audit.ActionDocumentUploaded,
		EntityType: "verification",
		EntityID:   rec.ID.String(),
		UserID:     userID,
		New:        map[string]any{"document_type": string(docType), "status": string(models.StatusPending)},
	})
	s.logger.Info("document uploaded",
		"verification_id", rec.ID, "user_id", userID, "document_type", docType, "size", rec.FileSize)
	return rec, nil
}

// Status returns the record's status, answering from cache when it can.
// Ownership is enforced: a caller only sees their own records.
func (s *Service) Status(ctx context.Context, callerID id.UserID, recID id.VerificationID) (*models.VerificationRecord, error) {
	rec, err := s.records.FindByID(ctx, recID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "verification not found")
		}
		return nil, err
	}
	if rec.UserID != callerID {
		// Do not leak existence of other users' records.
		return nil, domainerrors.New(domainerrors.CodeNotFound, "verification not found")
	}
	if status, ok, err := s.statuses.GetStatus(ctx, recID); err == nil && ok {
		rec.Status = status
	}
	return rec, nil
}

// ListByUser returns the caller's records, newest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]models.VerificationRecord, error) {
	return s.records.ListByUser(ctx, userID)
}

// AddClaim records an unverified skill claim in the graph.
func (s *Service) AddClaim(ctx context.Context, userID id.UserID, skill string) error {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "skill is required")
	}
	if err := s.skills.AddClaim(ctx, userID, skill); err != nil {
		return fmt.Errorf("adding skill claim: %w", err)
	}
	return nil
}

// Process runs one verification job to its terminal status. It is the only
// writer of PROCESSING, VERIFIED and REJECTED and is safe to call any number
// of times for the same record: terminal records are left untouched and the
// commit is guarded so the trust credit applies at most once.
func (s *Service) Process(ctx context.Context, recID id.VerificationID) error {
	ctx, span := s.tracer.Start(ctx, "verification.process",
		trace.WithAttributes(attribute.String("verification.id", recID.String())))
	defer span.End()
	start := s.now()

	rec, err := s.records.FindByID(ctx, recID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A job without a record cannot ever succeed; drop it rather
			// than wedge the partition.
			s.logger.Error("verification job references missing record", "verification_id", recID)
			return nil
		}
		return transient(err)
	}
	if rec.Status.IsTerminal() {
		s.logger.Info("verification already finalized, skipping",
			"verification_id", recID, "status", rec.Status)
		return nil
	}

	if err := s.records.MarkProcessing(ctx, recID); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Lost the race to another finalizer.
			return nil
		}
		return transient(err)
	}
	s.cacheStatus(ctx, recID, models.StatusProcessing)
	s.auditor.Publish(audit.Event{
		Actor:      SystemActor,
		Action:     audit.ActionVerificationStarted,
		EntityType: "verification",
		EntityID:   recID.String(),
		UserID:     rec.UserID,
		Old:        map[string]any{"status": string(rec.Status)},
		New:        map[string]any{"status": string(models.StatusProcessing)},
	})

	data, err := s.fetch(ctx, rec)
	if err != nil {
		// Missing object or unreachable store, the outcome is the same:
		// the document cannot be read, so the job terminates as REJECTED.
		s.logger.Warn("document fetch failed",
			"verification_id", recID, "error", err)
		return s.reject(ctx, rec, reasonStorageFailure, start)
	}

	idFields, certFields := s.extractAndParse(ctx, rec, data)

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return transient(err)
	}

	result := s.validate(ctx, rec, idFields, certFields, user.FullName)
	if !result.Valid() {
		return s.reject(ctx, rec, strings.Join(result.Issues, "; "), start)
	}
	if !result.NameMatch && rec.DocumentType == models.DocumentNationalID {
		s.logger.Warn("name mismatch between document and profile",
			"verification_id", recID, "user_id", rec.UserID)
	}

	// The skill edge goes first. Promotion is idempotent, so a crash
	// between here and the commit only means a replay re-merges the same
	// edge; the record stays PROCESSING and is retried or swept.
	if rec.DocumentType.IsCredential() && rec.ExtractedSkill != "" {
		if err := s.promote(ctx, rec); err != nil {
			return transient(err)
		}
	}

	return s.verify(ctx, rec, user.ID, idFields, start)
}

func (s *Service) fetch(ctx context.Context, rec *models.VerificationRecord) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "verification.fetch")
	defer span.End()
	defer func(t time.Time) { s.metrics.ObserveStage("fetch", time.Since(t)) }(time.Now())

	return s.objects.Get(ctx, rec.StorageKey)
}

func (s *Service) extractAndParse(ctx context.Context, rec *models.VerificationRecord, data []byte) (models.IDFields, models.CertificateFields) {
	_, span := s.tracer.Start(ctx, "verification.extract",
		trace.WithAttributes(attribute.String("extractor", s.extractor.Name())))
	t := time.Now()
	rec.OCRData = s.extractor.Extract(ctx, data)
	s.metrics.ObserveStage("extract", time.Since(t))
	span.End()

	_, span = s.tracer.Start(ctx, "verification.parse")
	defer span.End()
	defer func(t time.Time) { s.metrics.ObserveStage("parse", time.Since(t)) }(time.Now())

	var idFields models.IDFields
	var certFields models.CertificateFields
	if rec.DocumentType == models.DocumentNationalID {
		idFields = parser.ParseNationalID(rec.OCRData)
		rec.ExtractedName = idFields.FullName
	} else {
		certFields = parser.ParseCertificate(rec.OCRData)
		rec.ExtractedSerial = certFields.Serial
		rec.ExtractedSkill = certFields.Skill
		rec.ExtractedInstitution = certFields.Institution
	}
	return idFields, certFields
}

func (s *Service) validate(ctx context.Context, rec *models.VerificationRecord, idFields models.IDFields, certFields models.CertificateFields, profileName string) models.ValidationResult {
	_, span := s.tracer.Start(ctx, "verification.validate")
	defer span.End()
	defer func(t time.Time) { s.metrics.ObserveStage("validate", time.Since(t)) }(time.Now())

	return validator.Validate(rec.DocumentType, idFields, certFields, profileName)
}

func (s *Service) promote(ctx context.Context, rec *models.VerificationRecord) error {
	now := s.now()
	err := s.skills.Promote(ctx, graph.Promotion{
		UserID:     rec.UserID,
		Skill:      rec.ExtractedSkill,
		Method:     MethodCertificate,
		VerifiedAt: now,
	})
	if err != nil {
		return fmt.Errorf("promoting skill %q: %w", rec.ExtractedSkill, err)
	}

	s.metrics.IncrementPromotion()
	s.auditor.Publish(audit.Event{
		Actor:      SystemActor,
		Action:     audit.ActionSkillPromoted,
		EntityType: "skill",
		EntityID:   rec.ExtractedSkill,
		UserID:     rec.UserID,
		New:        map[string]any{"method": MethodCertificate, "verified_at": now},
	})
	return nil
}

// verify applies the trust credit and the terminal VERIFIED status in one
// transaction, guarded on the record still being PROCESSING.
func (s *Service) verify(ctx context.Context, rec *models.VerificationRecord, userID id.UserID, idFields models.IDFields, start time.Time) error {
	ctx, span := s.tracer.Start(ctx, "verification.commit")
	defer span.End()
	defer func(t time.Time) { s.metrics.ObserveStage("commit", time.Since(t)) }(time.Now())

	now := s.now()
	var delta int
	var scoreBefore, scoreAfter int

	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		scoreBefore = user.TrustScore
		delta = trust.Apply(user, rec.DocumentType, idFields)
		scoreAfter = user.TrustScore
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}

		rec.Status = models.StatusVerified
		rec.RejectionReason = ""
		rec.TrustScoreDelta = delta
		rec.VerifiedAt = &now
		rec.VerifiedBy = SystemActor
		return s.records.Finalize(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Another finalizer won; the transaction rolled back, so the
			// trust credit did not double-apply.
			s.logger.Info("verification finalized elsewhere", "verification_id", rec.ID)
			return nil
		}
		return transient(err)
	}

	s.cacheStatus(ctx, rec.ID, models.StatusVerified)
	s.metrics.IncrementJob("verified")
	s.metrics.AddTrustCredited(delta)
	s.metrics.ObserveJobDuration(string(rec.DocumentType), s.now().Sub(start))
	s.auditor.Publish(audit.Event{
		Actor:      SystemActor,
		Action:     audit.ActionDocumentVerified,
		EntityType: "verification",
		EntityID:   rec.ID.String(),
		UserID:     rec.UserID,
		New:        map[string]any{"status": string(models.StatusVerified), "trust_delta": delta},
	})
	if delta != 0 {
		s.auditor.Publish(audit.Event{
			Actor:      SystemActor,
			Action:     audit.ActionTrustScoreChanged,
			EntityType: "user",
			EntityID:   rec.UserID.String(),
			UserID:     rec.UserID,
			Old:        map[string]any{"trust_score": scoreBefore},
			New:        map[string]any{"trust_score": scoreAfter},
		})
	}
	s.logger.Info("document verified",
		"verification_id", rec.ID, "user_id", rec.UserID,
		"document_type", rec.DocumentType, "trust_delta", delta)
	return nil
}

func (s *Service) reject(ctx context.Context, rec *models.VerificationRecord, reason string, start time.Time) error {
	rec.Status = models.StatusRejected
	rec.RejectionReason = reason
	rec.TrustScoreDelta = 0

	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		return s.records.Finalize(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil
		}
		return transient(err)
	}

	s.cacheStatus(ctx, rec.ID, models.StatusRejected)
	s.metrics.IncrementJob("rejected")
	s.metrics.ObserveJobDuration(string(rec.DocumentType), s.now().Sub(start))
	s.auditor.Publish(audit.Event{
		Actor:      SystemActor,
		Action:     audit.ActionDocumentRejected,
		EntityType: "verification",
		EntityID:   rec.ID.String(),
		UserID:     rec.UserID,
		New:        map[string]any{"status": string(models.StatusRejected), "reason": reason},
	})
	s.logger.Info("document rejected",
		"verification_id", rec.ID, "user_id", rec.UserID, "reason", reason)
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, recID id.VerificationID, status models.Status) {
	if err := s.statuses.SetStatus(ctx, recID, status); err != nil {
		s.logger.Warn("failed to cache verification status",
			"verification_id", recID, "error", err)
	}
}

// transient marks infrastructure errors retryable. Factual sentinels that a
// retry cannot change pass through untouched.
func transient(err error) error {
	if err == nil ||
		errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, sentinel.ErrInvalidState) ||
		errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
}
