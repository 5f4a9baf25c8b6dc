package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/sentinel"

	"talanta/internal/verification/models"
)

// MemoryRecordStore is an in-memory RecordStore for tests and local runs.
// It enforces the same transition guards as the Postgres store.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[id.VerificationID]models.VerificationRecord
	now     func() time.Time
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[id.VerificationID]models.VerificationRecord),
		now:     time.Now,
	}
}

// SetNow overrides the store clock. Test helper.
func (s *MemoryRecordStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryRecordStore) Create(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("verification %s: %w", rec.ID, sentinel.ErrConflict)
	}
	cp := *rec
	cp.UpdatedAt = cp.CreatedAt
	s.records[rec.ID] = cp
	return nil
}

func (s *MemoryRecordStore) FindByID(_ context.Context, recID id.VerificationID) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recID]
	if !ok {
		return nil, fmt.Errorf("verification %s: %w", recID, sentinel.ErrNotFound)
	}
	cp := rec
	return &cp, nil
}

func (s *MemoryRecordStore) ListByUser(_ context.Context, userID id.UserID) ([]models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VerificationRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryRecordStore) MarkProcessing(_ context.Context, recID id.VerificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recID]
	if !ok {
		return fmt.Errorf("verification %s: %w", recID, sentinel.ErrNotFound)
	}
	if rec.Status.IsTerminal() {
		return fmt.Errorf("verification %s already finalized: %w", recID, sentinel.ErrInvalidState)
	}
	rec.Status = models.StatusProcessing
	rec.UpdatedAt = s.now()
	s.records[recID] = rec
	return nil
}

func (s *MemoryRecordStore) Finalize(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[rec.ID]
	if !ok {
		return fmt.Errorf("verification %s: %w", rec.ID, sentinel.ErrNotFound)
	}
	if cur.Status != models.StatusProcessing {
		return fmt.Errorf("verification %s not in PROCESSING: %w", rec.ID, sentinel.ErrInvalidState)
	}
	cp := *rec
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = s.now()
	s.records[rec.ID] = cp
	return nil
}

func (s *MemoryRecordStore) ListStuckProcessing(_ context.Context, olderThan time.Duration) ([]models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-olderThan)
	var out []models.VerificationRecord
	for _, rec := range s.records {
		if rec.Status == models.StatusProcessing && rec.UpdatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryRecordStore) ListVerifiedWithSkill(_ context.Context) ([]models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VerificationRecord
	for _, rec := range s.records {
		if rec.Status == models.StatusVerified && rec.ExtractedSkill != "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MemoryUserStore is an in-memory UserStore for tests and local runs.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[id.UserID]models.User)}
}

// Put seeds a user. Test helper.
func (s *MemoryUserStore) Put(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := u
	return &cp, nil
}

func (s *MemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrNotFound)
	}
	s.users[user.ID] = *user
	return nil
}

// NopTxRunner runs fn without a transaction, for memory-backed wiring.
type NopTxRunner struct{}

func (NopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
