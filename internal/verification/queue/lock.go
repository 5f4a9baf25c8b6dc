package queue

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	id "talanta/pkg/domain"
)

// Locker serializes processing of one verification record across workers.
// The orchestrator is idempotent, so a lost lock only costs duplicate work,
// never a duplicate commit.
type Locker interface {
	// Acquire tries to take the per-record lock. It returns false without
	// error when another worker holds it.
	Acquire(ctx context.Context, recID id.VerificationID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, recID id.VerificationID) error
}

// RedisLocker implements Locker with SET NX and a TTL so a crashed worker's
// lock expires on its own.
type RedisLocker struct {
	client *goredis.Client
}

func NewRedisLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(recID id.VerificationID) string {
	return "verification:lock:" + recID.String()
}

func (l *RedisLocker) Acquire(ctx context.Context, recID id.VerificationID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(recID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring job lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, recID id.VerificationID) error {
	if err := l.client.Del(ctx, lockKey(recID)).Err(); err != nil {
		return fmt.Errorf("releasing job lock: %w", err)
	}
	return nil
}

// NopLocker always acquires, for single-worker wiring and tests.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, id.VerificationID, time.Duration) (bool, error) {
	return true, nil
}

func (NopLocker) Release(context.Context, id.VerificationID) error { return nil }
