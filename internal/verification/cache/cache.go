// Package cache keeps a short-lived copy of each record's status in Redis
// so polling clients do not hit Postgres on every request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	id "talanta/pkg/domain"

	"talanta/internal/verification/models"
)

// StatusCache is a best-effort write-through cache of record status.
type StatusCache interface {
	SetStatus(ctx context.Context, recID id.VerificationID, status models.Status) error
	// GetStatus returns ok=false on a miss.
	GetStatus(ctx context.Context, recID id.VerificationID) (models.Status, bool, error)
}

// RedisCache stores statuses under a per-record key with a TTL.
type RedisCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisCache(client *goredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func statusKey(recID id.VerificationID) string {
	return "verification:status:" + recID.String()
}

func (c *RedisCache) SetStatus(ctx context.Context, recID id.VerificationID, status models.Status) error {
	if err := c.client.Set(ctx, statusKey(recID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("caching verification status: %w", err)
	}
	return nil
}

func (c *RedisCache) GetStatus(ctx context.Context, recID id.VerificationID) (models.Status, bool, error) {
	val, err := c.client.Get(ctx, statusKey(recID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading cached status: %w", err)
	}
	return models.Status(val), true, nil
}

// MemoryCache is an in-memory StatusCache for tests and local runs.
type MemoryCache struct {
	mu       sync.RWMutex
	statuses map[id.VerificationID]models.Status
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{statuses: make(map[id.VerificationID]models.Status)}
}

func (c *MemoryCache) SetStatus(_ context.Context, recID id.VerificationID, status models.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[recID] = status
	return nil
}

func (c *MemoryCache) GetStatus(_ context.Context, recID id.VerificationID) (models.Status, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.statuses[recID]
	return status, ok, nil
}
