package objectstore

import (
	"context"
	"fmt"
	"sync"

	"talanta/pkg/platform/sentinel"
)

// MemoryGateway is an in-memory Gateway for tests and local runs.
type MemoryGateway struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailGets simulates an unreachable store.
	FailGets bool
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{objects: make(map[string][]byte)}
}

func (g *MemoryGateway) Put(_ context.Context, key string, data []byte, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	g.objects[key] = cp
	return nil
}

func (g *MemoryGateway) Get(_ context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.FailGets {
		return nil, fmt.Errorf("fetching document %q: %w", key, sentinel.ErrUnavailable)
	}
	data, ok := g.objects[key]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", key, sentinel.ErrNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
