package graph

import (
	"context"
	"sync"
	"time"

	id "talanta/pkg/domain"
)

type edge struct {
	verifiedAt time.Time
	method     string
}

// MemoryGraph is an in-memory SkillGraph for tests and local runs.
type MemoryGraph struct {
	mu       sync.RWMutex
	claims   map[id.UserID]map[string]struct{}
	verified map[id.UserID]map[string]edge
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		claims:   make(map[id.UserID]map[string]struct{}),
		verified: make(map[id.UserID]map[string]edge),
	}
}

func (g *MemoryGraph) AddClaim(_ context.Context, userID id.UserID, skill string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.verified[userID][skill]; ok {
		return nil
	}
	if g.claims[userID] == nil {
		g.claims[userID] = make(map[string]struct{})
	}
	g.claims[userID][skill] = struct{}{}
	return nil
}

func (g *MemoryGraph) Promote(_ context.Context, p Promotion) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.claims[p.UserID], p.Skill)
	if g.verified[p.UserID] == nil {
		g.verified[p.UserID] = make(map[string]edge)
	}
	if _, ok := g.verified[p.UserID][p.Skill]; !ok {
		g.verified[p.UserID][p.Skill] = edge{verifiedAt: p.VerifiedAt, method: p.Method}
	}
	return nil
}

func (g *MemoryGraph) HasVerified(_ context.Context, userID id.UserID, skill string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.verified[userID][skill]
	return ok, nil
}

// HasClaim reports whether an unverified claim edge exists. Test helper.
func (g *MemoryGraph) HasClaim(userID id.UserID, skill string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.claims[userID][skill]
	return ok
}
