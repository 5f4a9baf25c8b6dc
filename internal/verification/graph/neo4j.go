package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	id "talanta/pkg/domain"
)

// Neo4jGraph stores user-skill edges in Neo4j. Users and skills are
// MERGEd nodes; CLAIMS and VERIFIED_IN are the two edge kinds.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraph(driver neo4j.DriverWithContext) *Neo4jGraph {
	return &Neo4jGraph{driver: driver}
}

const addClaimCypher = `
MERGE (u:User {id: $userId})
MERGE (s:Skill {name: $skill})
WITH u, s
WHERE NOT (u)-[:VERIFIED_IN]->(s)
MERGE (u)-[c:CLAIMS]->(s)
ON CREATE SET c.claimed_at = datetime(), c.confidence = 0.7
`

const promoteCypher = `
MERGE (u:User {id: $userId})
MERGE (s:Skill {name: $skill})
WITH u, s
OPTIONAL MATCH (u)-[c:CLAIMS]->(s)
DELETE c
MERGE (u)-[v:VERIFIED_IN]->(s)
ON CREATE SET v.verified_at = $verifiedAt, v.method = $method
`

const hasVerifiedCypher = `
MATCH (u:User {id: $userId})-[:VERIFIED_IN]->(s:Skill {name: $skill})
RETURN count(s) > 0 AS verified
`

func (g *Neo4jGraph) AddClaim(ctx context.Context, userID id.UserID, skill string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, addClaimCypher, map[string]any{
			"userId": userID.String(),
			"skill":  skill,
		})
	})
	if err != nil {
		return fmt.Errorf("adding skill claim: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) Promote(ctx context.Context, p Promotion) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, promoteCypher, map[string]any{
			"userId":     p.UserID.String(),
			"skill":      p.Skill,
			"method":     p.Method,
			"verifiedAt": p.VerifiedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})
	if err != nil {
		return fmt.Errorf("promoting skill edge: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) HasVerified(ctx context.Context, userID id.UserID, skill string) (bool, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, hasVerifiedCypher, map[string]any{
			"userId": userID.String(),
			"skill":  skill,
		})
		if err != nil {
			return false, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return false, nil
		}
		verified, _ := rec.Get("verified")
		b, _ := verified.(bool)
		return b, nil
	})
	if err != nil {
		return false, fmt.Errorf("querying verified edge: %w", err)
	}
	return out.(bool), nil
}
