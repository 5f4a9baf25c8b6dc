//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// pipeline schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("talanta_test"),
		tcpostgres.WithUsername("talanta"),
		tcpostgres.WithPassword("talanta"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pc := &PostgresContainer{Container: container, DSN: dsn, DB: db}
	if err := pc.applySchema(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Cleanup is left to the singleton Manager and Ryuk, the container is
	// shared across suites.

	return pc
}

// TruncateTables truncates the named tables, for isolation between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

func (p *PostgresContainer) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY,
	full_name   TEXT,
	trust_score INTEGER NOT NULL DEFAULT 0,
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS verifications (
	id                    UUID PRIMARY KEY,
	user_id               UUID NOT NULL REFERENCES users (id),
	document_type         TEXT NOT NULL,
	storage_key           TEXT NOT NULL,
	file_size             BIGINT NOT NULL DEFAULT 0,
	ocr_data              JSONB,
	extracted_name        TEXT,
	extracted_serial      TEXT,
	extracted_skill       TEXT,
	extracted_institution TEXT,
	status                TEXT NOT NULL DEFAULT 'PENDING',
	rejection_reason      TEXT,
	trust_score_delta     INTEGER NOT NULL DEFAULT 0,
	verified_at           TIMESTAMPTZ,
	verified_by           TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_verifications_user ON verifications (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_verifications_status ON verifications (status, updated_at);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          BIGSERIAL PRIMARY KEY,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	user_id     UUID,
	old_value   JSONB,
	new_value   JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := p.DB.ExecContext(ctx, schema)
	return err
}
