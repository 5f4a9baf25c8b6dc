package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/tx"

	"talanta/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	q := tx.Resolve(ctx, s.db)

	oldVal, err := json.Marshal(event.Old)
	if err != nil {
		return fmt.Errorf("encoding audit old value: %w", err)
	}
	newVal, err := json.Marshal(event.New)
	if err != nil {
		return fmt.Errorf("encoding audit new value: %w", err)
	}

	var userID sql.NullString
	if !event.UserID.IsZero() {
		userID = sql.NullString{String: event.UserID.String(), Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, user_id, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Actor, string(event.Action), event.EntityType, event.EntityID,
		userID, oldVal, newVal, event.Timestamp)
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	q := tx.Resolve(ctx, s.db)

	rows, err := q.QueryContext(ctx, `
		SELECT actor, action, entity_type, entity_id, old_value, new_value, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e              audit.Event
			action         string
			oldVal, newVal []byte
		)
		if err := rows.Scan(&e.Actor, &action, &e.EntityType, &e.EntityID, &oldVal, &newVal, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.UserID = userID
		if len(oldVal) > 0 {
			var v any
			if err := json.Unmarshal(oldVal, &v); err == nil {
				e.Old = v
			}
		}
		if len(newVal) > 0 {
			var v any
			if err := json.Unmarshal(newVal, &v); err == nil {
				e.New = v
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return out, nil
}
