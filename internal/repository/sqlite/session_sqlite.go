// Package sqlite provides SQLite-backed repositories for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signflow/internal/model"
	"signflow/internal/repository"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// SessionSQLite persists sessions as JSON text in SQLite.
type SessionSQLite struct {
	db *sql.DB
}

// NewSessionSQLite creates a new SessionSQLite repository.
func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

var _ repository.SessionRepository = (*SessionSQLite)(nil)

// Create inserts the initial session row with version 1.
func (r *SessionSQLite) Create(ctx context.Context, s *model.SigningSession) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO signing_sessions (id, version, state, completed, created_at, updated_at)
		 VALUES (?, 1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		s.ID, string(state), s.Completed, toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrAlreadyExists
	}
	s.Version = 1
	return nil
}

// Get fetches a session by id.
func (r *SessionSQLite) Get(ctx context.Context, id string) (*model.SigningSession, error) {
	var (
		state   string
		version int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT state, version FROM signing_sessions WHERE id = ?`, id,
	).Scan(&state, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s model.SigningSession
	if err := json.Unmarshal([]byte(state), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	s.Version = version
	return &s, nil
}

// CompareAndSwap writes next only if the stored version equals expectedVersion.
func (r *SessionSQLite) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *model.SigningSession) error {
	state, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE signing_sessions
		 SET state = ?, version = version + 1, completed = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(state), next.Completed, toMillis(time.Now()), id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("swap session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		next.Version = expectedVersion + 1
		return nil
	}

	var exists int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM signing_sessions WHERE id = ?`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
