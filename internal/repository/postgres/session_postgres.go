package postgres

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

// SessionPostgres is a PostgreSQL implementation of repository.SessionRepository.
// The session document lives in a JSONB column next to its record version.
type SessionPostgres struct {
	db *sql.DB
}

// NewSessionPostgres creates a new SessionPostgres repository.
func NewSessionPostgres(db *sql.DB) *SessionPostgres {
	return &SessionPostgres{db: db}
}

var _ repository.SessionRepository = (*SessionPostgres)(nil)

// Create inserts the initial session row with version 1.
func (r *SessionPostgres) Create(ctx context.Context, s *model.SigningSession) error {
	const q = `
		INSERT INTO signing_sessions (id, version, state, completed, created_at, updated_at)
		VALUES ($1, 1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, s.ID, state, s.Completed, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return err
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
func (r *SessionPostgres) Get(ctx context.Context, id string) (*model.SigningSession, error) {
	const q = `
		SELECT state, version
		FROM signing_sessions
		WHERE id = $1
	`
	var (
		state   []byte
		version int64
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&state, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var s model.SigningSession
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	s.Version = version
	return &s, nil
}

// CompareAndSwap writes next only if the stored version equals expectedVersion.
func (r *SessionPostgres) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *model.SigningSession) error {
	const q = `
		UPDATE signing_sessions
		SET state = $1, version = version + 1, completed = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	state, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, state, next.Completed, time.Now().UTC(), id, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		next.Version = expectedVersion + 1
		return nil
	}

	// Nothing updated: tell a lost race apart from an unknown id.
	const qExists = `SELECT EXISTS (SELECT 1 FROM signing_sessions WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, qExists, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
