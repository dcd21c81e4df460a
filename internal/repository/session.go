package repository

import (
	"context"

	"signflow/internal/model"
)

// SessionRepository is a versioned record store keyed by session id.
// It persists the session document as-is and never interprets its contents;
// the record version is the only thing it reasons about.
type SessionRepository interface {
	// Create stores the initial state under s.ID with version 1.
	// Returns ErrAlreadyExists if the id was ever used.
	Create(ctx context.Context, s *model.SigningSession) error

	// Get returns the stored session with its current Version populated.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*model.SigningSession, error)

	// CompareAndSwap replaces the stored state only if its version still equals expectedVersion.
	// On success next.Version is set to the new version.
	// Returns ErrConflict if the version moved on and ErrNotFound for unknown ids.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *model.SigningSession) error
}
