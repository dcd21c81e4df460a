package repository

import (
	"context"

	"signflow/internal/model"
)

// AuditRepository appends to and reads the signing audit trail.
type AuditRepository interface {
	// Record appends one event. Events are never updated.
	Record(ctx context.Context, e *model.SigningEvent) error

	// ListBySession returns the events of a session, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]model.SigningEvent, error)
}
