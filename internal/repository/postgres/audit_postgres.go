package postgres

import (
	"context"
	"database/sql"

	"signflow/internal/model"
	"signflow/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

// Record inserts one audit event.
func (r *AuditPostgres) Record(ctx context.Context, e *model.SigningEvent) error {
	const q = `
		INSERT INTO signing_events (id, ts, session_id, request_id, original_file, signed_file,
			signer_name, signer_email, department, document_type, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Timestamp,
		e.SessionID,
		e.RequestID,
		e.OriginalFile,
		e.SignedFile,
		e.SignerName,
		e.SignerEmail,
		e.Department,
		e.DocumentType,
		e.Status,
		e.Error,
	)
	return err
}

// ListBySession returns the events of one session ordered by time.
func (r *AuditPostgres) ListBySession(ctx context.Context, sessionID string) ([]model.SigningEvent, error) {
	const q = `
		SELECT id, ts, session_id, request_id, original_file, signed_file,
			signer_name, signer_email, department, document_type, status, error
		FROM signing_events
		WHERE session_id = $1
		ORDER BY ts ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.SigningEvent, 0)
	for rows.Next() {
		var e model.SigningEvent
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.SessionID,
			&e.RequestID,
			&e.OriginalFile,
			&e.SignedFile,
			&e.SignerName,
			&e.SignerEmail,
			&e.Department,
			&e.DocumentType,
			&e.Status,
			&e.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
