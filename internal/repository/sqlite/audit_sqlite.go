package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"signflow/internal/model"
	"signflow/internal/repository"
)

// AuditSQLite stores the signing audit trail in SQLite.
type AuditSQLite struct {
	db *sql.DB
}

// NewAuditSQLite creates a new AuditSQLite repository.
func NewAuditSQLite(db *sql.DB) *AuditSQLite {
	return &AuditSQLite{db: db}
}

var _ repository.AuditRepository = (*AuditSQLite)(nil)

// Record inserts one audit event.
func (r *AuditSQLite) Record(ctx context.Context, e *model.SigningEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signing_events (id, ts, session_id, request_id, original_file, signed_file,
		   signer_name, signer_email, department, document_type, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, toMillis(e.Timestamp), e.SessionID, e.RequestID, e.OriginalFile, e.SignedFile,
		e.SignerName, e.SignerEmail, e.Department, e.DocumentType, e.Status, e.Error,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListBySession returns the events of one session ordered by time.
func (r *AuditSQLite) ListBySession(ctx context.Context, sessionID string) ([]model.SigningEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts, session_id, request_id, original_file, signed_file,
		   signer_name, signer_email, department, document_type, status, error
		 FROM signing_events
		 WHERE session_id = ?
		 ORDER BY ts ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]model.SigningEvent, 0)
	for rows.Next() {
		var (
			e  model.SigningEvent
			ts int64
		)
		if err := scanEvent(rows, &e, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = fromMillis(ts)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanEvent(rows *sql.Rows, e *model.SigningEvent, ts *int64) error {
	return rows.Scan(
		&e.ID,
		ts,
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
	)
}
