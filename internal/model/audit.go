package model

import "time"

// Audit event outcomes.
const (
	EventSuccess = "success"
	EventFailed  = "failed"
)

// SigningEvent is one row of the signing audit trail.
// SessionID is empty for one-shot signing requests.
type SigningEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id,omitempty"`
	RequestID    string    `json:"request_id"`
	OriginalFile string    `json:"original_file"`
	SignedFile   string    `json:"signed_file"`
	SignerName   string    `json:"signer_name"`
	SignerEmail  string    `json:"signer_email,omitempty"`
	Department   string    `json:"department,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}
