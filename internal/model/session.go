// Package model holds the signing session document and audit event types.
package model

import (
	"fmt"
	"time"
)

// SignerStatus is the progress of a single signer's turn.
type SignerStatus string

const (
	StatusPending SignerStatus = "pending"
	StatusSigned  SignerStatus = "signed"
)

// Location is a requested signature placement. Page is 1-based as supplied by clients.
type Location struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// SignerTurn is one participant's slot in a signing session.
type SignerTurn struct {
	WorkID    string       `json:"signer_workid"`
	Name      string       `json:"signer_name"`
	Email     string       `json:"signer_email"`
	Locations []Location   `json:"locations"`
	Status    SignerStatus `json:"status"`
	SignedAt  *time.Time   `json:"signed_at"`
}

// Initiator identifies who opened the session.
type Initiator struct {
	WorkID     string `json:"workid"`
	Department string `json:"department"`
}

// ArtifactRef points at one immutable version of the session document in object storage.
// Version 0 is the original upload; version k is the output of signing step k.
type ArtifactRef struct {
	Version   int       `json:"version"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	SignedBy  string    `json:"signed_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SigningSession is the aggregate root of a sequential multi-signer workflow.
// The whole struct is persisted as one JSON document per session id.
type SigningSession struct {
	ID          string        `json:"uuid"`
	WorkflowID  string        `json:"workflow_id"`
	Initiator   Initiator     `json:"initiator"`
	Filename    string        `json:"filename"`
	DocumentRef string        `json:"document_ref"`
	Artifacts   []ArtifactRef `json:"artifacts"`
	Signers     []SignerTurn  `json:"signers"`
	Cursor      int           `json:"current_index"`
	Completed   bool          `json:"completed"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Version is the store record version, managed by the session repository.
	Version int64 `json:"version"`
}

// Current returns the signer whose turn it is, or false once the session is completed.
func (s *SigningSession) Current() (*SignerTurn, bool) {
	if s.Completed || s.Cursor < 0 || s.Cursor >= len(s.Signers) {
		return nil, false
	}
	return &s.Signers[s.Cursor], true
}

// NextSignerEmail is the email of the signer allowed to act now, or "" when completed.
func (s *SigningSession) NextSignerEmail() string {
	if cur, ok := s.Current(); ok {
		return cur.Email
	}
	return ""
}

// LatestArtifact returns the newest entry of the artifact history.
func (s *SigningSession) LatestArtifact() (ArtifactRef, bool) {
	if len(s.Artifacts) == 0 {
		return ArtifactRef{}, false
	}
	return s.Artifacts[len(s.Artifacts)-1], true
}

// Clone returns a deep copy so a step can be computed without touching the loaded snapshot.
func (s *SigningSession) Clone() *SigningSession {
	out := *s
	out.Artifacts = append([]ArtifactRef(nil), s.Artifacts...)
	out.Signers = make([]SignerTurn, len(s.Signers))
	for i, st := range s.Signers {
		st.Locations = append([]Location(nil), st.Locations...)
		if st.SignedAt != nil {
			at := *st.SignedAt
			st.SignedAt = &at
		}
		out.Signers[i] = st
	}
	return &out
}

// CheckInvariants reports the first violated turn-order invariant, if any.
func (s *SigningSession) CheckInvariants() error {
	if s.Cursor < 0 || s.Cursor > len(s.Signers) {
		return fmt.Errorf("cursor %d out of range [0,%d]", s.Cursor, len(s.Signers))
	}
	if s.Completed != (s.Cursor == len(s.Signers)) {
		return fmt.Errorf("completed=%t inconsistent with cursor %d of %d", s.Completed, s.Cursor, len(s.Signers))
	}
	for i, st := range s.Signers {
		want := StatusPending
		if i < s.Cursor {
			want = StatusSigned
		}
		if st.Status != want {
			return fmt.Errorf("signer %d (%s) is %s, want %s", i, st.Email, st.Status, want)
		}
		if (st.SignedAt != nil) != (want == StatusSigned) {
			return fmt.Errorf("signer %d (%s) signed_at inconsistent with status %s", i, st.Email, st.Status)
		}
	}
	if len(s.Artifacts) != s.Cursor+1 {
		return fmt.Errorf("artifact history has %d entries, want %d", len(s.Artifacts), s.Cursor+1)
	}
	if latest, _ := s.LatestArtifact(); latest.Key != s.DocumentRef {
		return fmt.Errorf("document_ref %q is not the latest artifact %q", s.DocumentRef, latest.Key)
	}
	return nil
}
