package signing

import (
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn      = errors.New("not your turn to sign")
	ErrAlreadyCompleted = errors.New("signing already completed for this document")
	// ErrRetryable marks a step that lost a concurrent write. The caller must
	// reload the session and decide again; the lost attempt must not be replayed.
	ErrRetryable = errors.New("session changed concurrently, reload and retry")
)

// SigningError reports a document signer failure. The session is left untouched.
type SigningError struct {
	SessionID string
	Signer    string
	Err       error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed for %s in session %s: %v", e.Signer, e.SessionID, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
