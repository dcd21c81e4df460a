package service

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("checksum mismatch")
	ErrNotFound         = errors.New("session not found")
	ErrSessionExists    = errors.New("session id already used")
	ErrArtifactNotFound = errors.New("signed document not found")
)

// RequestMeta carries caller metadata recorded in the audit trail.
type RequestMeta struct {
	RequestID string
}
