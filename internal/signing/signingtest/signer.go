// Package signingtest provides a deterministic DocumentSigner for tests.
package signingtest

import (
	"context"
	"fmt"
	"sync"

	"signflow/internal/signing"
)

// Signer appends a readable trailer per call so every output differs from its input.
// Before, when set, runs inside Sign and may block or fail the call.
type Signer struct {
	Before func(ctx context.Context, req signing.SignRequest) error

	mu       sync.Mutex
	requests []signing.SignRequest
}

var _ signing.DocumentSigner = (*Signer)(nil)

func (s *Signer) Sign(ctx context.Context, req signing.SignRequest) ([]byte, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.Before != nil {
		if err := s.Before(ctx, req); err != nil {
			return nil, err
		}
	}
	out := make([]byte, 0, len(req.Document)+64)
	out = append(out, req.Document...)
	out = append(out, fmt.Sprintf("\n%%signed %s field=%s\n", req.Signer.Email, req.SignatureField)...)
	return out, nil
}

// Requests returns a copy of every request seen so far.
func (s *Signer) Requests() []signing.SignRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]signing.SignRequest(nil), s.requests...)
}

// Locator returns a fixed answer for every marker.
type Locator struct {
	Hint  signing.Hint
	Found bool
	Err   error
}

func (l Locator) Locate(context.Context, []byte, string) (signing.Hint, bool, error) {
	return l.Hint, l.Found, l.Err
}
