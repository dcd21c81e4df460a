// Package locator finds signature markers in documents via a remote text-location service.
package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"signflow/internal/signing"
)

type locateRequest struct {
	Document []byte `json:"document"`
	Keyword  string `json:"keyword"`
}

type locateResponse struct {
	Found bool    `json:"found"`
	Page  int     `json:"page"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Remote asks an HTTP service for the first occurrence of a marker.
// The service answers {found, page, x, y} with a 0-based page.
type Remote struct {
	url    string
	client *http.Client
}

var _ signing.PlacementLocator = (*Remote)(nil)

// NewRemote creates a locator client. A nil client gets an instrumented one with the given timeout.
func NewRemote(url string, client *http.Client, timeout time.Duration) *Remote {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		}
	}
	return &Remote{url: url, client: client}
}

func (r *Remote) Locate(ctx context.Context, doc []byte, marker string) (signing.Hint, bool, error) {
	body, err := json.Marshal(locateRequest{Document: doc, Keyword: marker})
	if err != nil {
		return signing.Hint{}, false, fmt.Errorf("encode locate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return signing.Hint{}, false, fmt.Errorf("build locate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return signing.Hint{}, false, fmt.Errorf("locate request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return signing.Hint{}, false, nil
	default:
		return signing.Hint{}, false, fmt.Errorf("locator returned %s", resp.Status)
	}

	var out locateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return signing.Hint{}, false, fmt.Errorf("decode locate response: %w", err)
	}
	if !out.Found {
		return signing.Hint{}, false, nil
	}
	if out.Page < 0 {
		return signing.Hint{}, false, fmt.Errorf("locator returned negative page %d", out.Page)
	}
	return signing.Hint{Page: out.Page, X: out.X, Y: out.Y}, true, nil
}

// New returns a remote locator when url is set and a no-op locator otherwise.
func New(url string, timeout time.Duration) signing.PlacementLocator {
	if url == "" {
		return signing.NoLocator{}
	}
	return NewRemote(url, nil, timeout)
}
