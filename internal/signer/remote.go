package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"signflow/internal/signing"
)

// maxSignedSize caps the response body accepted from a remote signer.
const maxSignedSize = 64 << 20

type remoteRequest struct {
	Document       []byte           `json:"document"`
	Signer         signing.Identity `json:"signer"`
	Fields         []signing.Field  `json:"fields"`
	SignatureField string           `json:"signature_field"`
	StampText      string           `json:"stamp_text"`
	SignedAt       time.Time        `json:"signed_at"`
}

// Remote delegates signing to an HTTP signing service. The service receives
// a JSON body (document base64-encoded) and answers 200 with the signed PDF.
type Remote struct {
	url    string
	client *http.Client
}

var _ signing.DocumentSigner = (*Remote)(nil)

// NewRemote creates a remote signer. A nil client gets an instrumented one with the given timeout.
func NewRemote(url string, client *http.Client, timeout time.Duration) *Remote {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		}
	}
	return &Remote{url: url, client: client}
}

func (r *Remote) Sign(ctx context.Context, req signing.SignRequest) ([]byte, error) {
	body, err := json.Marshal(remoteRequest{
		Document:       req.Document,
		Signer:         req.Signer,
		Fields:         req.Fields,
		SignatureField: req.SignatureField,
		StampText:      req.StampText,
		SignedAt:       req.SignedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode sign request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sign request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote signer returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxSignedSize+1))
	if err != nil {
		return nil, fmt.Errorf("read signed document: %w", err)
	}
	if len(out) > maxSignedSize {
		return nil, fmt.Errorf("signed document exceeds %d bytes", maxSignedSize)
	}
	return out, nil
}
