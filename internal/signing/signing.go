// Package signing holds the turn-enforcement engine of a multi-signer session:
// the pure turn validator, the one-step executor, and the interfaces of the two
// external collaborators it drives (the document signer and the placement locator).
//
// A step is read -> compute -> compare-and-swap. The executor never holds a
// store lock while the document signer runs; the session store's
// compare-and-swap is the only linearization point between racing requests.
package signing

import (
	"context"
	"time"
)

// Rect is a field rectangle in PDF user space, lower-left (X1,Y1) to upper-right (X2,Y2).
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Field is one signature field placeholder. Page is 0-based.
type Field struct {
	Name string `json:"name"`
	Page int    `json:"page"`
	Box  Rect   `json:"box"`
}

// Identity is who the visible stamp names.
type Identity struct {
	WorkID string `json:"work_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// SignRequest asks a DocumentSigner for one new document version.
// Every entry of Fields is added as a visual field; only SignatureField
// carries the cryptographic signature.
type SignRequest struct {
	Document       []byte
	Signer         Identity
	Fields         []Field
	SignatureField string
	StampText      string
	SignedAt       time.Time
}

// DocumentSigner applies a signature to a document and returns the new bytes.
// Implementations must not modify req.Document.
type DocumentSigner interface {
	Sign(ctx context.Context, req SignRequest) ([]byte, error)
}

// Hint is a located marker position. Page is 0-based.
type Hint struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// PlacementLocator finds the position of a marker string inside a document.
// found=false means the marker is not present.
type PlacementLocator interface {
	Locate(ctx context.Context, doc []byte, marker string) (hint Hint, found bool, err error)
}

// NoLocator never finds anything, so stored locations are always used.
type NoLocator struct{}

func (NoLocator) Locate(context.Context, []byte, string) (Hint, bool, error) {
	return Hint{}, false, nil
}
