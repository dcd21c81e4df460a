package signing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"signflow/internal/model"
	"signflow/internal/storage"
)

// ErrDocumentMissing means no committed version of a session document is readable.
var ErrDocumentMissing = errors.New("no stored document version")

// Latest is an opened document version. The caller closes Body.
type Latest struct {
	Body io.ReadCloser
	Info storage.ObjectInfo
	Ref  model.ArtifactRef
}

// OpenLatest opens the newest committed version of s. DocumentRef is streamed
// when present; otherwise the artifact history is walked from newest to oldest
// and the first object whose content matches its recorded digest wins.
// Only keys recorded in the history are ever read. s is not modified.
func (e *Executor) OpenLatest(ctx context.Context, s *model.SigningSession) (*Latest, error) {
	rc, info, err := e.store.Get(ctx, s.DocumentRef)
	if err == nil {
		ref, _ := s.LatestArtifact()
		if ref.Key != s.DocumentRef {
			ref = model.ArtifactRef{Version: s.Cursor, Key: s.DocumentRef}
		}
		return &Latest{Body: rc, Info: info, Ref: ref}, nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("open document %s: %w", s.DocumentRef, err)
	}

	log := e.log.WithFields(logrus.Fields{"session_id": s.ID, "document_ref": s.DocumentRef})
	log.Warn("document_ref missing from storage, walking artifact history")

	for i := len(s.Artifacts) - 1; i >= 0; i-- {
		ref := s.Artifacts[i]
		if ref.Key == s.DocumentRef {
			continue
		}
		b, info, err := storage.ReadAll(ctx, e.store, ref.Key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open artifact %s: %w", ref.Key, err)
		}
		if ref.SHA256 != "" {
			sum := sha256.Sum256(b)
			if hex.EncodeToString(sum[:]) != ref.SHA256 {
				log.WithField("key", ref.Key).Warn("artifact digest mismatch, skipping")
				continue
			}
		}
		log.WithFields(logrus.Fields{"key": ref.Key, "version": ref.Version}).Info("serving artifact from history")
		return &Latest{Body: io.NopCloser(bytes.NewReader(b)), Info: info, Ref: ref}, nil
	}
	return nil, fmt.Errorf("session %s: %w", s.ID, ErrDocumentMissing)
}

// readCurrent loads DocumentRef for a signing step. There is no history
// fallback here: signing an older version would drop committed signatures.
func (e *Executor) readCurrent(ctx context.Context, s *model.SigningSession) ([]byte, error) {
	b, _, err := storage.ReadAll(ctx, e.store, s.DocumentRef)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("session %s: %w: %w", s.ID, ErrDocumentMissing, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", s.DocumentRef, err)
	}
	return b, nil
}
