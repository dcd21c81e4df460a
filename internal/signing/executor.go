package signing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"signflow/internal/model"
	"signflow/internal/repository"
	"signflow/internal/storage"
)

// Options tunes an Executor.
type Options struct {
	// MarkerFormat is formatted with the 1-based turn number, e.g. "Authorised Signature %d".
	MarkerFormat string
	FieldWidth   float64
	FieldHeight  float64
	// MaxConcurrent bounds in-flight DocumentSigner calls across all sessions.
	MaxConcurrent int64
	Now           func() time.Time
}

func (o *Options) defaults() {
	if o.MarkerFormat == "" {
		o.MarkerFormat = "Authorised Signature %d"
	}
	if o.FieldWidth <= 0 {
		o.FieldWidth = 180
	}
	if o.FieldHeight <= 0 {
		o.FieldHeight = 50
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// StepResult describes a committed signing step.
type StepResult struct {
	Session   *model.SigningSession
	SignedBy  model.SignerTurn
	Artifact  model.ArtifactRef
	Completed bool
}

// Executor performs exactly one signing step per call.
type Executor struct {
	sessions repository.SessionRepository
	store    storage.Storage
	signer   DocumentSigner
	locator  PlacementLocator
	stamp    *Stamp
	sem      *semaphore.Weighted
	opts     Options
	log      logrus.FieldLogger
}

func NewExecutor(
	sessions repository.SessionRepository,
	store storage.Storage,
	signer DocumentSigner,
	locator PlacementLocator,
	stamp *Stamp,
	opts Options,
	log logrus.FieldLogger,
) *Executor {
	opts.defaults()
	if locator == nil {
		locator = NoLocator{}
	}
	return &Executor{
		sessions: sessions,
		store:    store,
		signer:   signer,
		locator:  locator,
		stamp:    stamp,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		opts:     opts,
		log:      log.WithField("component", "signing"),
	}
}

// ExecuteStep applies the current signer's signature to the latest document
// version of s and commits the advanced session with compare-and-swap on
// s.Version. s is a snapshot and is never modified.
//
// Errors: ErrNotYourTurn / ErrAlreadyCompleted when the actor may not act,
// *SigningError when the document signer fails, ErrRetryable when another
// writer committed first. In every error case the stored session is unchanged.
func (e *Executor) ExecuteStep(ctx context.Context, s *model.SigningSession, actorEmail string) (*StepResult, error) {
	if err := Validate(s, actorEmail).Err(); err != nil {
		return nil, err
	}
	active := s.Cursor
	turn := s.Signers[active]
	log := e.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"signer":     turn.Email,
		"turn":       active + 1,
		"version":    s.Version,
	})

	doc, err := e.readCurrent(ctx, s)
	if err != nil {
		return nil, err
	}

	fields := e.resolveFields(ctx, doc, active, turn, log)
	if len(fields) == 0 {
		return nil, &SigningError{SessionID: s.ID, Signer: turn.Email, Err: errors.New("signer has no signature locations")}
	}

	now := e.opts.Now().UTC()
	id := Identity{WorkID: turn.WorkID, Name: turn.Name, Email: turn.Email}
	text, err := e.stamp.Render(id, now)
	if err != nil {
		return nil, fmt.Errorf("render stamp: %w", err)
	}

	signed, err := e.sign(ctx, SignRequest{
		Document:       doc,
		Signer:         id,
		Fields:         fields,
		SignatureField: fields[len(fields)-1].Name,
		StampText:      text,
		SignedAt:       now,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("document signer failed")
		return nil, &SigningError{SessionID: s.ID, Signer: turn.Email, Err: err}
	}

	version := active + 1
	key := ArtifactKey(s.ID, version, now)
	sum := sha256.Sum256(signed)
	info, err := e.store.Put(ctx, key, bytes.NewReader(signed), storage.PutObjectOptions{
		Size:        int64(len(signed)),
		ContentType: "application/pdf",
		Metadata: map[string]string{
			MetaSessionID: s.ID,
			MetaVersion:   strconv.Itoa(version),
			MetaSignedBy:  turn.Email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store signed document: %w", err)
	}

	next := s.Clone()
	signedAt := now
	next.Signers[active].Status = model.StatusSigned
	next.Signers[active].SignedAt = &signedAt
	next.Cursor = active + 1
	next.Completed = next.Cursor == len(next.Signers)
	next.DocumentRef = key
	ref := model.ArtifactRef{
		Version:   version,
		Key:       key,
		Size:      info.Size,
		SHA256:    hex.EncodeToString(sum[:]),
		SignedBy:  turn.Email,
		CreatedAt: now,
	}
	if ref.Size <= 0 {
		ref.Size = int64(len(signed))
	}
	next.Artifacts = append(next.Artifacts, ref)
	next.UpdatedAt = now

	if err := e.sessions.CompareAndSwap(ctx, s.ID, s.Version, next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// The losing blob is unreferenced and its key is unique to this attempt.
			if delErr := e.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				log.WithError(delErr).WithField("key", key).Warn("failed to remove orphaned artifact")
			}
			log.Info("lost concurrent update")
			return nil, fmt.Errorf("%w: %w", ErrRetryable, err)
		}
		return nil, fmt.Errorf("commit session: %w", err)
	}

	log.WithFields(logrus.Fields{
		"artifact":  key,
		"completed": next.Completed,
	}).Info("signing step committed")

	return &StepResult{
		Session:   next,
		SignedBy:  next.Signers[active],
		Artifact:  ref,
		Completed: next.Completed,
	}, nil
}

// resolveFields maps each stored location of the active signer to a field.
// A located marker wins over the stored coordinates. Locator failures count as not found.
func (e *Executor) resolveFields(ctx context.Context, doc []byte, active int, turn model.SignerTurn, log logrus.FieldLogger) []Field {
	marker := fmt.Sprintf(e.opts.MarkerFormat, active+1)
	fields := make([]Field, 0, len(turn.Locations))
	for idx, loc := range turn.Locations {
		page, x, y := loc.Page-1, loc.X, loc.Y
		hint, found, err := e.locator.Locate(ctx, doc, marker)
		if err != nil {
			log.WithError(err).WithField("marker", marker).Warn("placement locator failed, using stored location")
		} else if found {
			page, x, y = hint.Page, hint.X, hint.Y
		}
		if page < 0 {
			page = 0
		}
		fields = append(fields, Field{
			Name: FieldName(turn.Email, idx),
			Page: page,
			Box:  Rect{X1: x, Y1: y, X2: x + e.opts.FieldWidth, Y2: y + e.opts.FieldHeight},
		})
	}
	return fields
}

func (e *Executor) sign(ctx context.Context, req SignRequest) ([]byte, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	out, err := e.signer.Sign(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("document signer returned an empty document")
	}
	return out, nil
}

// SignOnce runs a single signature over doc outside any session, bounded by the same
// concurrency limit as session steps.
func (e *Executor) SignOnce(ctx context.Context, req SignRequest) ([]byte, error) {
	if req.StampText == "" {
		text, err := e.stamp.Render(req.Signer, req.SignedAt)
		if err != nil {
			return nil, fmt.Errorf("render stamp: %w", err)
		}
		req.StampText = text
	}
	return e.sign(ctx, req)
}
