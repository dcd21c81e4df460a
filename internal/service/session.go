package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"signflow/internal/auth"
	"signflow/internal/metrics"
	"signflow/internal/model"
	"signflow/internal/repository"
	"signflow/internal/signing"
	"signflow/internal/storage"
)

// MaxDocumentSize bounds uploaded documents.
const MaxDocumentSize = 50 << 20

var (
	pdfMagic    = []byte("%PDF")
	sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
)

// CreateSessionInput is a new multi-signer session request.
type CreateSessionInput struct {
	ID         string
	Checksum   string
	Filename   string
	Document   io.Reader
	WorkflowID string
	Initiator  model.Initiator
	Signers    []model.SignerTurn
}

// AdvanceResult is the outcome of a committed signing step.
type AdvanceResult struct {
	Session    *model.SigningSession
	SignedBy   string
	SignerName string
	NextSigner string
	Completed  bool
}

// Artifact is an open handle on a stored document version.
type Artifact struct {
	Body     io.ReadCloser
	Info     storage.ObjectInfo
	Filename string
}

// SessionService manages the lifecycle of sequential signing sessions.
type SessionService interface {
	// Create verifies the checksum, validates the signer list and document,
	// stores the original as version 0 and opens the session with cursor 0.
	Create(ctx context.Context, in CreateSessionInput) (*model.SigningSession, error)

	// Advance lets actorEmail sign if it is their turn. Returns
	// signing.ErrNotYourTurn, signing.ErrAlreadyCompleted, signing.ErrRetryable
	// or *signing.SigningError without changing the session.
	Advance(ctx context.Context, id, actorEmail string, meta RequestMeta) (*AdvanceResult, error)

	// Status returns the current session snapshot.
	Status(ctx context.Context, id string) (*model.SigningSession, error)

	// LatestArtifact opens the newest document version. The caller closes Body.
	LatestArtifact(ctx context.Context, id string) (*Artifact, error)

	// PresignLatest returns a time-limited URL for the newest document version.
	PresignLatest(ctx context.Context, id string) (string, error)

	// Events lists the audit trail of a session, oldest first.
	Events(ctx context.Context, id string) ([]model.SigningEvent, error)
}

type sessionService struct {
	repo    repository.SessionRepository
	store   storage.Storage
	exec    *signing.Executor
	audit   auditRecorder
	events  repository.AuditRepository
	metrics *metrics.Signing
	apiKey  string
	presign time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
}

// SessionServiceConfig holds the non-collaborator settings of a SessionService.
type SessionServiceConfig struct {
	APIKey        string
	PresignExpiry time.Duration
	Now           func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	store storage.Storage,
	exec *signing.Executor,
	events repository.AuditRepository,
	m *metrics.Signing,
	cfg SessionServiceConfig,
	log logrus.FieldLogger,
) SessionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	log = log.WithField("component", "session_service")
	return &sessionService{
		repo:    repo,
		store:   store,
		exec:    exec,
		audit:   auditRecorder{repo: events, log: log, now: cfg.Now},
		events:  events,
		metrics: m,
		apiKey:  cfg.APIKey,
		presign: cfg.PresignExpiry,
		now:     cfg.Now,
		log:     log,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateSigners(signers []model.SignerTurn) error {
	if len(signers) == 0 {
		return invalid("signer list is empty")
	}
	for i, st := range signers {
		if strings.TrimSpace(st.WorkID) == "" {
			return invalid("signer %d: signer_workid is required", i)
		}
		if strings.TrimSpace(st.Email) == "" {
			return invalid("signer %d: signer_email is required", i)
		}
		if strings.TrimSpace(st.Name) == "" {
			return invalid("signer %d: signer_name is required", i)
		}
		if len(st.Locations) == 0 {
			return invalid("signer %d: at least one location is required", i)
		}
		for j, loc := range st.Locations {
			if loc.Page < 1 {
				return invalid("signer %d location %d: page must be >= 1", i, j)
			}
		}
	}
	return nil
}

// readDocument reads a whole upload and checks the PDF magic bytes.
func readDocument(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, invalid("document is required")
	}
	doc, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(doc) > MaxDocumentSize {
		return nil, invalid("document exceeds %d bytes", MaxDocumentSize)
	}
	if !bytes.HasPrefix(doc, pdfMagic) {
		return nil, invalid("document is not a PDF")
	}
	return doc, nil
}

func (s *sessionService) Create(ctx context.Context, in CreateSessionInput) (*model.SigningSession, error) {
	if !sessionIDRe.MatchString(in.ID) {
		return nil, invalid("uuid must be 1-128 characters of letters, digits, '-' or '_'")
	}
	if !auth.Verify(s.apiKey, in.ID, in.Checksum) {
		return nil, ErrUnauthorized
	}
	if err := validateSigners(in.Signers); err != nil {
		return nil, err
	}
	doc, err := readDocument(in.Document)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := signing.ArtifactKey(in.ID, 0, now)
	info, err := s.store.Put(ctx, key, bytes.NewReader(doc), storage.PutObjectOptions{
		Size:        int64(len(doc)),
		ContentType: "application/pdf",
		Metadata: map[string]string{
			signing.MetaSessionID: in.ID,
			signing.MetaVersion:   "0",
			"original-filename":   in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	signers := make([]model.SignerTurn, len(in.Signers))
	for i, st := range in.Signers {
		st.Status = model.StatusPending
		st.SignedAt = nil
		st.Locations = append([]model.Location(nil), st.Locations...)
		signers[i] = st
	}
	sum := sha256.Sum256(doc)
	sess := &model.SigningSession{
		ID:          in.ID,
		WorkflowID:  in.WorkflowID,
		Initiator:   in.Initiator,
		Filename:    in.Filename,
		DocumentRef: key,
		Artifacts: []model.ArtifactRef{{
			Version:   0,
			Key:       key,
			Size:      info.Size,
			SHA256:    hex.EncodeToString(sum[:]),
			CreatedAt: now,
		}},
		Signers:   signers,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		// Rollback: the blob is not referenced by any session
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.WithError(delErr).WithField("key", key).Warn("rollback delete failed")
		}
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrSessionExists
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.metrics.SessionCreated()
	s.log.WithFields(logrus.Fields{
		"event":       "session_created",
		"session_id":  sess.ID,
		"signers":     len(sess.Signers),
		"workflow_id": sess.WorkflowID,
	}).Info("signing session created")
	return sess, nil
}

func (s *sessionService) get(ctx context.Context, id string) (*model.SigningSession, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func stepOutcome(err error) string {
	var se *signing.SigningError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, signing.ErrNotYourTurn):
		return metrics.OutcomeNotYourTurn
	case errors.Is(err, signing.ErrAlreadyCompleted):
		return metrics.OutcomeAlreadyCompleted
	case errors.Is(err, signing.ErrRetryable):
		return metrics.OutcomeConflict
	case errors.As(err, &se):
		return metrics.OutcomeSigningFailed
	default:
		return metrics.OutcomeError
	}
}

func (s *sessionService) Advance(ctx context.Context, id, actorEmail string, meta RequestMeta) (*AdvanceResult, error) {
	start := time.Now()
	sess, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.exec.ExecuteStep(ctx, sess, actorEmail)
	s.metrics.ObserveStep(stepOutcome(err), time.Since(start), err == nil && res.Completed)

	event := model.SigningEvent{
		SessionID:    sess.ID,
		RequestID:    meta.RequestID,
		OriginalFile: sess.Filename,
		SignerEmail:  actorEmail,
		Department:   sess.Initiator.Department,
		DocumentType: sess.WorkflowID,
	}
	if cur, ok := sess.Current(); ok && cur.Email == actorEmail {
		event.SignerName = cur.Name
	}

	if err != nil {
		var se *signing.SigningError
		if errors.As(err, &se) {
			event.Status = model.EventFailed
			event.Error = se.Err.Error()
			s.audit.record(ctx, event)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	event.Status = model.EventSuccess
	event.SignedFile = res.Artifact.Key
	s.audit.record(ctx, event)

	return &AdvanceResult{
		Session:    res.Session,
		SignedBy:   res.SignedBy.Email,
		SignerName: res.SignedBy.Name,
		NextSigner: res.Session.NextSignerEmail(),
		Completed:  res.Completed,
	}, nil
}

func (s *sessionService) Status(ctx context.Context, id string) (*model.SigningSession, error) {
	return s.get(ctx, id)
}

// openLatest maps a missing document history onto ErrArtifactNotFound.
func (s *sessionService) openLatest(ctx context.Context, sess *model.SigningSession) (*signing.Latest, error) {
	l, err := s.exec.OpenLatest(ctx, sess)
	if errors.Is(err, signing.ErrDocumentMissing) {
		return nil, fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
	}
	return l, err
}

func (s *sessionService) LatestArtifact(ctx context.Context, id string) (*Artifact, error) {
	sess, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := s.openLatest(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &Artifact{Body: l.Body, Info: l.Info, Filename: downloadName(sess)}, nil
}

func (s *sessionService) PresignLatest(ctx context.Context, id string) (string, error) {
	sess, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	l, err := s.openLatest(ctx, sess)
	if err != nil {
		return "", err
	}
	l.Body.Close()
	return s.store.PresignGet(ctx, l.Ref.Key, s.presign)
}

func (s *sessionService) Events(ctx context.Context, id string) ([]model.SigningEvent, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListBySession(ctx, id)
}

// downloadName is the attachment filename offered to clients.
func downloadName(sess *model.SigningSession) string {
	name := sess.Filename
	if name == "" {
		name = sess.ID + ".pdf"
	}
	if sess.Cursor > 0 {
		name = "signed_" + name
	}
	return name
}
