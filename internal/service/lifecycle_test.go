package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signflow/internal/auth"
	"signflow/internal/config"
	"signflow/internal/database"
	"signflow/internal/database/migration"
	"signflow/internal/logging"
	"signflow/internal/metrics"
	"signflow/internal/model"
	"signflow/internal/repository"
	"signflow/internal/repository/sqlite"
	"signflow/internal/service"
	"signflow/internal/signing"
	"signflow/internal/signing/signingtest"
	"signflow/internal/storage"
	"signflow/internal/storage/storagetest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "test-key"

var pdf = []byte("%PDF-1.7\n1 0 obj <<>> endobj\n%%EOF\n")

type env struct {
	sessions repository.SessionRepository
	audit    repository.AuditRepository
	store    *storagetest.Memory
	signer   *signingtest.Signer
	svc      service.SessionService
	files    service.FileSigningService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "signflow.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.EnsureMigrated(context.Background(), db, migration.SQLite, logging.Discard(), "test"))

	stamp, err := signing.NewStamp("{{{name}}}\n{{{email}}}\n{{{timestamp}}}", time.UTC)
	require.NoError(t, err)
	m, err := metrics.NewSigning(prometheus.NewRegistry())
	require.NoError(t, err)

	e := &env{
		sessions: sqlite.NewSessionSQLite(db),
		audit:    sqlite.NewAuditSQLite(db),
		store:    storagetest.NewMemory(),
		signer:   &signingtest.Signer{},
	}
	exec := signing.NewExecutor(e.sessions, e.store, e.signer, nil, stamp, signing.Options{MaxConcurrent: 4}, logging.Discard())
	e.svc = service.NewSessionService(e.sessions, e.store, exec, e.audit, m, service.SessionServiceConfig{APIKey: apiKey}, logging.Discard())
	e.files = service.NewFileSigningService(e.store, exec, e.audit, m, "Document Signing Service", nil, logging.Discard())
	return e
}

func (e *env) create(t *testing.T, id string, emails ...string) *model.SigningSession {
	t.Helper()
	signers := make([]model.SignerTurn, len(emails))
	for i, em := range emails {
		signers[i] = model.SignerTurn{
			WorkID:    "W" + em[:1],
			Name:      em[:1],
			Email:     em,
			Locations: []model.Location{{Page: 1, X: 50, Y: 60}},
		}
	}
	s, err := e.svc.Create(context.Background(), service.CreateSessionInput{
		ID:         id,
		Checksum:   auth.Checksum(apiKey, id),
		Filename:   "contract.pdf",
		Document:   bytes.NewReader(pdf),
		WorkflowID: "WF-9",
		Initiator:  model.Initiator{WorkID: "I1", Department: "Legal"},
		Signers:    signers,
	})
	require.NoError(t, err)
	return s
}

func latest(t *testing.T, svc service.SessionService, id string) []byte {
	t.Helper()
	a, err := svc.LatestArtifact(context.Background(), id)
	require.NoError(t, err)
	defer a.Body.Close()
	b, err := io.ReadAll(a.Body)
	require.NoError(t, err)
	return b
}

func TestLifecycle_CreateThenStatus(t *testing.T) {
	e := newEnv(t)
	e.create(t, "doc-1", "alice@example.com", "bob@example.com")

	s, err := e.svc.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cursor)
	assert.False(t, s.Completed)
	for _, st := range s.Signers {
		assert.Equal(t, model.StatusPending, st.Status)
		assert.Nil(t, st.SignedAt)
	}
	assert.Equal(t, "Legal", s.Initiator.Department)
	assert.Equal(t, pdf, latest(t, e.svc, "doc-1"))
}

func TestLifecycle_TwoSigners(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, "doc-1", "alice@example.com", "bob@example.com")

	r1, err := e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", r1.SignedBy)
	assert.Equal(t, "a", r1.SignerName)
	assert.Equal(t, "bob@example.com", r1.NextSigner)
	assert.False(t, r1.Completed)
	afterAlice := latest(t, e.svc, "doc-1")
	assert.NotEqual(t, pdf, afterAlice)

	r2, err := e.svc.Advance(ctx, "doc-1", "bob@example.com", service.RequestMeta{RequestID: "req-2"})
	require.NoError(t, err)
	assert.Equal(t, "", r2.NextSigner)
	assert.True(t, r2.Completed)
	final := latest(t, e.svc, "doc-1")
	assert.NotEqual(t, afterAlice, final)

	_, err = e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{RequestID: "req-3"})
	assert.ErrorIs(t, err, signing.ErrAlreadyCompleted)
	assert.Equal(t, final, latest(t, e.svc, "doc-1"))

	s, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())
	assert.True(t, s.Completed)

	events, err := e.svc.Events(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, model.EventSuccess, events[0].Status)
	assert.Equal(t, "a", events[0].SignerName)
	assert.Equal(t, "Legal", events[0].Department)
	assert.Equal(t, s.Artifacts[1].Key, events[0].SignedFile)
}

func TestLifecycle_OutOfTurn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, "doc-1", "alice@example.com", "bob@example.com")

	_, err := e.svc.Advance(ctx, "doc-1", "bob@example.com", service.RequestMeta{})
	assert.ErrorIs(t, err, signing.ErrNotYourTurn)

	s, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, model.StatusPending, s.Signers[0].Status)
	assert.Equal(t, int64(1), s.Version)

	_, err = e.svc.Advance(ctx, "nope", "bob@example.com", service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLifecycle_DuplicateID(t *testing.T) {
	e := newEnv(t)
	e.create(t, "doc-1", "alice@example.com")
	before := e.store.Keys()

	_, err := e.svc.Create(context.Background(), service.CreateSessionInput{
		ID:       "doc-1",
		Checksum: auth.Checksum(apiKey, "doc-1"),
		Document: bytes.NewReader(pdf),
		Signers: []model.SignerTurn{
			{WorkID: "W9", Name: "Eve", Email: "eve@example.com", Locations: []model.Location{{Page: 1}}},
		},
	})
	assert.ErrorIs(t, err, service.ErrSessionExists)
	assert.Equal(t, before, e.store.Keys())

	s, err := e.svc.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.Signers[0].Email)
}

func TestLifecycle_SigningFailureIsAudited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, "doc-1", "alice@example.com")
	e.signer.Before = func(context.Context, signing.SignRequest) error { return errors.New("token expired") }

	_, err := e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{RequestID: "req-9"})
	var se *signing.SigningError
	require.ErrorAs(t, err, &se)

	s, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cursor)

	events, err := e.svc.Events(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventFailed, events[0].Status)
	assert.Equal(t, "req-9", events[0].RequestID)
	assert.Equal(t, "token expired", events[0].Error)
}

func TestLifecycle_ConcurrentAdvance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, "doc-1", "alice@example.com", "bob@example.com")

	var arrived sync.WaitGroup
	arrived.Add(2)
	e.signer.Before = func(context.Context, signing.SignRequest) error {
		arrived.Done()
		arrived.Wait()
		return nil
	}

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{})
			errs <- err
		}()
	}

	var ok, retry int
	for range 2 {
		err := <-errs
		if err == nil {
			ok++
		} else if errors.Is(err, signing.ErrRetryable) {
			retry++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, retry)

	s, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Cursor)
	require.NoError(t, s.CheckInvariants())
}

func TestLifecycle_LatestArtifactFallback(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, "doc-1", "alice@example.com", "bob@example.com")
	_, err := e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{})
	require.NoError(t, err)

	s, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	v1 := latest(t, e.svc, "doc-1")

	t.Run("uncommitted blobs are never served", func(t *testing.T) {
		// same version as the committed artifact, sorting after it
		sameVersion := "sessions/doc-1/v0001_99991231_235959_ffffffff.pdf"
		_, err := e.store.Put(ctx, sameVersion, bytes.NewReader([]byte("%PDF never committed")), storageOpts())
		require.NoError(t, err)
		_, err = e.store.Put(ctx, signing.ArtifactKey("doc-1", 2, time.Now()), bytes.NewReader([]byte("%PDF orphan")), storageOpts())
		require.NoError(t, err)
		require.NoError(t, e.store.Delete(ctx, s.DocumentRef))

		// v1 is gone; the newest committed version left is v0
		assert.Equal(t, pdf, latest(t, e.svc, "doc-1"))

		u, err := e.svc.PresignLatest(ctx, "doc-1")
		require.NoError(t, err)
		assert.Contains(t, u, s.Artifacts[0].Key)

		after, err := e.svc.Status(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, s.DocumentRef, after.DocumentRef, "fallback does not rewrite the session")
	})

	t.Run("history entry with a foreign digest is skipped", func(t *testing.T) {
		_, err := e.store.Put(ctx, s.Artifacts[0].Key, bytes.NewReader([]byte("%PDF replaced")), storageOpts())
		require.NoError(t, err)

		_, err = e.svc.LatestArtifact(ctx, "doc-1")
		assert.ErrorIs(t, err, service.ErrArtifactNotFound)

		_, err = e.store.Put(ctx, s.Artifacts[0].Key, bytes.NewReader(pdf), storageOpts())
		require.NoError(t, err)
	})

	t.Run("restored ref is served again", func(t *testing.T) {
		_, err := e.store.Put(ctx, s.DocumentRef, bytes.NewReader(v1), storageOpts())
		require.NoError(t, err)
		assert.Equal(t, v1, latest(t, e.svc, "doc-1"))
	})

	t.Run("fails closed when nothing is left", func(t *testing.T) {
		for _, k := range e.store.Keys() {
			require.NoError(t, e.store.Delete(ctx, k))
		}
		_, err := e.svc.LatestArtifact(ctx, "doc-1")
		assert.ErrorIs(t, err, service.ErrArtifactNotFound)
		_, err = e.svc.PresignLatest(ctx, "doc-1")
		assert.ErrorIs(t, err, service.ErrArtifactNotFound)
	})
}

func TestLifecycle_AdvanceWithMissingDocument(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := e.create(t, "doc-1", "alice@example.com")
	require.NoError(t, e.store.Delete(ctx, s.DocumentRef))

	_, err := e.svc.Advance(ctx, "doc-1", "alice@example.com", service.RequestMeta{})
	assert.ErrorIs(t, err, signing.ErrDocumentMissing)
	assert.Empty(t, e.signer.Requests())

	after, err := e.svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, after.Cursor)
}

func TestLifecycle_PresignLatest(t *testing.T) {
	e := newEnv(t)
	s := e.create(t, "doc-1", "alice@example.com")

	u, err := e.svc.PresignLatest(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Contains(t, u, s.DocumentRef)
	assert.Contains(t, u, "expires=900")
}

func storageOpts() storage.PutObjectOptions {
	return storage.PutObjectOptions{ContentType: "application/pdf"}
}
