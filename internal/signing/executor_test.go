package signing_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signflow/internal/config"
	"signflow/internal/database"
	"signflow/internal/database/migration"
	"signflow/internal/logging"
	"signflow/internal/model"
	"signflow/internal/repository"
	"signflow/internal/repository/sqlite"
	"signflow/internal/signing"
	"signflow/internal/signing/signingtest"
	"signflow/internal/storage"
	"signflow/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var original = []byte("%PDF-1.7\noriginal document\n%%EOF\n")

type fixture struct {
	repo   repository.SessionRepository
	store  *storagetest.Memory
	signer *signingtest.Signer
	exec   *signing.Executor
}

func newFixture(t *testing.T, locator signing.PlacementLocator) *fixture {
	t.Helper()
	db, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessions.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.EnsureMigrated(context.Background(), db, migration.SQLite, logging.Discard(), "test"))

	stamp, err := signing.NewStamp("{{{name}}} {{{timestamp}}}", time.UTC)
	require.NoError(t, err)

	f := &fixture{
		repo:   sqlite.NewSessionSQLite(db),
		store:  storagetest.NewMemory(),
		signer: &signingtest.Signer{},
	}
	f.exec = signing.NewExecutor(f.repo, f.store, f.signer, locator, stamp, signing.Options{MaxConcurrent: 2}, logging.Discard())
	return f
}

func (f *fixture) seed(t *testing.T, id string, signers ...model.SignerTurn) *model.SigningSession {
	t.Helper()
	ctx := context.Background()
	key := signing.ArtifactKey(id, 0, time.Now())
	_, err := f.store.Put(ctx, key, bytes.NewReader(original), storage.PutObjectOptions{Size: int64(len(original))})
	require.NoError(t, err)

	now := time.Now().UTC()
	s := &model.SigningSession{
		ID:          id,
		Filename:    "contract.pdf",
		DocumentRef: key,
		Artifacts:   []model.ArtifactRef{{Version: 0, Key: key, Size: int64(len(original)), CreatedAt: now}},
		Signers:     signers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.repo.Create(ctx, s))
	return s
}

func signer(name, email string, locs ...model.Location) model.SignerTurn {
	if len(locs) == 0 {
		locs = []model.Location{{Page: 1, X: 100, Y: 200}}
	}
	return model.SignerTurn{Name: name, Email: email, Locations: locs, Status: model.StatusPending}
}

func read(t *testing.T, store storage.Storage, key string) []byte {
	t.Helper()
	b, _, err := storage.ReadAll(context.Background(), store, key)
	require.NoError(t, err)
	return b
}

func TestExecuteStep_HappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"), signer("Bob", "bob@example.com"))

	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)

	res, err := f.exec.ExecuteStep(ctx, s, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 1, res.Session.Cursor)
	assert.Equal(t, "bob@example.com", res.Session.NextSignerEmail())
	assert.Equal(t, model.StatusSigned, res.SignedBy.Status)
	require.NoError(t, res.Session.CheckInvariants())

	// the snapshot passed in is untouched
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, model.StatusPending, s.Signers[0].Status)

	s, err = f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	res, err = f.exec.ExecuteStep(ctx, s, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "", res.Session.NextSignerEmail())

	final, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, final.CheckInvariants())
	assert.True(t, final.Completed)
	assert.Equal(t, int64(3), final.Version)
	require.Len(t, final.Artifacts, 3)

	// every step produced a distinct immutable blob, and each one extends its predecessor
	v0 := read(t, f.store, final.Artifacts[0].Key)
	v1 := read(t, f.store, final.Artifacts[1].Key)
	v2 := read(t, f.store, final.Artifacts[2].Key)
	assert.Equal(t, original, v0)
	assert.NotEqual(t, v0, v1)
	assert.NotEqual(t, v1, v2)
	assert.True(t, bytes.HasPrefix(v1, v0))
	assert.True(t, bytes.HasPrefix(v2, v1))
	assert.Contains(t, string(v2), "%signed alice@example.com")
	assert.Contains(t, string(v2), "%signed bob@example.com")
	assert.Equal(t, final.DocumentRef, final.Artifacts[2].Key)
	assert.Equal(t, "bob@example.com", final.Artifacts[2].SignedBy)

	reqs := f.signer.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, v0, reqs[0].Document)
	assert.Equal(t, v1, reqs[1].Document)
}

func TestExecuteStep_RejectsWithoutSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"), signer("Bob", "bob@example.com"))

	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)

	_, err = f.exec.ExecuteStep(ctx, s, "bob@example.com")
	assert.ErrorIs(t, err, signing.ErrNotYourTurn)

	_, err = f.exec.ExecuteStep(ctx, s, "eve@example.com")
	assert.ErrorIs(t, err, signing.ErrNotYourTurn)

	after, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.Version, after.Version)
	assert.Empty(t, f.signer.Requests())
	assert.Len(t, f.store.Keys(), 1)
}

func TestExecuteStep_AlreadyCompleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"))

	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
	require.NoError(t, err)

	done, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = f.exec.ExecuteStep(ctx, done, "alice@example.com")
	assert.ErrorIs(t, err, signing.ErrAlreadyCompleted)

	again, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, done.Version, again.Version)
	assert.Len(t, f.signer.Requests(), 1)
}

func TestExecuteStep_SignerFailureLeavesSessionUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"))
	boom := errors.New("hsm offline")
	f.signer.Before = func(context.Context, signing.SignRequest) error { return boom }

	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)

	_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
	var se *signing.SigningError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "alice@example.com", se.Signer)

	after, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.Version, after.Version)
	assert.Equal(t, 0, after.Cursor)
	assert.Len(t, f.store.Keys(), 1)
}

func TestExecuteStep_StaleSnapshotIsRetryable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"), signer("Bob", "bob@example.com"))

	stale, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = f.exec.ExecuteStep(ctx, stale, "alice@example.com")
	require.NoError(t, err)

	// the same snapshot replayed cannot advance the cursor twice
	_, err = f.exec.ExecuteStep(ctx, stale, "alice@example.com")
	assert.ErrorIs(t, err, signing.ErrRetryable)
	assert.ErrorIs(t, err, repository.ErrConflict)

	after, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.Cursor)
	assert.Len(t, after.Artifacts, 2)
	// loser's blob was cleaned up
	assert.Len(t, f.store.Keys(), 2)
}

func TestExecuteStep_ConcurrentSameTurn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"), signer("Bob", "bob@example.com"))

	// Both requests read the same snapshot, then meet inside the signer before either commits.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.signer.Before = func(context.Context, signing.SignRequest) error {
		arrived.Done()
		arrived.Wait()
		return nil
	}

	a, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, snap := range []*model.SigningSession{a, b} {
		wg.Add(1)
		go func(i int, snap *model.SigningSession) {
			defer wg.Done()
			_, errs[i] = f.exec.ExecuteStep(ctx, snap, "alice@example.com")
		}(i, snap)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, signing.ErrRetryable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	final, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, final.CheckInvariants())
	assert.Equal(t, 1, final.Cursor)
	assert.Equal(t, int64(2), final.Version)
}

func TestExecuteStep_Placement(t *testing.T) {
	locs := []model.Location{{Page: 2, X: 10, Y: 20}, {Page: 3, X: 30, Y: 40}}

	t.Run("stored locations are 1-based pages", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		f.seed(t, "s1", signer("Alice", "alice@example.com", locs...))
		s, err := f.repo.Get(ctx, "s1")
		require.NoError(t, err)

		_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
		require.NoError(t, err)

		req := f.signer.Requests()[0]
		require.Len(t, req.Fields, 2)
		assert.Equal(t, signing.Field{Name: "alice_example_com_sig_0", Page: 1, Box: signing.Rect{X1: 10, Y1: 20, X2: 190, Y2: 70}}, req.Fields[0])
		assert.Equal(t, signing.Field{Name: "alice_example_com_sig_1", Page: 2, Box: signing.Rect{X1: 30, Y1: 40, X2: 210, Y2: 90}}, req.Fields[1])
		assert.Equal(t, "alice_example_com_sig_1", req.SignatureField)
		assert.Equal(t, "Alice", req.Signer.Name)
	})

	t.Run("located marker wins", func(t *testing.T) {
		f := newFixture(t, signingtest.Locator{Hint: signing.Hint{Page: 0, X: 72, Y: 90}, Found: true})
		ctx := context.Background()
		f.seed(t, "s1", signer("Alice", "alice@example.com", locs...))
		s, err := f.repo.Get(ctx, "s1")
		require.NoError(t, err)

		_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
		require.NoError(t, err)

		for _, field := range f.signer.Requests()[0].Fields {
			assert.Equal(t, 0, field.Page)
			assert.Equal(t, signing.Rect{X1: 72, Y1: 90, X2: 252, Y2: 140}, field.Box)
		}
	})

	t.Run("locator failure falls back", func(t *testing.T) {
		f := newFixture(t, signingtest.Locator{Err: errors.New("locator down"), Found: true})
		ctx := context.Background()
		f.seed(t, "s1", signer("Alice", "alice@example.com", locs...))
		s, err := f.repo.Get(ctx, "s1")
		require.NoError(t, err)

		_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, 1, f.signer.Requests()[0].Fields[0].Page)
	})
}

func TestExecuteStep_MissingDocument(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.seed(t, "s1", signer("Alice", "alice@example.com"))
	require.NoError(t, f.store.Delete(ctx, s.DocumentRef))

	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = f.exec.ExecuteStep(ctx, s, "alice@example.com")
	assert.ErrorIs(t, err, signing.ErrDocumentMissing)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Empty(t, f.signer.Requests())

	after, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.Version, after.Version)
}

func TestOpenLatest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "s1", signer("Alice", "alice@example.com"), signer("Bob", "bob@example.com"))
	s, err := f.repo.Get(ctx, "s1")
	require.NoError(t, err)
	res, err := f.exec.ExecuteStep(ctx, s, "alice@example.com")
	require.NoError(t, err)
	committed := res.Session

	open := func(t *testing.T) (*signing.Latest, []byte) {
		t.Helper()
		l, err := f.exec.OpenLatest(ctx, committed)
		require.NoError(t, err)
		defer l.Body.Close()
		b, err := io.ReadAll(l.Body)
		require.NoError(t, err)
		return l, b
	}

	t.Run("document ref", func(t *testing.T) {
		l, b := open(t)
		assert.Equal(t, committed.DocumentRef, l.Ref.Key)
		assert.Equal(t, 1, l.Ref.Version)
		assert.Equal(t, read(t, f.store, committed.DocumentRef), b)
	})

	t.Run("only history keys are read", func(t *testing.T) {
		stray := "sessions/s1/v0001_99991231_235959_ffffffff.pdf"
		_, err := f.store.Put(ctx, stray, bytes.NewReader([]byte("%PDF stray")), storage.PutObjectOptions{})
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, committed.DocumentRef))

		l, b := open(t)
		assert.Equal(t, 0, l.Ref.Version)
		assert.Equal(t, original, b)
	})

	t.Run("empty history", func(t *testing.T) {
		require.NoError(t, f.store.Delete(ctx, committed.Artifacts[0].Key))
		_, err := f.exec.OpenLatest(ctx, committed)
		assert.ErrorIs(t, err, signing.ErrDocumentMissing)
	})
}
