package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"signflow/internal/model"
	"signflow/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() *model.SigningSession {
	now := time.Now().UTC()
	return &model.SigningSession{
		ID:          "e317d5f8a6a54e2fb92699491cc75b31",
		DocumentRef: "sessions/e317/0000.pdf",
		Artifacts:   []model.ArtifactRef{{Version: 0, Key: "sessions/e317/0000.pdf"}},
		Signers: []model.SignerTurn{
			{WorkID: "EMP001", Name: "Alice", Email: "alice@example.com", Status: model.StatusPending},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSessionPostgres(db)
	ctx := context.Background()

	t.Run("inserted", func(t *testing.T) {
		s := newSession()
		mock.ExpectExec("INSERT INTO signing_sessions").
			WithArgs(s.ID, sqlmock.AnyArg(), false, s.CreatedAt, s.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(ctx, s)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), s.Version)
	})

	t.Run("id already used", func(t *testing.T) {
		s := newSession()
		mock.ExpectExec("INSERT INTO signing_sessions").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Create(ctx, s)

		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO signing_sessions").
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, newSession())

		assert.EqualError(t, err, "connection reset")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionPostgres_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		s := newSession()
		state, _ := json.Marshal(s)
		mock.ExpectQuery("SELECT state, version FROM signing_sessions WHERE id = ?").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"state", "version"}).AddRow(state, 4))

		got, err := repo.Get(ctx, s.ID)

		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, int64(4), got.Version)
		assert.Equal(t, "alice@example.com", got.Signers[0].Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT state, version FROM signing_sessions WHERE id = ?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"state", "version"}))

		got, err := repo.Get(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("corrupt state", func(t *testing.T) {
		mock.ExpectQuery("SELECT state, version FROM signing_sessions WHERE id = ?").
			WithArgs("bad").
			WillReturnRows(sqlmock.NewRows([]string{"state", "version"}).AddRow([]byte("{"), 1))

		got, err := repo.Get(ctx, "bad")

		assert.ErrorContains(t, err, "decode session bad")
		assert.Nil(t, got)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionPostgres_CompareAndSwap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionPostgres(db)
	ctx := context.Background()

	t.Run("swapped", func(t *testing.T) {
		s := newSession()
		mock.ExpectExec("UPDATE signing_sessions SET state").
			WithArgs(sqlmock.AnyArg(), false, sqlmock.AnyArg(), s.ID, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CompareAndSwap(ctx, s.ID, 3, s)

		assert.NoError(t, err)
		assert.Equal(t, int64(4), s.Version)
	})

	t.Run("version moved on", func(t *testing.T) {
		s := newSession()
		mock.ExpectExec("UPDATE signing_sessions SET state").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.CompareAndSwap(ctx, s.ID, 3, s)

		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := newSession()
		mock.ExpectExec("UPDATE signing_sessions SET state").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.CompareAndSwap(ctx, s.ID, 1, s)

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
