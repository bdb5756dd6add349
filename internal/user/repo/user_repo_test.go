package repo

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/pkg/database"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreate_ThenGet(t *testing.T) {
	r := NewUserRepo(setupDB(t), func() string { return "id-1" })
	ctx := context.Background()

	u, err := r.Create(ctx, "alice", "$2a$hash", "al****")
	require.NoError(t, err)
	assert.Equal(t, "id-1", u.ID)

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	byID, err := r.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)
	ctx := context.Background()

	_, err := r.Create(ctx, "alice", "h1", "al****")
	require.NoError(t, err)

	_, err = r.Create(ctx, "alice", "h2", "al****")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreate_IDCollisionIsNotDuplicateUsername(t *testing.T) {
	r := NewUserRepo(setupDB(t), func() string { return "same-id" })
	ctx := context.Background()

	_, err := r.Create(ctx, "alice", "h1", "al****")
	require.NoError(t, err)

	_, err = r.Create(ctx, "bob", "h2", "b****")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)

	_, err = r.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_UsernameIsCaseSensitive(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)
	ctx := context.Background()

	_, err := r.Create(ctx, "alice", "h", "al****")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Alice", "h", "Al****")
	require.NoError(t, err)

	_, err = r.GetByUsername(ctx, "ALICE")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_ConcurrentSameUsernameHasOneWinner(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Create(ctx, "bob", "h", "b****")
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateUsername):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestGet_Missing(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)

	_, err := r.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_PersistsNickname(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)
	ctx := context.Background()

	u, err := r.Create(ctx, "alice", "h", "al****")
	require.NoError(t, err)

	u.Nickname = "Ally"
	require.NoError(t, r.Update(ctx, u))

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Ally", got.Nickname)
	assert.Equal(t, u.ID, got.ID)
}

func TestUpdate_UnknownID(t *testing.T) {
	r := NewUserRepo(setupDB(t), nil)
	u, err := r.Create(context.Background(), "alice", "h", "al****")
	require.NoError(t, err)

	u.ID = "other"
	require.ErrorIs(t, r.Update(context.Background(), u), ErrNotFound)
}
