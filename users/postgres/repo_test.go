package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brainbox-app/brainbox/users"
	"github.com/brainbox-app/brainbox/users/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs against a live database when BRAINBOX_TEST_DATABASE_URL is set.
func setupRepo(t *testing.T) *postgres.Repo {
	t.Helper()
	url := os.Getenv("BRAINBOX_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BRAINBOX_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := postgres.New(pool)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func newUser() *users.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	return &users.User{ID: id, Email: id + "@example.com", Name: "Ana", PasswordHash: "hash", CreatedAt: &now, UpdatedAt: &now}
}

func TestRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	user := newUser()

	require.NoError(t, repo.Create(ctx, user))
	t.Cleanup(func() { _ = repo.Delete(ctx, user.ID) })

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)
	require.Equal(t, "hash", got.PasswordHash)
	require.True(t, user.CreatedAt.Equal(*got.CreatedAt))

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	got.Name = "Ana B"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana B", got.Name)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, users.ErrUserNotFound)
	require.ErrorIs(t, repo.Delete(ctx, user.ID), users.ErrUserNotFound)
}

func TestRepo_UniqueViolations(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	user := newUser()
	require.NoError(t, repo.Create(ctx, user))
	t.Cleanup(func() { _ = repo.Delete(ctx, user.ID) })

	sameID := newUser()
	sameID.ID = user.ID
	require.ErrorIs(t, repo.Create(ctx, sameID), users.ErrUserExists)

	sameEmail := newUser()
	sameEmail.Email = user.Email
	require.ErrorIs(t, repo.Create(ctx, sameEmail), users.ErrEmailTaken)
}

func TestRepo_UpdateMissing(t *testing.T) {
	repo := setupRepo(t)
	require.ErrorIs(t, repo.Update(context.Background(), newUser()), users.ErrUserNotFound)
}
