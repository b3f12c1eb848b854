package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brainbox-app/brainbox/token"
	"github.com/brainbox-app/brainbox/token/filerepo"
	"github.com/stretchr/testify/require"
)

const passphrase = "correct horse battery staple"

func TestFileRepo_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "brainbox", "session.bin")

	fr, err := filerepo.Open(path, passphrase)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "file is only created on first write")

	require.NoError(t, fr.Apply(ctx, token.Batch{Set: map[string]string{
		token.KeyAccessToken:    "access",
		token.KeyOnboardingSeen: "1",
	}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := filerepo.Open(path, passphrase)
	require.NoError(t, err)
	value, ok, err := reopened.Get(ctx, token.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access", value)

	require.NoError(t, reopened.Apply(ctx, token.Batch{Delete: []string{token.KeyAccessToken}}))
	_, ok, err = reopened.Get(ctx, token.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	value, ok, err = reopened.Get(ctx, token.KeyOnboardingSeen)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)
}

func TestFileRepo_ContentIsEncrypted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bin")

	fr, err := filerepo.Open(path, passphrase)
	require.NoError(t, err)
	require.NoError(t, fr.Apply(ctx, token.Batch{Set: map[string]string{token.KeyRefreshToken: "super-secret-refresh"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-refresh")
}

func TestFileRepo_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bin")

	fr, err := filerepo.Open(path, passphrase)
	require.NoError(t, err)
	require.NoError(t, fr.Apply(ctx, token.Batch{Set: map[string]string{token.KeyAccessToken: "access"}}))

	_, err = filerepo.Open(path, "wrong")
	require.ErrorIs(t, err, filerepo.ErrDecrypt)
}

func TestFileRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := filerepo.Open(path, passphrase)
	require.ErrorIs(t, err, filerepo.ErrCorrupt)
}

func TestFileRepo_PassphraseRequired(t *testing.T) {
	_, err := filerepo.Open(filepath.Join(t.TempDir(), "session.bin"), "")
	require.ErrorIs(t, err, filerepo.ErrPassphraseRequired)
}

func TestFileRepo_BacksTokenStore(t *testing.T) {
	ctx := context.Background()
	fr, err := filerepo.Open(filepath.Join(t.TempDir(), "session.bin"), passphrase)
	require.NoError(t, err)

	store := token.NewStore(fr)
	require.NoError(t, store.SetOnboardingSeen(ctx))
	require.NoError(t, store.ClearSession(ctx))
	require.True(t, store.HasSeenOnboarding(ctx))
}
