package auth_test

import (
	"strings"
	"testing"

	"github.com/brainbox-app/brainbox/auth"
	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-._"

	first, err := auth.GenerateNonce(auth.DefaultNonceLength)
	require.NoError(t, err)
	require.Len(t, first, 32)
	for _, c := range first {
		require.True(t, strings.ContainsRune(charset, c), "unexpected character %q", c)
	}

	second, err := auth.GenerateNonce(0)
	require.NoError(t, err)
	require.Len(t, second, auth.DefaultNonceLength)
	require.NotEqual(t, first, second)
}

func TestHashNonce(t *testing.T) {
	// sha256("abc")
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", auth.HashNonce("abc"))
}
