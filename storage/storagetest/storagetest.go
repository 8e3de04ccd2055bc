// Package storagetest holds behaviour checks shared by every storage.Repo
// implementation.
package storagetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/stretchr/testify/require"
)

// RunRepoTests exercises newRepo against the storage.Repo contract.
func RunRepoTests(t *testing.T, newRepo func(t *testing.T) storage.Repo) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "client-1", storage.KeyUserToken)
		require.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("set then get", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Set(ctx, "client-1", storage.KeyUserToken, "t"))
		require.NoError(t, repo.Set(ctx, "client-1", storage.KeyUserToken, "t2"))

		value, err := repo.Get(ctx, "client-1", storage.KeyUserToken)
		require.NoError(t, err)
		require.Equal(t, "t2", value)
	})

	t.Run("empty values are stored", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Set(ctx, "client-1", storage.KeyExpiresIn, ""))

		value, err := repo.Get(ctx, "client-1", storage.KeyExpiresIn)
		require.NoError(t, err)
		require.Equal(t, "", value)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Set(ctx, "client-1", storage.KeyEmail, "a@x.com"))
		require.NoError(t, repo.Set(ctx, "client-2", storage.KeyEmail, "b@x.com"))

		value, err := repo.Get(ctx, "client-2", storage.KeyEmail)
		require.NoError(t, err)
		require.Equal(t, "b@x.com", value)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		for _, key := range storage.SessionKeys {
			require.NoError(t, repo.Set(ctx, "client-1", key, key+"-value"))
		}
		require.NoError(t, repo.Delete(ctx, "client-1", storage.KeyUserToken, storage.KeyEmail))

		_, err := repo.Get(ctx, "client-1", storage.KeyUserToken)
		require.True(t, errors.Is(err, storage.ErrNotFound))
		value, err := repo.Get(ctx, "client-1", storage.KeyRefreshToken)
		require.NoError(t, err)
		require.Equal(t, "refreshToken-value", value)

		require.NoError(t, repo.Delete(ctx, "client-1", storage.SessionKeys...))
		_, err = repo.Get(ctx, "client-1", storage.KeyRefreshToken)
		require.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("empty namespace or key is rejected", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Set(ctx, "", storage.KeyEmail, "e@x.com")
		require.True(t, errors.Is(err, storage.ErrInvalidKey))
		err = repo.Set(ctx, "client-1", "", "e@x.com")
		require.True(t, errors.Is(err, storage.ErrInvalidKey))

		_, err = repo.Get(ctx, "", storage.KeyEmail)
		require.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("delete unknown namespace", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Delete(ctx, "nobody", storage.SessionKeys...))
	})
}
