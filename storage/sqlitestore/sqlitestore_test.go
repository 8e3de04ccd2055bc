package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/jrsteele09/go-chat-auth/storage/sqlitestore"
	"github.com/jrsteele09/go-chat-auth/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storagetest.RunRepoTests(t, func(t *testing.T) storage.Repo {
		return openStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	first, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "client-1", storage.KeyRefreshToken, "r"))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	value, err := second.Get(ctx, "client-1", storage.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "r", value)
}

func TestStore_RequiresNamespace(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	require.Error(t, s.Set(context.Background(), "", storage.KeyEmail, "e@x.com"))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "sessions.db"))
	require.Error(t, err)
}
