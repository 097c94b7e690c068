package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/config"
)

// exerciseBackend checks the contract every backend shares.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	key := "test_" + uuid.NewString()
	t.Cleanup(func() { _ = b.Delete(context.Background(), key) })

	_, err := b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, key, []byte(`[{"Project":"WH1"}]`)))
	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Project":"WH1"}]`, string(got))

	require.NoError(t, b.Put(ctx, key, []byte(`[]`)))
	got, err = b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, b.Delete(ctx, key))
	_, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, b.Delete(ctx, key))
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	exerciseBackend(t, m)
	assert.Equal(t, 2, m.Puts())
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", v))
	v[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tqp.db")
	b, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
	assert.FileExists(t, path)
}

func TestSQLiteBackend_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tqp.db")

	b, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, KeyConnections, []byte(`[{"Project":"WH1"}]`)))
	require.NoError(t, b.Close())

	b, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Get(ctx, KeyConnections)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Project":"WH1"}]`, string(got))
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	b, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	b, err := OpenRedis(context.Background(), RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(ctx, config.StoreConfig{Driver: "SQLite", Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "etcd"})
	assert.ErrorContains(t, err, "etcd")
}
