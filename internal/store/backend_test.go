package store

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"discord-party-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupPostgres starts a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func setupRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// testBackendContract exercises the behavior every Backend must share.
func testBackendContract(t *testing.T, b Backend) {
	ctx := context.Background()

	_, err := b.Load(ctx, "party_1")
	assert.ErrorIs(t, err, ErrNotExist)

	ok, err := b.Has(ctx, "party_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "party_1", []byte(`{"id":"1"}`)))
	require.NoError(t, b.Save(ctx, "party_2", []byte(`{"id":"2"}`)))
	require.NoError(t, b.Save(ctx, "user_7", []byte(`{"id":"7"}`)))
	require.NoError(t, b.Save(ctx, "party_1", []byte(`{"id":"1","title":"raid"}`)))

	data, err := b.Load(ctx, "party_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","title":"raid"}`, string(data))

	ok, err = b.Has(ctx, "user_7")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := b.Keys(ctx, "party_")
	require.NoError(t, err)
	assert.Equal(t, []string{"party_1", "party_2"}, keys)

	keys, err = b.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	removed, err := b.Remove(ctx, "party_2")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = b.Remove(ctx, "party_2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	testBackendContract(t, b)
}

func TestFileBackend_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), "web_permissions", []byte(`{"userRoles":{}}`)))

	raw, err := os.ReadFile(filepath.Join(dir, "web_permissions.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"userRoles\"")
}

func TestFileBackend_Backup(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "party_1", []byte(`{}`)))
	require.NoError(t, b.Save(ctx, "user_1", []byte(`{}`)))

	target, err := b.Backup(ctx)
	require.NoError(t, err)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// The backup directory must not show up as records.
	keys, err := b.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"party_1", "user_1"}, keys)
}

func TestRedisBackend(t *testing.T) {
	testBackendContract(t, NewRedisBackend(setupRedis(t), "test:"))
}

func TestRedisBackend_PrefixIsolation(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisBackend(client, "a:")
	b := NewRedisBackend(client, "b:")
	require.NoError(t, a.Save(ctx, "party_1", []byte(`{}`)))

	ok, err := b.Has(ctx, "party_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PingRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := New(NewRedisBackend(client, "test:"))
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	mr.Close()
	err := s.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis backend")
}

func TestStore_PingFileBackend(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, New(backend).Ping(context.Background()))
}

func TestPostgresBackend(t *testing.T) {
	testBackendContract(t, NewPostgresBackend(setupPostgres(t)))
}

func TestStoreOverPostgres(t *testing.T) {
	s := New(NewPostgresBackend(setupPostgres(t)))
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Set(ctx, "party_42", record{Name: "raid", Count: 5}))
	s.ClearCache()

	var r record
	found, err := s.Get(ctx, "party_42", &r)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, record{Name: "raid", Count: 5}, r)
}
