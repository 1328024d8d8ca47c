package kv

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tubetrack/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	require.NoError(t, shared.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore(t *testing.T) {
	t.Run("Get missing key", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		v, ok, err := s.Get(KeyLocalPlaylists)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		require.NoError(t, s.Set(KeyLocalPlaylists, "[]"))
		require.NoError(t, s.Set(KeyLocalPlaylists, `[{"id":"l1"}]`))

		v, ok, err := s.Get(KeyLocalPlaylists)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":"l1"}]`, v)
	})

	t.Run("Remove is idempotent", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		require.NoError(t, s.Set(MigrationKey("u42"), `"completed"`))
		require.NoError(t, s.Remove(MigrationKey("u42")))
		require.NoError(t, s.Remove(MigrationKey("u42")))

		_, ok, err := s.Get(MigrationKey("u42"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MigrationKeys", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		tick := 0
		s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

		require.NoError(t, s.Set(MigrationKey("a"), `"completed"`))
		require.NoError(t, s.Set(KeyLocalPlaylists, "[]"))
		require.NoError(t, s.Set(MigrationKey("b"), `"in_progress"`))
		require.NoError(t, s.Set("migrationXc", "x"))

		entries, err := s.MigrationKeys()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "migration_b", entries[0].Key)
		assert.Equal(t, "migration_a", entries[1].Key)
	})
}

func TestMigrationKey(t *testing.T) {
	assert.Equal(t, "migration_u42", MigrationKey("u42"))
}
