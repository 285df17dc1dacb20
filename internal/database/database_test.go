package database

import (
	"context"
	"testing"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, config.DBConfig{Type: config.DBTypeMemory, Name: "TestConnectAndMigrate"})
	require.NoError(t, err)
	defer db.Close()

	dir := MigrationsDir("../../migrations", config.DBTypeMemory)
	require.NoError(t, Migrate(db, config.DBTypeMemory, dir))
	// a second run has nothing to apply
	require.NoError(t, Migrate(db, config.DBTypeMemory, dir))

	var fk int
	require.NoError(t, db.GetContext(ctx, &fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)

	var tables int
	require.NoError(t, db.GetContext(ctx, &tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('continents', 'countries', 'divisions', 'cities', 'city_translations', 'sync_runs')"))
	assert.Equal(t, 6, tables)

	m, err := NewMigrator(db, config.DBTypeMemory, dir)
	require.NoError(t, err)
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestMigrationsDir(t *testing.T) {
	assert.Equal(t, "migrations/postgres", MigrationsDir("migrations", config.DBTypePostgreSQL))
	assert.Equal(t, "migrations/sqlite", MigrationsDir("migrations", config.DBTypeSQLite))
	assert.Equal(t, "migrations/sqlite", MigrationsDir("migrations", config.DBTypeMemory))
}
