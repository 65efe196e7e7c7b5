package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	var recorded int
	require.NoError(t, db.QueryRow("SELECT version FROM "+schemaTable).Scan(&recorded))
	assert.Equal(t, 1, recorded)
}

func TestRunMigrationsReportsDirtySchema(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Exec("UPDATE " + schemaTable + " SET dirty = 1")
	require.NoError(t, err)

	version, dirty, err := RunMigrations(db)
	require.Error(t, err)
	assert.True(t, dirty)
	assert.Equal(t, uint(1), version)
	assert.Contains(t, err.Error(), "schema version 1 is dirty")
}
