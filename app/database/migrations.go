package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	schemaDir = "migrations"
	// schemaTable records the applied version.
	schemaTable = "hfn_schema_migrations"
)

//go:embed migrations/*.up.sql migrations/*.down.sql
var schemaFS embed.FS

// RunMigrations brings the resources, sources, saved searches and blobs
// tables up to the embedded schema. It returns the schema version and
// whether an interrupted run left it dirty.
func RunMigrations(db *DB) (uint, bool, error) {
	files, err := iofs.New(schemaFS, schemaDir)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open embedded schema files: %w", err)
	}
	defer files.Close()

	target, err := sqlite.WithInstance(db.DB, &sqlite.Config{MigrationsTable: schemaTable})
	if err != nil {
		return 0, false, fmt.Errorf("failed to prepare sqlite for schema migration: %w", err)
	}

	// The migrator is not closed: closing it would close db as well.
	m, err := migrate.NewWithInstance("embedded", files, "sqlite", target)
	if err != nil {
		return 0, false, fmt.Errorf("failed to set up schema migration: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return uint(dirty.Version), true, fmt.Errorf("schema version %d is dirty, repair it and force the version in %s: %w", dirty.Version, schemaTable, err)
		}
		return 0, false, fmt.Errorf("failed to apply schema migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version from %s: %w", schemaTable, err)
	}

	return version, dirty, nil
}
