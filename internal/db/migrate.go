package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUp applies every pending migration. A database already at the
// latest version is left alone.
func (db *DB) MigrateUp(fsys fs.FS) error {
	m, err := db.newMigrate(fsys)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
func (db *DB) MigrateDown(fsys fs.FS) error {
	m, err := db.newMigrate(fsys)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// MigrateVersion reports the schema version and whether a migration died
// partway through. A fresh database reports version 0, clean.
func (db *DB) MigrateVersion(fsys fs.FS) (version uint, dirty bool, err error) {
	m, err := db.newMigrate(fsys)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce stamps the schema version without running any SQL. This is
// a recovery tool for a dirty database; normal upgrades go through
// MigrateUp.
func (db *DB) MigrateForce(fsys fs.FS, version int) error {
	m, err := db.newMigrate(fsys)
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// MigrateTo walks the schema up or down to the given version.
func (db *DB) MigrateTo(fsys fs.FS, version uint) error {
	m, err := db.newMigrate(fsys)
	if err != nil {
		return err
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	return nil
}

// newMigrate builds a migrate instance over the .sql files in fsys, which
// must be rooted at the directory holding them. The instance is never
// Closed: its sqlite driver wraps db's own connection, and closing it
// would take the whole database down with it.
func (db *DB) newMigrate(fsys fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("wrap sqlite connection: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("build migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger routes golang-migrate's output through the process log.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// ensureSchemaMigrationsTable creates golang-migrate's bookkeeping table.
// The library does this itself before running migrations; baselining needs
// the table before any migration has run.
func (db *DB) ensureSchemaMigrationsTable() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL,
			dirty INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS version_unique ON schema_migrations (version);
	`)
	return err
}

// BaselineAtVersion stamps an empty schema_migrations table at version
// without running any SQL, for databases whose schema predates the
// migration files. Refuses to touch a database that has already applied
// migrations.
func (db *DB) BaselineAtVersion(version uint) error {
	if err := db.ensureSchemaMigrationsTable(); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("inspect schema_migrations: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("database already has migrations applied, cannot baseline")
	}

	if _, err := db.Exec("INSERT INTO schema_migrations (version, dirty) VALUES (?, 0)", version); err != nil {
		return fmt.Errorf("record baseline version: %w", err)
	}

	log.Printf("Database baselined at version %d", version)
	return nil
}

// GetMigrationStatus reports the schema version, the dirty flag, and
// whether the bookkeeping table exists at all, keyed for the migrate
// status subcommand.
func (db *DB) GetMigrationStatus(fsys fs.FS) (map[string]interface{}, error) {
	version, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		return nil, fmt.Errorf("read migration version: %w", err)
	}

	var tableExists bool
	err = db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_migrations'
	`).Scan(&tableExists)
	if err != nil {
		return nil, fmt.Errorf("check schema_migrations table: %w", err)
	}

	return map[string]interface{}{
		"current_version":          version,
		"dirty":                    dirty,
		"schema_migrations_exists": tableExists,
	}, nil
}

// GetLatestMigrationVersion scans fsys for the highest-numbered *.up.sql
// file. Migration files are named NNNNNN_description.up.sql.
func GetLatestMigrationVersion(fsys fs.FS) (uint, error) {
	entries, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("scan migrations: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("no migration files found")
	}

	var maxVersion uint
	for _, entry := range entries {
		var version uint
		if _, err := fmt.Sscanf(path.Base(entry), "%d_", &version); err == nil && version > maxVersion {
			maxVersion = version
		}
	}
	if maxVersion == 0 {
		return 0, fmt.Errorf("no numbered migration files among %d entries", len(entries))
	}
	return maxVersion, nil
}

// CheckAndPromptMigrations compares the database schema against the
// bundled migrations at startup. When the database is behind, it logs the
// upgrade runbook and reports outdated=true with an error describing the
// gap, so the caller can refuse to run against a stale schema.
func (db *DB) CheckAndPromptMigrations(fsys fs.FS) (bool, error) {
	currentVersion, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		return false, fmt.Errorf("read current migration version: %w", err)
	}
	latestVersion, err := GetLatestMigrationVersion(fsys)
	if err != nil {
		return false, fmt.Errorf("read latest migration version: %w", err)
	}

	if currentVersion == latestVersion && !dirty {
		return false, nil
	}
	if dirty {
		return true, fmt.Errorf("database is in a dirty state at version %d; run 'radar migrate status' to diagnose", currentVersion)
	}
	if currentVersion > latestVersion {
		return true, fmt.Errorf("database version %d is ahead of the latest migration %d; was this database created by a newer build?", currentVersion, latestVersion)
	}

	log.Printf("database schema is behind: have version %d, migrations go to %d (%d outstanding)",
		currentVersion, latestVersion, latestVersion-currentVersion)
	log.Printf("apply them with:   radar migrate up")
	log.Printf("inspect them with: radar migrate status")

	return true, fmt.Errorf("database schema is out of date (version %d, need %d)", currentVersion, latestVersion)
}
