// Package db persists pipeline output in sqlite: one row per run, a
// per-frame summary, and the clusters and safety warnings each frame
// produced. The schema is managed by golang-migrate from the numbered
// .sql pairs under migrations/, which ship embedded in the binary.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the sqlite database at path and applies the connection
// pragmas. It does not create or migrate the schema; use NewDB for that,
// or OpenDB when migrations are driven explicitly (the migrate CLI).
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway, and most of the pragmas below are
	// per-connection, so the pool is pinned to a single connection.
	sqlDB.SetMaxOpenConns(1)

	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database at path and applies any pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migFS); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewDBWithMigrationCheck opens the database and either applies pending
// migrations (autoMigrate true) or refuses to run against an out-of-date
// schema, telling the operator which command to run instead.
func NewDBWithMigrationCheck(path string, autoMigrate bool) (*DB, error) {
	if autoMigrate {
		return NewDB(path)
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if outdated, err := db.CheckAndPromptMigrations(migFS); outdated || err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

// AttachAdminRoutes mounts the database debug surface: a tailsql instance
// for live queries and a backup download endpoint.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Proximity DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a gzipped backup of the database now", http.HandlerFunc(db.handleBackup))
}

// handleBackup snapshots the database with VACUUM INTO and streams the
// result back gzipped. The snapshot file is removed once sent.
func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("proximity-backup-%d.db", time.Now().UnixNano()))
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			log.Printf("Failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		log.Printf("Failed to stream backup: %v", err)
	}
}
