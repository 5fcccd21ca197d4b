package db

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"runs", "frames", "clusters", "warnings", "schema_migrations"} {
		var count int
		err := db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestOpenDBDoesNotCreateSchema(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bare.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Error("OpenDB should not create the schema")
	}
}

func TestNewDBReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db1, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	run := &Run{Source: "udp://0.0.0.0:8080"}
	if err := db1.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	db1.Close()

	db2, err := NewDB(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()

	got, err := db2.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun after reopen failed: %v", err)
	}
	if got.Source != run.Source {
		t.Errorf("expected source %q, got %q", run.Source, got.Source)
	}
}

func TestNewDBWithMigrationCheckOutdated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outdated.db")

	// A bare file has no migrations applied, so the check must refuse it.
	bare, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	bare.Close()

	if _, err := NewDBWithMigrationCheck(path, false); err == nil {
		t.Fatal("expected error for unmigrated database")
	}

	// Auto-migrate brings it up, after which the check passes.
	db, err := NewDBWithMigrationCheck(path, true)
	if err != nil {
		t.Fatalf("NewDBWithMigrationCheck(autoMigrate) failed: %v", err)
	}
	db.Close()

	db, err = NewDBWithMigrationCheck(path, false)
	if err != nil {
		t.Fatalf("NewDBWithMigrationCheck on migrated database failed: %v", err)
	}
	db.Close()
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	for _, path := range []string{"/debug/", "/debug/tailsql/", "/debug/backup"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code == 404 {
			t.Errorf("expected %s to be routed, got 404", path)
		}
	}
}

func TestBackupHandler(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateRun(&Run{Source: "log"}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/debug/backup", nil)
	rec := httptest.NewRecorder()
	db.handleBackup(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.Bytes()
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		t.Error("expected gzip-compressed backup body")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/gzip" {
		t.Errorf("expected Content-Type application/gzip, got %q", got)
	}
}
