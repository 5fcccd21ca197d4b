package db

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
)

// DevMode makes getMigrationsFS read migrations from the source tree so
// schema edits do not require a rebuild. It falls back to the embedded
// copy when the binary is not run from the repository root.
var DevMode = os.Getenv("PROXIMITY_DEV_MODE") == "1"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// getMigrationsFS returns the migrations as a filesystem rooted at the
// directory containing the .sql files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		const dir = "internal/db/migrations"
		if _, err := os.Stat(dir); err == nil {
			return os.DirFS(dir), nil
		}
		log.Printf("dev mode: %s not found, using embedded migrations", dir)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	return sub, nil
}
