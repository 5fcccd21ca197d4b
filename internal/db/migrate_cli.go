package db

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand executes one migrate subcommand against the database
// at dbPath. This is the CLI surface, not a library: handlers print for
// the operator and exit the process on failure.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	action := args[0]
	if action == "help" {
		printMigrateHelp()
		return
	}

	// Embedded in release builds, the source tree in dev mode.
	migFS, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	// Plain OpenDB: the selected action decides what happens to the
	// schema, so nothing may migrate as a side effect of connecting.
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open database %s: %v", dbPath, err)
	}
	defer database.Close()

	switch action {
	case "up":
		handleMigrateUp(database, migFS)
	case "down":
		handleMigrateDown(database, migFS)
	case "status":
		handleMigrateStatus(database, migFS)
	case "version":
		if len(args) < 2 {
			log.Fatal("usage: radar migrate version <N>")
		}
		handleMigrateVersion(database, migFS, args[1])
	case "force":
		if len(args) < 2 {
			log.Fatal("usage: radar migrate force <N>")
		}
		handleMigrateForce(database, migFS, args[1])
	case "baseline":
		if len(args) < 2 {
			log.Fatal("usage: radar migrate baseline <N>")
		}
		handleMigrateBaseline(database, args[1])
	default:
		fmt.Printf("unknown migrate action %q\n\n", action)
		printMigrateHelp()
		os.Exit(1)
	}
}

func handleMigrateUp(database *DB, migFS fs.FS) {
	log.Printf("Applying migrations...")
	if err := database.MigrateUp(migFS); err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	log.Println("All migrations applied")

	version, dirty, _ := database.MigrateVersion(migFS)
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func handleMigrateDown(database *DB, migFS fs.FS) {
	log.Printf("Rolling back one migration...")
	if err := database.MigrateDown(migFS); err != nil {
		log.Fatalf("migrate down: %v", err)
	}
	log.Println("Rolled back one migration")

	version, dirty, _ := database.MigrateVersion(migFS)
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func handleMigrateStatus(database *DB, migFS fs.FS) {
	status, err := database.GetMigrationStatus(migFS)
	if err != nil {
		log.Fatalf("migration status: %v", err)
	}

	fmt.Println("=== Migration Status ===")
	fmt.Printf("Current version: %v\n", status["current_version"])
	fmt.Printf("Dirty: %v\n", status["dirty"])
	fmt.Printf("Schema migrations table exists: %v\n", status["schema_migrations_exists"])

	if status["dirty"] == true {
		fmt.Println()
		fmt.Println("A migration failed partway through. Inspect the schema by hand,")
		fmt.Println("repair it, then stamp the real version with:")
		fmt.Println("  radar migrate force <N>")
	}
}

func handleMigrateVersion(database *DB, migFS fs.FS, versionStr string) {
	target, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil {
		log.Fatalf("invalid version %q", versionStr)
	}

	log.Printf("Migrating to version %d...", target)
	if err := database.MigrateTo(migFS, uint(target)); err != nil {
		log.Fatalf("migrate to version %d: %v", target, err)
	}
	log.Printf("Now at version %d", target)
}

func handleMigrateForce(database *DB, migFS fs.FS, versionStr string) {
	target, err := strconv.Atoi(versionStr)
	if err != nil {
		log.Fatalf("invalid version %q", versionStr)
	}

	fmt.Printf("Forcing the recorded schema version to %d without running any SQL.\n", target)
	fmt.Println("Only do this to recover from a dirty migration state.")
	fmt.Print("Continue? [y/N]: ")

	var response string
	fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		log.Println("Aborted")
		os.Exit(0)
	}

	if err := database.MigrateForce(migFS, target); err != nil {
		log.Fatalf("force version: %v", err)
	}
	log.Printf("Schema version forced to %d", target)
}

func handleMigrateBaseline(database *DB, versionStr string) {
	target, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil {
		log.Fatalf("invalid version %q", versionStr)
	}

	log.Printf("Baselining database at version %d...", target)
	if err := database.BaselineAtVersion(uint(target)); err != nil {
		log.Fatalf("baseline: %v", err)
	}
	log.Printf("Database baselined at version %d", target)
}

func printMigrateHelp() {
	fmt.Println("Manage the radar database schema.")
	fmt.Println()
	fmt.Println("Usage: radar [-db <path>] migrate <action>")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  up            apply all pending migrations")
	fmt.Println("  down          roll back the most recent migration")
	fmt.Println("  status        show the schema version and dirty flag")
	fmt.Println("  version <N>   migrate up or down to version N")
	fmt.Println("  force <N>     stamp version N without running SQL (recovery only)")
	fmt.Println("  baseline <N>  mark a pre-migration database as already at version N")
	fmt.Println("  help          show this message")
	fmt.Println()
	fmt.Println("Upgrading an existing installation:")
	fmt.Println("  radar migrate status   # see how far behind the schema is")
	fmt.Println("  radar migrate up       # apply what is outstanding")
	fmt.Println()
	fmt.Println("The database path comes from the -db flag (default proximity_data.db).")
}
