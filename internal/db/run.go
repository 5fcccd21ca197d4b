package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded pipeline session: a single frame stream processed
// with a fixed tuning, from whatever source fed it.
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
	ConfigJSON string     `json:"config_json"`
}

// CreateRun inserts a new run, generating its ID and start time when the
// caller left them unset.
func (db *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.ConfigJSON == "" {
		run.ConfigJSON = "{}"
	}

	_, err := db.Exec(
		`INSERT INTO runs (id, source, started_at, config_json) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.StartedAt.Unix(), run.ConfigJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	query := `
		SELECT id, source, started_at, ended_at, config_json
		FROM runs
		WHERE id = ?
	`

	var run Run
	var startedAtUnix int64
	var endedAtUnix sql.NullInt64

	err := db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Source,
		&startedAtUnix,
		&endedAtUnix,
		&run.ConfigJSON,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = time.Unix(startedAtUnix, 0)
	if endedAtUnix.Valid {
		ended := time.Unix(endedAtUnix.Int64, 0)
		run.EndedAt = &ended
	}

	return &run, nil
}

// ListRuns returns runs newest first, up to limit (50 when limit <= 0).
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source, started_at, ended_at, config_json
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAtUnix int64
		var endedAtUnix sql.NullInt64

		err := rows.Scan(
			&run.ID,
			&run.Source,
			&startedAtUnix,
			&endedAtUnix,
			&run.ConfigJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = time.Unix(startedAtUnix, 0)
		if endedAtUnix.Valid {
			ended := time.Unix(endedAtUnix.Int64, 0)
			run.EndedAt = &ended
		}

		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// FinishRun stamps the run's end time.
func (db *DB) FinishRun(id string, endedAt time.Time) error {
	result, err := db.Exec(`UPDATE runs SET ended_at = ? WHERE id = ?`, endedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found")
	}

	return nil
}
