package db

import (
	"fmt"
	"time"
)

// Warning is one stored safety zone intrusion.
type Warning struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Position    int       `json:"position"`
	ClusterID   int       `json:"cluster_id"`
	Priority    int       `json:"priority"`
	MeanDoppler float64   `json:"mean_doppler"`
	PointCount  int       `json:"point_count"`
	CentroidX   float64   `json:"centroid_x"`
	CentroidY   float64   `json:"centroid_y"`
	CentroidZ   float64   `json:"centroid_z"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReplaceWarnings swaps the stored warnings for one (run, position) in a
// single transaction, mirroring ReplaceClusters.
func (db *DB) ReplaceWarnings(runID string, position int, warnings []Warning) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM warnings WHERE run_id = ? AND position = ?`, runID, position); err != nil {
		return fmt.Errorf("failed to clear warnings: %w", err)
	}

	query := `
		INSERT INTO warnings (
			run_id, position, cluster_id, priority, mean_doppler,
			point_count, centroid_x, centroid_y, centroid_z, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, w := range warnings {
		createdAt := w.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := tx.Exec(
			query,
			runID, position, w.ClusterID, w.Priority, w.MeanDoppler,
			w.PointCount, w.CentroidX, w.CentroidY, w.CentroidZ, createdAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit warnings: %w", err)
	}

	return nil
}

// ListWarnings returns a run's warnings newest first, up to limit
// (100 when limit <= 0).
func (db *DB) ListWarnings(runID string, limit int) ([]Warning, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, run_id, position, cluster_id, priority, mean_doppler,
			point_count, centroid_x, centroid_y, centroid_z, created_at
		FROM warnings
		WHERE run_id = ?
		ORDER BY position DESC, priority DESC
		LIMIT ?
	`

	rows, err := db.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query warnings: %w", err)
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var w Warning
		var createdAtUnix int64
		err := rows.Scan(
			&w.ID,
			&w.RunID,
			&w.Position,
			&w.ClusterID,
			&w.Priority,
			&w.MeanDoppler,
			&w.PointCount,
			&w.CentroidX,
			&w.CentroidY,
			&w.CentroidZ,
			&createdAtUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		w.CreatedAt = time.Unix(createdAtUnix, 0)
		warnings = append(warnings, w)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warnings: %w", err)
	}

	return warnings, nil
}
