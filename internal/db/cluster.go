package db

import (
	"database/sql"
	"fmt"
)

// Cluster is one stored submap cluster. ClusterID is the DBSCAN label
// within its frame, unique only per (run, position).
type Cluster struct {
	RunID       string  `json:"run_id"`
	Position    int     `json:"position"`
	ClusterID   int     `json:"cluster_id"`
	CentroidX   float64 `json:"centroid_x"`
	CentroidY   float64 `json:"centroid_y"`
	CentroidZ   float64 `json:"centroid_z"`
	MeanDoppler float64 `json:"mean_doppler"`
	Priority    int     `json:"priority"`
	PointCount  int     `json:"point_count"`
}

// ReplaceClusters swaps the stored clusters for one (run, position) in a
// single transaction. A replayed frame clears what its first pass wrote.
func (db *DB) ReplaceClusters(runID string, position int, clusters []Cluster) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM clusters WHERE run_id = ? AND position = ?`, runID, position); err != nil {
		return fmt.Errorf("failed to clear clusters: %w", err)
	}

	query := `
		INSERT INTO clusters (
			run_id, position, cluster_id,
			centroid_x, centroid_y, centroid_z,
			mean_doppler, priority, point_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, c := range clusters {
		_, err := tx.Exec(
			query,
			runID, position, c.ClusterID,
			c.CentroidX, c.CentroidY, c.CentroidZ,
			c.MeanDoppler, c.Priority, c.PointCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cluster: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clusters: %w", err)
	}

	return nil
}

// ListClusters returns the clusters recorded at one (run, position),
// highest priority first.
func (db *DB) ListClusters(runID string, position int) ([]Cluster, error) {
	query := `
		SELECT run_id, position, cluster_id,
			centroid_x, centroid_y, centroid_z,
			mean_doppler, priority, point_count
		FROM clusters
		WHERE run_id = ? AND position = ?
		ORDER BY priority DESC, cluster_id ASC
	`

	rows, err := db.Query(query, runID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	return scanClusters(rows)
}

// LatestClusters returns the clusters of the newest recorded position of a
// run, highest priority first. An empty result means the latest frame saw
// no clusters (or the run has no frames yet).
func (db *DB) LatestClusters(runID string) ([]Cluster, error) {
	query := `
		SELECT run_id, position, cluster_id,
			centroid_x, centroid_y, centroid_z,
			mean_doppler, priority, point_count
		FROM clusters
		WHERE run_id = ? AND position = (
			SELECT MAX(position) FROM clusters WHERE run_id = ?
		)
		ORDER BY priority DESC, cluster_id ASC
	`

	rows, err := db.Query(query, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest clusters: %w", err)
	}
	defer rows.Close()

	return scanClusters(rows)
}

// ListRunClusters returns every cluster recorded across a run in stream
// order, up to limit (5000 when limit <= 0). Offline report rendering
// wants the whole run, not one position.
func (db *DB) ListRunClusters(runID string, limit int) ([]Cluster, error) {
	if limit <= 0 {
		limit = 5000
	}

	query := `
		SELECT run_id, position, cluster_id,
			centroid_x, centroid_y, centroid_z,
			mean_doppler, priority, point_count
		FROM clusters
		WHERE run_id = ?
		ORDER BY position ASC, cluster_id ASC
		LIMIT ?
	`

	rows, err := db.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run clusters: %w", err)
	}
	defer rows.Close()

	return scanClusters(rows)
}

func scanClusters(rows *sql.Rows) ([]Cluster, error) {
	var clusters []Cluster
	for rows.Next() {
		var c Cluster
		err := rows.Scan(
			&c.RunID,
			&c.Position,
			&c.ClusterID,
			&c.CentroidX,
			&c.CentroidY,
			&c.CentroidZ,
			&c.MeanDoppler,
			&c.Priority,
			&c.PointCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clusters: %w", err)
	}

	return clusters, nil
}
