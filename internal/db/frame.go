package db

import (
	"fmt"
)

// Frame is the stored per-frame summary. Position is the dense stream
// position; FrameNumber is the sensor's own counter from the TLV header.
type Frame struct {
	RunID        string  `json:"run_id"`
	Position     int     `json:"position"`
	FrameNumber  int64   `json:"frame_number"`
	TimestampMs  int64   `json:"timestamp_ms"`
	PointCount   int     `json:"point_count"`
	DynamicCount int     `json:"dynamic_count"`
	ClusterCount int     `json:"cluster_count"`
	WarningCount int     `json:"warning_count"`
	RawSpeed     float64 `json:"raw_speed"`
	SmoothSpeed  float64 `json:"smooth_speed"`
}

// SpeedSample is one point of a run's self-speed series.
type SpeedSample struct {
	Position    int     `json:"position"`
	TimestampMs int64   `json:"timestamp_ms"`
	RawSpeed    float64 `json:"raw_speed"`
	SmoothSpeed float64 `json:"smooth_speed"`
}

// InsertFrame records one frame summary. Re-inserting a (run, position)
// pair replaces the earlier row, which is what a rewound run's replay
// wants: the latest simulation wins.
func (db *DB) InsertFrame(frame *Frame) error {
	query := `
		INSERT INTO frames (
			run_id, position, frame_number, timestamp_ms,
			point_count, dynamic_count, cluster_count, warning_count,
			raw_speed, smooth_speed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, position) DO UPDATE SET
			frame_number = excluded.frame_number,
			timestamp_ms = excluded.timestamp_ms,
			point_count = excluded.point_count,
			dynamic_count = excluded.dynamic_count,
			cluster_count = excluded.cluster_count,
			warning_count = excluded.warning_count,
			raw_speed = excluded.raw_speed,
			smooth_speed = excluded.smooth_speed
	`

	_, err := db.Exec(
		query,
		frame.RunID,
		frame.Position,
		frame.FrameNumber,
		frame.TimestampMs,
		frame.PointCount,
		frame.DynamicCount,
		frame.ClusterCount,
		frame.WarningCount,
		frame.RawSpeed,
		frame.SmoothSpeed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}

	return nil
}

// ListFrames returns a run's frames in stream order, up to limit
// (500 when limit <= 0).
func (db *DB) ListFrames(runID string, limit int) ([]Frame, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT run_id, position, frame_number, timestamp_ms,
			point_count, dynamic_count, cluster_count, warning_count,
			raw_speed, smooth_speed
		FROM frames
		WHERE run_id = ?
		ORDER BY position ASC
		LIMIT ?
	`

	rows, err := db.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var frame Frame
		err := rows.Scan(
			&frame.RunID,
			&frame.Position,
			&frame.FrameNumber,
			&frame.TimestampMs,
			&frame.PointCount,
			&frame.DynamicCount,
			&frame.ClusterCount,
			&frame.WarningCount,
			&frame.RawSpeed,
			&frame.SmoothSpeed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, frame)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frames: %w", err)
	}

	return frames, nil
}

// SpeedHistory returns the most recent limit samples of a run's self-speed
// series in ascending stream order (200 when limit <= 0).
func (db *DB) SpeedHistory(runID string, limit int) ([]SpeedSample, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT position, timestamp_ms, raw_speed, smooth_speed
		FROM frames
		WHERE run_id = ?
		ORDER BY position DESC
		LIMIT ?
	`

	rows, err := db.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query speed history: %w", err)
	}
	defer rows.Close()

	var samples []SpeedSample
	for rows.Next() {
		var sample SpeedSample
		err := rows.Scan(
			&sample.Position,
			&sample.TimestampMs,
			&sample.RawSpeed,
			&sample.SmoothSpeed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan speed sample: %w", err)
		}
		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating speed history: %w", err)
	}

	// The query walks newest first to honour the limit; callers plot the
	// series oldest first.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	return samples, nil
}
