package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corvid-data/proximity.report/internal/config"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
)

// Recorder persists pipeline results for one run. It is a pipeline result
// sink: attach it to the runtime and every processed frame lands in the
// frames, clusters and warnings tables under the run created here.
//
// Replayed frames are written like any other; the unique (run, position)
// key makes the replacement semantics explicit, so a rewound run's stored
// history always matches the last simulation.
type Recorder struct {
	db  *DB
	run *Run
	now func() time.Time
}

var _ pipeline.ResultSink = (*Recorder)(nil)

// NewRecorder creates the run row and returns a recorder feeding it. The
// tuning snapshot is stored with the run so a recorded session can be
// interpreted, or re-simulated, later with the exact knobs it ran under.
func NewRecorder(db *DB, source string, cfg *config.PipelineConfig) (*Recorder, error) {
	snapshot := "{}"
	if cfg != nil {
		buf, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config snapshot: %w", err)
		}
		snapshot = string(buf)
	}

	run := &Run{Source: source, ConfigJSON: snapshot}
	if err := db.CreateRun(run); err != nil {
		return nil, err
	}

	return &Recorder{db: db, run: run, now: time.Now}, nil
}

// Run returns the run this recorder writes to.
func (r *Recorder) Run() *Run { return r.run }

// ConsumeResult stores one frame result: the summary row plus the frame's
// clusters and warnings.
func (r *Recorder) ConsumeResult(ctx context.Context, result *pipeline.FrameResult) error {
	frame := &Frame{
		RunID:        r.run.ID,
		Position:     result.Position,
		FrameNumber:  int64(result.Header.FrameNumber),
		TimestampMs:  r.now().UnixMilli(),
		PointCount:   len(result.Filtered),
		DynamicCount: len(result.Dynamic),
		ClusterCount: len(result.Clusters),
		WarningCount: len(result.Warnings),
		RawSpeed:     result.RawSpeed,
		SmoothSpeed:  result.SmoothSpeed,
	}
	if err := r.db.InsertFrame(frame); err != nil {
		return err
	}

	clusters := make([]Cluster, 0, len(result.Clusters))
	for _, c := range result.Clusters {
		clusters = append(clusters, Cluster{
			ClusterID:   c.ID,
			CentroidX:   c.CentroidX,
			CentroidY:   c.CentroidY,
			CentroidZ:   c.CentroidZ,
			MeanDoppler: c.MeanDoppler,
			Priority:    c.Priority,
			PointCount:  len(c.Points),
		})
	}
	if err := r.db.ReplaceClusters(r.run.ID, result.Position, clusters); err != nil {
		return err
	}

	warnings := make([]Warning, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, Warning{
			ClusterID:   w.ClusterID,
			Priority:    w.Priority,
			MeanDoppler: w.MeanDoppler,
			PointCount:  w.PointCount,
			CentroidX:   w.CentroidX,
			CentroidY:   w.CentroidY,
			CentroidZ:   w.CentroidZ,
			CreatedAt:   r.now(),
		})
	}
	if err := r.db.ReplaceWarnings(r.run.ID, result.Position, warnings); err != nil {
		return err
	}

	return nil
}

// Close stamps the run's end time. The database itself stays open; it
// belongs to the caller.
func (r *Recorder) Close() error {
	return r.db.FinishRun(r.run.ID, r.now())
}
