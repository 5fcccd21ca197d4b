// Package report renders offline summaries of recorded runs: speed and
// cluster-range PNGs plus an interactive HTML page showing where the
// run's clusters sat and which of them tripped the safety zone.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corvid-data/proximity.report/internal/db"
	"github.com/corvid-data/proximity.report/internal/units"
)

// DefaultMaxFrames caps how much of a run's speed series is loaded for
// rendering. Runs longer than the cap keep their newest frames.
const DefaultMaxFrames = 20000

// Options control how a report is rendered.
type Options struct {
	// Units is the display unit for speeds (mps, mph, kmph, kph).
	// Stored speeds stay in m/s; conversion happens at render time.
	Units string

	// Timezone is the IANA zone used for timestamps on the HTML page.
	Timezone string

	// MaxFrames caps the loaded speed series (DefaultMaxFrames when 0).
	MaxFrames int
}

func (o Options) withDefaults() Options {
	if o.Units == "" {
		o.Units = units.MPS
	}
	if o.Timezone == "" {
		o.Timezone = "UTC"
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = DefaultMaxFrames
	}
	return o
}

// Output lists the files one report produced. RangePNG is empty when the
// run recorded no clusters.
type Output struct {
	Dir      string
	SpeedPNG string
	RangePNG string
	HTML     string
}

// RunData is one run's stored series, loaded for rendering.
type RunData struct {
	Run      *db.Run
	Speeds   []db.SpeedSample
	Clusters []db.Cluster
	Warnings []db.Warning
}

// Load pulls a run and its series out of the store. Speeds come back in
// ascending stream order, clusters across the whole run.
func Load(database *db.DB, runID string, maxFrames int) (*RunData, error) {
	run, err := database.GetRun(runID)
	if err != nil {
		return nil, err
	}

	speeds, err := database.SpeedHistory(runID, maxFrames)
	if err != nil {
		return nil, err
	}
	clusters, err := database.ListRunClusters(runID, 0)
	if err != nil {
		return nil, err
	}
	warnings, err := database.ListWarnings(runID, maxFrames)
	if err != nil {
		return nil, err
	}

	return &RunData{Run: run, Speeds: speeds, Clusters: clusters, Warnings: warnings}, nil
}

// Generate loads a run and writes speed.png and report.html into outDir,
// creating the directory if needed.
func Generate(database *db.DB, runID, outDir string, opts Options) (*Output, error) {
	opts = opts.withDefaults()

	rd, err := Load(database, runID, opts.MaxFrames)
	if err != nil {
		return nil, err
	}
	if len(rd.Speeds) == 0 {
		return nil, fmt.Errorf("run %s has no recorded frames", runID)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	out := &Output{
		Dir:      outDir,
		SpeedPNG: filepath.Join(outDir, "speed.png"),
		HTML:     filepath.Join(outDir, "report.html"),
	}
	if err := rd.RenderSpeedPNG(out.SpeedPNG, opts); err != nil {
		return nil, err
	}
	if len(rd.Clusters) > 0 {
		out.RangePNG = filepath.Join(outDir, "range.png")
		if err := rd.RenderRangePNG(out.RangePNG); err != nil {
			return nil, err
		}
	}
	if err := rd.RenderHTML(out.HTML, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeReportOutputDir names a timestamped output directory for one run's
// report: <baseDir>/<short run id>/<timestamp>.
func MakeReportOutputDir(baseDir, runID string) string {
	return filepath.Join(baseDir, shortID(runID), FormatTimestamp(time.Now()))
}

// shortID truncates a run UUID for titles and directory names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
