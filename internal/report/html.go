package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/corvid-data/proximity.report/internal/units"
)

// visualMapColors is the ramp used to color cluster points by priority,
// low to high.
var visualMapColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderHTML writes an interactive page for the run: a scatter of every
// cluster centroid colored by priority, and the self-speed series as a
// line chart. Speeds are converted to o.Units; timestamps are shown in
// o.Timezone.
func (rd *RunData) RenderHTML(path string, o Options) error {
	o = o.withDefaults()

	started, err := units.ConvertTime(rd.Run.StartedAt.UTC(), o.Timezone)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.AddCharts(rd.clusterScatter(), rd.speedLine(o, started))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render report page: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report page: %w", err)
	}

	return nil
}

// clusterScatter plots centroids in the sensor's X/Y plane. The third
// value dimension carries the priority for the visual map.
func (rd *RunData) clusterScatter() *charts.Scatter {
	pts := make([]opts.ScatterData, 0, len(rd.Clusters))
	maxAbs := 0.0
	maxPriority := 1
	for _, c := range rd.Clusters {
		if math.Abs(c.CentroidX) > maxAbs {
			maxAbs = math.Abs(c.CentroidX)
		}
		if math.Abs(c.CentroidY) > maxAbs {
			maxAbs = math.Abs(c.CentroidY)
		}
		if c.Priority > maxPriority {
			maxPriority = c.Priority
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{c.CentroidX, c.CentroidY, c.Priority}})
	}

	// Add a small padding so points at the edges are visible; symmetric
	// ranges keep the geometry square.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: fmt.Sprintf("Run %s", shortID(rd.Run.ID)), Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cluster Centroids", Subtitle: fmt.Sprintf("run=%s clusters=%d warnings=%d", shortID(rd.Run.ID), len(rd.Clusters), len(rd.Warnings))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxPriority),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: visualMapColors},
		}),
	)
	scatter.AddSeries("clusters", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	return scatter
}

// speedLine plots the raw and smoothed self-speed series against elapsed
// seconds.
func (rd *RunData) speedLine(o Options, started time.Time) *charts.Line {
	xs := make([]string, 0, len(rd.Speeds))
	raw := make([]opts.LineData, 0, len(rd.Speeds))
	smooth := make([]opts.LineData, 0, len(rd.Speeds))

	var t0 int64
	if len(rd.Speeds) > 0 {
		t0 = rd.Speeds[0].TimestampMs
	}
	for _, s := range rd.Speeds {
		xs = append(xs, fmt.Sprintf("%.1f", float64(s.TimestampMs-t0)/1000.0))
		raw = append(raw, opts.LineData{Value: units.ConvertSpeed(s.RawSpeed, o.Units)})
		smooth = append(smooth, opts.LineData{Value: units.ConvertSpeed(s.SmoothSpeed, o.Units)})
	}

	subtitle := fmt.Sprintf("started %s (%s)", started.Format("2006-01-02 15:04:05"), units.GetTimezoneLabel(o.Timezone))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Self-Speed", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Elapsed (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("Speed (%s)", units.Label(o.Units))}),
	)
	line.SetXAxis(xs).
		AddSeries("raw", raw).
		AddSeries("smoothed", smooth, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line
}
