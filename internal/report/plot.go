package report

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/corvid-data/proximity.report/internal/db"
	"github.com/corvid-data/proximity.report/internal/units"
)

// RenderSpeedPNG writes the run's raw and smoothed self-speed series as a
// line plot. X is elapsed seconds from the first loaded frame; speeds are
// converted to opts.Units for display.
func (rd *RunData) RenderSpeedPNG(path string, opts Options) error {
	opts = opts.withDefaults()

	if len(rd.Speeds) == 0 {
		return fmt.Errorf("run %s has no speed samples", rd.Run.ID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Self-Speed (run %s)", shortID(rd.Run.ID))
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = fmt.Sprintf("Speed (%s)", units.Label(opts.Units))
	p.Add(plotter.NewGrid())

	t0 := rd.Speeds[0].TimestampMs
	rawPts := make(plotter.XYs, 0, len(rd.Speeds))
	smoothPts := make(plotter.XYs, 0, len(rd.Speeds))
	for _, s := range rd.Speeds {
		x := float64(s.TimestampMs-t0) / 1000.0
		rawPts = append(rawPts, plotter.XY{X: x, Y: units.ConvertSpeed(s.RawSpeed, opts.Units)})
		smoothPts = append(smoothPts, plotter.XY{X: x, Y: units.ConvertSpeed(s.SmoothSpeed, opts.Units)})
	}

	colors := generateColors(2)

	rawLine, err := plotter.NewLine(rawPts)
	if err != nil {
		return err
	}
	rawLine.Color = colors[0]
	rawLine.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add("raw", rawLine)

	smoothLine, err := plotter.NewLine(smoothPts)
	if err != nil {
		return err
	}
	smoothLine.Color = colors[1]
	smoothLine.Width = vg.Points(2)
	p.Add(smoothLine)
	p.Legend.Add("smoothed", smoothLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save speed plot: %w", err)
	}

	return nil
}

// RenderRangePNG writes each cluster's ground range over the run's frames,
// one scatter series per priority level. Returns an error when the run
// recorded no clusters.
func (rd *RunData) RenderRangePNG(path string) error {
	if len(rd.Clusters) == 0 {
		return fmt.Errorf("run %s has no clusters", rd.Run.ID)
	}

	byPriority := make(map[int][]db.Cluster)
	for _, c := range rd.Clusters {
		byPriority[c.Priority] = append(byPriority[c.Priority], c)
	}

	// Sort priority levels for a consistent legend
	priorities := make([]int, 0, len(byPriority))
	for pr := range byPriority {
		priorities = append(priorities, pr)
	}
	sort.Ints(priorities)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cluster Range (run %s)", shortID(rd.Run.ID))
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Range (m)"
	p.Add(plotter.NewGrid())

	colors := generateColors(len(priorities))
	for i, pr := range priorities {
		clusters := byPriority[pr]
		pts := make(plotter.XYs, 0, len(clusters))
		for _, c := range clusters {
			pts = append(pts, plotter.XY{
				X: float64(c.Position),
				Y: math.Hypot(c.CentroidX, c.CentroidY),
			})
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = colors[i]
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("priority %d", pr), sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save range plot: %w", err)
	}

	return nil
}

// generateColors returns n visually distinct colors, evenly spaced in hue.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts an HSL triple, each component in [0, 1], to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
