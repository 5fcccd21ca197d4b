package mmwave

import (
	"math"
	"testing"
)

func TestPointRange(t *testing.T) {
	tests := []struct {
		p    Point
		want float64
	}{
		{Point{X: 3, Y: 4}, 5},
		{Point{X: 2, Y: 3, Z: 6}, 7},
		{Point{}, 0},
		{Point{Y: -5}, 5},
	}
	for _, tt := range tests {
		if got := tt.p.Range(); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Range(%+v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPointAzimuth(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"forward", Point{X: 0, Y: 1}, 0},
		{"right 45", Point{X: 1, Y: 1}, 45},
		{"left 45", Point{X: -1, Y: 1}, -45},
		{"right of sensor", Point{X: 1, Y: 0}, 90},
		{"left of sensor", Point{X: -2, Y: 0}, -90},
		{"origin", Point{}, 0},
		{"behind right", Point{X: 1, Y: -1}, -45},
	}
	for _, tt := range tests {
		if got := tt.p.Azimuth(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Azimuth = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPointAzimuthDegenerateExact(t *testing.T) {
	// The y==0 branch must not go through atan at all.
	if got := (Point{X: 0.001, Y: 0}).Azimuth(); got != 90 {
		t.Errorf("Azimuth = %v, want exactly 90", got)
	}
	if got := (Point{X: -0.001, Y: 0}).Azimuth(); got != -90 {
		t.Errorf("Azimuth = %v, want exactly -90", got)
	}
}

func TestPointElevation(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"level", Point{X: 1, Y: 1}, 0},
		{"45 up", Point{X: 3, Y: 4, Z: 5}, 45},
		{"45 down", Point{X: 3, Y: 4, Z: -5}, -45},
		{"straight up", Point{Z: 2}, 90},
		{"straight down", Point{Z: -2}, -90},
		{"origin", Point{}, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Elevation(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Elevation = %v, want %v", tt.name, got, tt.want)
		}
	}
}
