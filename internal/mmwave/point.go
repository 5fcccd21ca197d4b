package mmwave

import "math"

// Point is a single radar detection in sensor-frame Cartesian coordinates.
// Coordinate convention: X=right, Y=forward, Z=up. Doppler is the radial
// velocity of the detection relative to the sensor in m/s, negative when
// closing distance while the platform moves forward.
//
// SNR and Noise come from the side-info TLV and are only meaningful when
// HasSideInfo is true; frames without a side-info block leave them zero.
// Ve is the Doppler a static point at this bearing would show given the
// current self-speed. It is populated by CalculateVe and is zero otherwise.
type Point struct {
	X       float64
	Y       float64
	Z       float64
	Doppler float64

	SNR         float64 // dB
	Noise       float64 // dB
	HasSideInfo bool

	Ve float64
}

// PointCloud is an ordered set of detections. Order is detection order
// within the frame and is preserved by every filter stage. Duplicate
// coordinates are allowed.
type PointCloud []Point

// Range returns the Euclidean distance from the sensor origin in meters.
func (p Point) Range() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Azimuth returns the bearing of the point in the X/Y plane, in degrees,
// measured from the +Y (forward) axis. Positive azimuth is to the right.
// When Y is exactly zero the ratio X/Y is undefined and the bearing
// degenerates to +/-90 by the sign of X.
func (p Point) Azimuth() float64 {
	if p.Y == 0 {
		return 90 * sign(p.X)
	}
	return math.Atan(p.X/p.Y) * 180 / math.Pi
}

// Elevation returns the angle of the point above the X/Y plane in degrees.
// Directly above or below the sensor (X and Y both zero) degenerates to
// +/-90 by the sign of Z.
func (p Point) Elevation() float64 {
	if p.X == 0 && p.Y == 0 {
		return 90 * sign(p.Z)
	}
	return math.Atan(p.Z/math.Hypot(p.X, p.Y)) * 180 / math.Pi
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
