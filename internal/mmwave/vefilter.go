package mmwave

import "math"

// CalculateVe returns a copy of the cloud with each point's Ve field set to
// the Doppler a static point at that bearing would show given the current
// smoothed self-speed: ve = -selfSpeed*cos(azimuth). Comparing measured
// Doppler against Ve is what separates moving objects from the static
// background once ego-motion is known.
func CalculateVe(cloud PointCloud, selfSpeed float64) PointCloud {
	out := make(PointCloud, len(cloud))
	copy(out, cloud)
	for i := range out {
		out[i].Ve = -selfSpeed * math.Cos(out[i].Azimuth()*math.Pi/180)
	}
	return out
}

// FilterPointsWithVe keeps points whose measured Doppler deviates from
// their expected ego-motion Doppler by more than tolerance m/s. Points
// within tolerance move exactly as the static world does and are dropped
// as background; what survives is likely dynamic. Call CalculateVe first
// so Ve is populated.
func FilterPointsWithVe(cloud PointCloud, tolerance float64) PointCloud {
	out := make(PointCloud, 0, len(cloud))
	for _, p := range cloud {
		if math.Abs(p.Doppler-p.Ve) > tolerance {
			out = append(out, p)
		}
	}
	return out
}
