package mmwave

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// cosFloor excludes points whose bearing is so close to +/-90 degrees that
// dividing by cos(azimuth) would blow up.
const cosFloor = 1e-6

// EstimateSelfSpeed derives the platform's forward speed from one filtered
// cloud. For a static world seen from a moving sensor every background
// point obeys doppler = -v*cos(azimuth), so v falls out of a least-squares
// fit of doppler against cos(azimuth) through the origin. Moving targets
// violate the relation and act as outliers; the aggregated multi-frame
// cloud keeps them a small minority.
//
// An empty or degenerate cloud yields 0. The estimate is unsmoothed and
// noisy frame to frame; feed it through the Kalman smoother.
func EstimateSelfSpeed(cloud PointCloud) float64 {
	cosAz := make([]float64, 0, len(cloud))
	doppler := make([]float64, 0, len(cloud))
	for _, p := range cloud {
		c := math.Cos(p.Azimuth() * math.Pi / 180)
		if math.Abs(c) < cosFloor {
			continue
		}
		cosAz = append(cosAz, c)
		doppler = append(doppler, p.Doppler)
	}
	if len(cosAz) == 0 {
		return 0
	}

	_, beta := stat.LinearRegression(cosAz, doppler, nil, true)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return -beta
}
