package mmwave

// Filter stages are pure functions selecting an order-preserving
// subsequence of the input cloud. They compose by plain sequential
// application; SNR-dependent stages must run while side info is still
// attached to the points.

// FilterSNRMin keeps points whose SNR is at least minSNR dB. Points that
// carry no side info are dropped: with no signal-quality data there is no
// basis for keeping them.
func FilterSNRMin(cloud PointCloud, minSNR float64) PointCloud {
	out := make(PointCloud, 0, len(cloud))
	for _, p := range cloud {
		if p.HasSideInfo && p.SNR >= minSNR {
			out = append(out, p)
		}
	}
	return out
}

// FilterCartesianZ keeps points with zMin <= Z <= zMax, both ends
// inclusive. Used to cut ground reflections below the mount height and
// far-field noise above it.
func FilterCartesianZ(cloud PointCloud, zMin, zMax float64) PointCloud {
	out := make(PointCloud, 0, len(cloud))
	for _, p := range cloud {
		if p.Z >= zMin && p.Z <= zMax {
			out = append(out, p)
		}
	}
	return out
}

// FilterSphericalPhi keeps points whose azimuth in degrees lies within
// [phiMin, phiMax], both ends inclusive. Detections at the extreme edge of
// the antenna pattern have unreliable angle estimates.
func FilterSphericalPhi(cloud PointCloud, phiMin, phiMax float64) PointCloud {
	out := make(PointCloud, 0, len(cloud))
	for _, p := range cloud {
		az := p.Azimuth()
		if az >= phiMin && az <= phiMax {
			out = append(out, p)
		}
	}
	return out
}
