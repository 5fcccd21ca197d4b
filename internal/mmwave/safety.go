package mmwave

// SafetyZone is a static axis-aligned box in sensor coordinates. Immutable
// during a run; changing the zone means restarting the pipeline.
type SafetyZone struct {
	Center      [3]float64
	HalfExtents [3]float64
}

// DefaultSafetyZone covers the corridor directly ahead of the platform:
// 2m wide, 9m deep starting at the bumper, 2m tall centered on the sensor.
func DefaultSafetyZone() SafetyZone {
	return SafetyZone{
		Center:      [3]float64{0, 2, 0},
		HalfExtents: [3]float64{1, 4.5, 1},
	}
}

// Contains reports whether the point lies inside the box on all three
// axes, boundaries inclusive.
func (z SafetyZone) Contains(p Point) bool {
	return p.X >= z.Center[0]-z.HalfExtents[0] && p.X <= z.Center[0]+z.HalfExtents[0] &&
		p.Y >= z.Center[1]-z.HalfExtents[1] && p.Y <= z.Center[1]+z.HalfExtents[1] &&
		p.Z >= z.Center[2]-z.HalfExtents[2] && p.Z <= z.Center[2]+z.HalfExtents[2]
}

// Warning reports one cluster intruding into the safety zone.
type Warning struct {
	ClusterID   int
	Priority    int
	MeanDoppler float64
	PointCount  int
	CentroidX   float64
	CentroidY   float64
	CentroidZ   float64
}

// MonitorSafetyZone checks every cluster against the zone and returns one
// warning per intruding cluster: a cluster intrudes when any member point
// lies inside the box. The check is stateless and re-evaluated on every
// call; a cluster that stays inside the zone warns again on the next call.
func MonitorSafetyZone(clusters []Cluster, zone SafetyZone) []Warning {
	var warnings []Warning
	for _, c := range clusters {
		for _, p := range c.Points {
			if zone.Contains(p) {
				warnings = append(warnings, Warning{
					ClusterID:   c.ID,
					Priority:    c.Priority,
					MeanDoppler: c.MeanDoppler,
					PointCount:  len(c.Points),
					CentroidX:   c.CentroidX,
					CentroidY:   c.CentroidY,
					CentroidZ:   c.CentroidZ,
				})
				break
			}
		}
	}
	return warnings
}
