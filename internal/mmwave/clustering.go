package mmwave

import "math"

// Clustering defaults. Eps matches the sensor's point spacing at the
// ranges the safety zone covers; the tight second-level eps splits
// neighboring objects merged by the first pass.
const (
	DefaultClusterEps        = 1.0
	DefaultClusterMinSamples = 2
	DefaultReclusterEps      = 0.4
	DefaultReclusterMin      = 2

	// minClusterSize discards clusters the density criterion accepted but
	// which are still too small to act on.
	minClusterSize = 3

	// Priority thresholds by member count.
	priority3MinPoints = 10
	priority2MinPoints = 5

	// estimatedPointsPerCell sizes the spatial index map.
	estimatedPointsPerCell = 4
)

// Cluster is one detected object: a group of submap points dense enough to
// be real. Priority ranks attention by size: 3 for >=10 points, 2 for 5-9,
// 1 below that. IDs are ordinals assigned per invocation; nothing links a
// cluster to the "same" object in the previous call.
type Cluster struct {
	ID          int
	CentroidX   float64
	CentroidY   float64
	CentroidZ   float64
	MeanDoppler float64
	Priority    int
	Points      PointCloud
}

// Size returns the number of member points.
func (c *Cluster) Size() int { return len(c.Points) }

// cellIndex is a regular-grid spatial index over (x,y,z) for neighbor
// queries. Cell size matches the DBSCAN eps so a 3x3x3 cell neighborhood
// covers every candidate within eps.
type cellIndex struct {
	cellSize float64
	grid     map[int64][]int
}

func newCellIndex(cloud PointCloud, cellSize float64) *cellIndex {
	ci := &cellIndex{
		cellSize: cellSize,
		grid:     make(map[int64][]int, len(cloud)/estimatedPointsPerCell+1),
	}
	for i, p := range cloud {
		key := ci.key(ci.cell(p.X), ci.cell(p.Y), ci.cell(p.Z))
		ci.grid[key] = append(ci.grid[key], i)
	}
	return ci
}

func (ci *cellIndex) cell(v float64) int64 {
	return int64(math.Floor(v / ci.cellSize))
}

// key maps a signed 3-D cell coordinate to a single map key: zigzag each
// axis to non-negative, then chain Szudzik's pairing function twice.
func (ci *cellIndex) key(cx, cy, cz int64) int64 {
	return szudzik(szudzik(zigzag(cx), zigzag(cy)), zigzag(cz))
}

func zigzag(v int64) int64 {
	if v >= 0 {
		return 2 * v
	}
	return -2*v - 1
}

func szudzik(a, b int64) int64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// regionQuery returns indices of all points within eps of cloud[idx],
// including idx itself. Distance is Euclidean over (x,y,z) only; Doppler
// plays no part in the metric.
func (ci *cellIndex) regionQuery(cloud PointCloud, idx int, eps float64) []int {
	p := cloud[idx]
	eps2 := eps * eps
	cx, cy, cz := ci.cell(p.X), ci.cell(p.Y), ci.cell(p.Z)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, cand := range ci.grid[ci.key(cx+dx, cy+dy, cz+dz)] {
					q := cloud[cand]
					ddx := q.X - p.X
					ddy := q.Y - p.Y
					ddz := q.Z - p.Z
					if ddx*ddx+ddy*ddy+ddz*ddz <= eps2 {
						neighbors = append(neighbors, cand)
					}
				}
			}
		}
	}
	return neighbors
}

// ClusterPoints groups a submap cloud into objects with DBSCAN over
// (x,y,z). Noise points belong to no cluster; clusters smaller than three
// points are discarded even when the density criterion accepted them.
// Empty input or non-positive eps yields an empty result, never a panic.
// Output order and ids are deterministic for a given input order.
func ClusterPoints(cloud PointCloud, eps float64, minSamples int) []Cluster {
	if len(cloud) == 0 || eps <= 0 {
		return nil
	}
	if minSamples < 1 {
		minSamples = 1
	}

	// labels: 0=unvisited, -1=noise, >0=cluster id
	labels := make([]int, len(cloud))
	clusterID := 0

	index := newCellIndex(cloud, eps)
	for i := range cloud {
		if labels[i] != 0 {
			continue
		}
		neighbors := index.regionQuery(cloud, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = -1
			continue
		}
		clusterID++
		expandCluster(cloud, index, labels, i, neighbors, clusterID, eps, minSamples)
	}

	return buildClusters(cloud, labels, clusterID)
}

// expandCluster grows cluster clusterID outward from a core point,
// queue-style: border points join, core points also contribute their own
// neighborhoods.
func expandCluster(cloud PointCloud, index *cellIndex, labels []int,
	seed int, neighbors []int, clusterID int, eps float64, minSamples int) {

	labels[seed] = clusterID
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == -1 {
			labels[idx] = clusterID // noise becomes a border point
		}
		if labels[idx] != 0 {
			continue
		}
		labels[idx] = clusterID

		more := index.regionQuery(cloud, idx, eps)
		if len(more) >= minSamples {
			neighbors = append(neighbors, more...)
		}
	}
}

// buildClusters materializes labeled points into Cluster values, dropping
// undersized groups and renumbering ids densely from 1.
func buildClusters(cloud PointCloud, labels []int, maxClusterID int) []Cluster {
	clusters := make([]Cluster, 0, maxClusterID)
	for cid := 1; cid <= maxClusterID; cid++ {
		var members PointCloud
		for i, label := range labels {
			if label == cid {
				members = append(members, cloud[i])
			}
		}
		if len(members) < minClusterSize {
			continue
		}

		c := Cluster{
			ID:       len(clusters) + 1,
			Priority: priorityForSize(len(members)),
			Points:   members,
		}
		var sx, sy, sz, sd float64
		for _, p := range members {
			sx += p.X
			sy += p.Y
			sz += p.Z
			sd += p.Doppler
		}
		n := float64(len(members))
		c.CentroidX = sx / n
		c.CentroidY = sy / n
		c.CentroidZ = sz / n
		c.MeanDoppler = sd / n
		clusters = append(clusters, c)
	}
	return clusters
}

func priorityForSize(n int) int {
	switch {
	case n >= priority3MinPoints:
		return 3
	case n >= priority2MinPoints:
		return 2
	}
	return 1
}

// ReclusterTight re-runs clustering over the union of all first-level
// cluster members with a tighter eps, splitting objects the coarse pass
// merged. Noise and undersized groups drop out again; the usual priority
// rules apply to the result.
func ReclusterTight(clusters []Cluster, eps float64, minSamples int) []Cluster {
	var union PointCloud
	for _, c := range clusters {
		union = append(union, c.Points...)
	}
	return ClusterPoints(union, eps, minSamples)
}
