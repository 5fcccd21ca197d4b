package mmwave

// AggregateSubmap concatenates the point clouds of numFrames consecutive
// frame indices starting at startFrame, oldest first. Indices with no
// stored cloud are skipped; a submap over a gap is simply thinner, not an
// error. The input map is keyed by dense stream position, not by the
// sensor's own frame counter.
func AggregateSubmap(frames map[int]PointCloud, startFrame, numFrames int) PointCloud {
	var out PointCloud
	for i := 0; i < numFrames; i++ {
		cloud, ok := frames[startFrame+i]
		if !ok {
			continue
		}
		out = append(out, cloud...)
	}
	return out
}
