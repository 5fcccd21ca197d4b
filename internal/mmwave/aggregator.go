package mmwave

// FrameAggregator keeps a sliding window of the most recent point clouds so
// sparse single-frame detections can be densified before filtering. The
// window holds historyLength past clouds plus the current one; adding past
// capacity evicts the oldest. Single-writer, single-reader: a pipeline owns
// its aggregator and no locking happens here.
type FrameAggregator struct {
	clouds []PointCloud
	head   int // next write position
	size   int
}

// NewFrameAggregator returns an aggregator windowing historyLength past
// frames plus the current frame. historyLength 0 means only the current
// frame; negative values are treated as 0. Capacity is fixed for the life
// of the aggregator.
func NewFrameAggregator(historyLength int) *FrameAggregator {
	if historyLength < 0 {
		historyLength = 0
	}
	return &FrameAggregator{
		clouds: make([]PointCloud, historyLength+1),
	}
}

// Add appends the latest cloud, evicting the oldest when the window is
// full. The aggregator keeps the slice; callers must not mutate it after
// handing it over.
func (a *FrameAggregator) Add(cloud PointCloud) {
	a.clouds[a.head] = cloud
	a.head = (a.head + 1) % len(a.clouds)
	if a.size < len(a.clouds) {
		a.size++
	}
}

// Points returns the concatenation of all buffered clouds, oldest first.
// Points are not deduplicated; the same target seen in several frames
// appears several times, which is what densification wants.
func (a *FrameAggregator) Points() PointCloud {
	total := 0
	for i := 0; i < a.size; i++ {
		total += len(a.at(i))
	}
	out := make(PointCloud, 0, total)
	for i := 0; i < a.size; i++ {
		out = append(out, a.at(i)...)
	}
	return out
}

// Len reports how many clouds are currently buffered.
func (a *FrameAggregator) Len() int { return a.size }

// Capacity reports the fixed window size (historyLength+1).
func (a *FrameAggregator) Capacity() int { return len(a.clouds) }

// Clear empties the window, restoring the state right after construction.
func (a *FrameAggregator) Clear() {
	for i := range a.clouds {
		a.clouds[i] = nil
	}
	a.head = 0
	a.size = 0
}

// at returns the i-th buffered cloud, 0 = oldest.
func (a *FrameAggregator) at(i int) PointCloud {
	idx := (a.head - a.size + i + len(a.clouds)) % len(a.clouds)
	return a.clouds[idx]
}
