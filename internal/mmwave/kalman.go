package mmwave

// Kalman initial state. Clear restores exactly these values, so a reset
// filter replays a measurement sequence bit for bit.
const (
	kalmanInitialEstimate   = 0.0
	kalmanInitialCovariance = 1.0
)

// KalmanFilter smooths the raw self-speed stream with a single-variable
// discrete Kalman filter. processVariance (Q) sets how fast the estimate
// may drift between frames, measurementVariance (R) how much each noisy
// measurement is trusted. Both are fixed at construction. The filter is
// deterministic: no hidden randomness, no time dependence.
type KalmanFilter struct {
	q float64 // process variance
	r float64 // measurement variance
	x float64 // current estimate
	p float64 // estimate error covariance
}

// NewKalmanFilter returns a filter with the given variances, ready for the
// first Update.
func NewKalmanFilter(processVariance, measurementVariance float64) *KalmanFilter {
	return &KalmanFilter{
		q: processVariance,
		r: measurementVariance,
		x: kalmanInitialEstimate,
		p: kalmanInitialCovariance,
	}
}

// Update folds one measurement into the estimate and returns the new
// smoothed value: predict (covariance grows by Q), then correct with gain
// p/(p+r).
func (k *KalmanFilter) Update(measurement float64) float64 {
	k.p += k.q
	gain := k.p / (k.p + k.r)
	k.x += gain * (measurement - k.x)
	k.p *= 1 - gain
	return k.x
}

// Estimate returns the current smoothed value without updating.
func (k *KalmanFilter) Estimate() float64 { return k.x }

// Covariance returns the current estimate error covariance.
func (k *KalmanFilter) Covariance() float64 { return k.p }

// Clear resets the filter to its pre-first-update state, discarding all
// history. Used when the pipeline rewinds and replays from frame zero.
func (k *KalmanFilter) Clear() {
	k.x = kalmanInitialEstimate
	k.p = kalmanInitialCovariance
}
