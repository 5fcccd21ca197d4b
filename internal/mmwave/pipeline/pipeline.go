// Package pipeline composes the mmwave processing stages into a stateful
// per-stream pipeline: aggregate, filter, estimate self-speed, smooth,
// separate moving points, cluster the submap window, and check the safety
// zone.
//
// This package is the composition root: it imports internal/mmwave and
// internal/config, and neither of those imports pipeline/. One Pipeline
// owns one stream; it is single-threaded by contract and does no locking.
// Hosts that process several sensor streams run one Pipeline per stream.
package pipeline

import (
	"fmt"

	"github.com/corvid-data/proximity.report/internal/config"
	"github.com/corvid-data/proximity.report/internal/mmwave"
)

// State is the pipeline's position in the rewind protocol. Forward is
// normal streaming. Resetting is entered by Rewind and lasts until the
// replay reaches the rewind target; results produced while Resetting carry
// Replay=true so sinks can skip re-publishing them.
type State int

const (
	StateForward State = iota
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateForward:
		return "forward"
	case StateResetting:
		return "resetting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FrameResult is everything one frame produced. Position is the dense
// 0-based index of successfully decoded frames, which is what rewind
// targets refer to; the sensor's own FrameNumber lives in Header.
type FrameResult struct {
	Position int
	Header   mmwave.FrameHeader
	Replay   bool

	Filtered mmwave.PointCloud // after SNR, Z and Phi stages
	Dynamic  mmwave.PointCloud // after the ve consistency filter

	RawSpeed    float64
	SmoothSpeed float64

	Clusters []mmwave.Cluster
	Warnings []mmwave.Warning
}

// Pipeline carries all cross-frame state: the aggregation window, the
// Kalman smoother, the self-speed histories, and the submap's recent
// per-frame clouds. All of it has one lifecycle: created here, cleared by
// Rewind, never shared.
type Pipeline struct {
	cfg  *config.PipelineConfig
	zone mmwave.SafetyZone

	agg *mmwave.FrameAggregator
	kf  *mmwave.KalmanFilter

	rawSpeeds    []float64
	smoothSpeeds []float64
	frameClouds  map[int]mmwave.PointCloud

	next        int
	state       State
	replayUntil int
}

// New builds a pipeline from the given tuning. A nil cfg uses defaults.
func New(cfg *config.PipelineConfig) *Pipeline {
	if cfg == nil {
		cfg = config.EmptyPipelineConfig()
	}
	return &Pipeline{
		cfg: cfg,
		zone: mmwave.SafetyZone{
			Center:      cfg.GetZoneCenter(),
			HalfExtents: cfg.GetZoneHalfExtents(),
		},
		agg:         mmwave.NewFrameAggregator(cfg.GetHistoryLength()),
		kf:          mmwave.NewKalmanFilter(cfg.GetProcessVariance(), cfg.GetMeasurementVariance()),
		frameClouds: make(map[int]mmwave.PointCloud),
	}
}

// Config returns the tuning the pipeline was built with.
func (p *Pipeline) Config() *config.PipelineConfig { return p.cfg }

// Zone returns the safety zone in effect.
func (p *Pipeline) Zone() mmwave.SafetyZone { return p.zone }

// State reports Forward or Resetting.
func (p *Pipeline) State() State { return p.state }

// Position returns the stream position the next frame will get.
func (p *Pipeline) Position() int { return p.next }

// SpeedHistories returns copies of the raw and smoothed self-speed series,
// one entry per processed frame.
func (p *Pipeline) SpeedHistories() (raw, smooth []float64) {
	raw = append([]float64(nil), p.rawSpeeds...)
	smooth = append([]float64(nil), p.smoothSpeeds...)
	return raw, smooth
}

// StepRaw decodes one frame's bytes and runs Step. A decode failure leaves
// every piece of pipeline state untouched: the frame contributes nothing
// to the aggregation window, does not advance the Kalman filter, and does
// not consume a stream position.
func (p *Pipeline) StepRaw(raw []byte) (*FrameResult, error) {
	frame, err := mmwave.DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	return p.Step(frame), nil
}

// Step runs one decoded frame through every stage and returns its result.
func (p *Pipeline) Step(frame *mmwave.Frame) *FrameResult {
	pos := p.next
	p.next++

	cloud := frame.DetectedPoints()

	// Densify, then cut low-quality, out-of-band and edge-of-pattern
	// points before any speed math sees them.
	p.agg.Add(cloud)
	filtered := mmwave.FilterSNRMin(p.agg.Points(), p.cfg.GetSNRMin())
	filtered = mmwave.FilterCartesianZ(filtered, p.cfg.GetZMin(), p.cfg.GetZMax())
	filtered = mmwave.FilterSphericalPhi(filtered, p.cfg.GetPhiMin(), p.cfg.GetPhiMax())

	rawSpeed := mmwave.EstimateSelfSpeed(filtered)
	smoothSpeed := p.kf.Update(rawSpeed)
	p.rawSpeeds = append(p.rawSpeeds, rawSpeed)
	p.smoothSpeeds = append(p.smoothSpeeds, smoothSpeed)

	withVe := mmwave.CalculateVe(filtered, smoothSpeed)
	dynamic := mmwave.FilterPointsWithVe(withVe, p.cfg.GetVeTolerance())

	// The submap path clusters the raw per-frame clouds over its own
	// window: intrusion detection cares about everything in the corridor,
	// static or not.
	window := p.cfg.GetSubmapFrames()
	p.frameClouds[pos] = cloud
	delete(p.frameClouds, pos-window)
	start := pos - window + 1
	if start < 0 {
		start = 0
	}
	submap := mmwave.AggregateSubmap(p.frameClouds, start, window)

	clusters := mmwave.ClusterPoints(submap, p.cfg.GetClusterEps(), p.cfg.GetClusterMinSamples())
	if p.cfg.GetRecluster() {
		clusters = mmwave.ReclusterTight(clusters, p.cfg.GetReclusterEps(), p.cfg.GetReclusterMinSamples())
	}
	warnings := mmwave.MonitorSafetyZone(clusters, p.zone)
	for _, w := range warnings {
		opsf("frame %d: cluster %d (priority %d, %d points, mean doppler %.2f m/s) inside safety zone",
			pos, w.ClusterID, w.Priority, w.PointCount, w.MeanDoppler)
	}

	result := &FrameResult{
		Position:    pos,
		Header:      frame.Header,
		Replay:      p.state == StateResetting,
		Filtered:    filtered,
		Dynamic:     dynamic,
		RawSpeed:    rawSpeed,
		SmoothSpeed: smoothSpeed,
		Clusters:    clusters,
		Warnings:    warnings,
	}

	if p.state == StateResetting && p.next > p.replayUntil {
		p.state = StateForward
		diagf("replay complete at position %d, back to forward streaming", pos)
	}

	tracef("frame %d: %d points in, %d filtered, %d dynamic, %d clusters, %d warnings, speed %.2f/%.2f m/s",
		pos, len(cloud), len(filtered), len(dynamic), len(clusters), len(warnings), rawSpeed, smoothSpeed)
	return result
}

// Rewind prepares re-simulation from frame zero up to and including
// target. Every piece of cross-frame state is cleared in one place; the
// caller must then replay the stream from its start, because estimator and
// smoother are functions of the whole prefix and partial replays would
// diverge. The pipeline stays in StateResetting until the replay passes
// target.
func (p *Pipeline) Rewind(target int) error {
	if target < 0 {
		return fmt.Errorf("rewind target must be >= 0, got %d", target)
	}
	p.agg.Clear()
	p.kf.Clear()
	p.rawSpeeds = p.rawSpeeds[:0]
	p.smoothSpeeds = p.smoothSpeeds[:0]
	p.frameClouds = make(map[int]mmwave.PointCloud)
	p.next = 0
	p.state = StateResetting
	p.replayUntil = target
	diagf("rewinding: state cleared, replaying stream to position %d", target)
	return nil
}
