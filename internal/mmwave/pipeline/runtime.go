package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FrameSource yields successive raw frame buffers, one complete frame per
// call. Returns io.EOF when the stream is exhausted.
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// RewindableSource is a FrameSource that can restart its stream from the
// beginning. Recorded sources (log files, captures) implement it; a live
// sensor cannot.
type RewindableSource interface {
	FrameSource
	Restart(ctx context.Context) error
}

// ResultSink consumes each frame's outputs. Sinks run on the pipeline
// goroutine and should hand work off quickly; a sink error is logged and
// does not stop the stream.
type ResultSink interface {
	ConsumeResult(ctx context.Context, res *FrameResult) error
}

// Stats counts what the runtime has seen since start.
type Stats struct {
	FramesProcessed int64
	DecodeErrors    int64
	SinkErrors      int64
	Position        int
	State           string
}

// Runtime drives one Pipeline from one FrameSource and fans results out to
// sinks. It is the single place where pipeline state crosses goroutines:
// the run loop mutates the Pipeline under the mutex, everything else reads
// snapshots through the same mutex.
type Runtime struct {
	pipeline *Pipeline
	sinks    []ResultSink

	rewind chan int

	mu     sync.Mutex
	latest *FrameResult
	stats  Stats
}

// NewRuntime wires a pipeline to its sinks.
func NewRuntime(p *Pipeline, sinks ...ResultSink) *Runtime {
	return &Runtime{
		pipeline: p,
		sinks:    sinks,
		rewind:   make(chan int, 1),
	}
}

// Pipeline exposes the underlying pipeline. Only the run loop may call its
// mutating methods.
func (r *Runtime) Pipeline() *Pipeline { return r.pipeline }

// Latest returns the most recent frame result, or nil before the first
// frame.
func (r *Runtime) Latest() *FrameResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Snapshot returns current counters.
func (r *Runtime) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Position = r.pipeline.Position()
	s.State = r.pipeline.State().String()
	return s
}

// SpeedHistories returns copies of the pipeline's raw and smoothed speed
// series. Safe to call while the run loop is processing.
func (r *Runtime) SpeedHistories() (raw, smooth []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline.SpeedHistories()
}

// RequestRewind asks the run loop to rewind and replay up to target. The
// request is picked up before the next frame; a second request while one
// is pending is rejected.
func (r *Runtime) RequestRewind(target int) error {
	if target < 0 {
		return fmt.Errorf("rewind target must be >= 0, got %d", target)
	}
	select {
	case r.rewind <- target:
		return nil
	default:
		return errors.New("rewind already pending")
	}
}

// Run pumps frames until the source ends, the context is canceled, or the
// source fails. A decode failure skips that frame and continues; rewind
// requests are honored between frames when the source supports them.
func (r *Runtime) Run(ctx context.Context, src FrameSource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target := <-r.rewind:
			r.handleRewind(ctx, src, target)
		default:
		}

		raw, err := src.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				opsf("frame source ended after %d frames", r.pipeline.Position())
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("frame source: %w", err)
		}
		r.processFrame(ctx, raw)
	}
}

func (r *Runtime) handleRewind(ctx context.Context, src FrameSource, target int) {
	rs, ok := src.(RewindableSource)
	if !ok {
		opsf("rewind to %d refused: source cannot restart", target)
		return
	}
	if err := rs.Restart(ctx); err != nil {
		opsf("rewind to %d failed restarting source: %v", target, err)
		return
	}
	r.mu.Lock()
	err := r.pipeline.Rewind(target)
	if err == nil {
		r.latest = nil
	}
	r.mu.Unlock()
	if err != nil {
		opsf("rewind refused: %v", err)
	}
}

func (r *Runtime) processFrame(ctx context.Context, raw []byte) {
	r.mu.Lock()
	res, err := r.pipeline.StepRaw(raw)
	if err != nil {
		r.stats.DecodeErrors++
		r.mu.Unlock()
		opsf("skipping frame: %v", err)
		return
	}
	r.latest = res
	r.stats.FramesProcessed++
	r.mu.Unlock()

	for _, sink := range r.sinks {
		if err := sink.ConsumeResult(ctx, res); err != nil {
			r.mu.Lock()
			r.stats.SinkErrors++
			r.mu.Unlock()
			opsf("sink %T failed on frame %d: %v", sink, res.Position, err)
		}
	}
}
