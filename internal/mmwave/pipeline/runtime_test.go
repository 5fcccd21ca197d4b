package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
)

// sliceSource replays recorded frames and supports Restart.
type sliceSource struct {
	frames   [][]byte
	i        int
	restarts int
}

func (s *sliceSource) NextFrame(ctx context.Context) ([]byte, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

func (s *sliceSource) Restart(ctx context.Context) error {
	s.i = 0
	s.restarts++
	return nil
}

// liveSource cannot restart, like a real sensor.
type liveSource struct {
	frames [][]byte
	i      int
}

func (s *liveSource) NextFrame(ctx context.Context) ([]byte, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

// recordingSink keeps every result it sees.
type recordingSink struct {
	results []*FrameResult
	fail    error
}

func (s *recordingSink) ConsumeResult(ctx context.Context, res *FrameResult) error {
	s.results = append(s.results, res)
	return s.fail
}

func TestRuntimeRunToEOF(t *testing.T) {
	frames := forwardScene(5)
	frames = append(frames, []byte{0xDE, 0xAD}) // undecodable tail
	src := &sliceSource{frames: frames}

	sink := &recordingSink{}
	rt := NewRuntime(New(nil), sink)

	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := rt.Snapshot()
	if stats.FramesProcessed != 5 {
		t.Errorf("FramesProcessed = %d, want 5", stats.FramesProcessed)
	}
	if stats.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", stats.DecodeErrors)
	}
	if stats.Position != 5 {
		t.Errorf("Position = %d, want 5", stats.Position)
	}
	if stats.State != "forward" {
		t.Errorf("State = %q, want forward", stats.State)
	}

	if len(sink.results) != 5 {
		t.Fatalf("sink saw %d results, want 5", len(sink.results))
	}
	for i, res := range sink.results {
		if res.Position != i {
			t.Errorf("result %d has position %d", i, res.Position)
		}
	}

	latest := rt.Latest()
	if latest == nil || latest.Position != 4 {
		t.Errorf("Latest() = %+v, want position 4", latest)
	}
}

func TestRuntimeLatestBeforeFirstFrame(t *testing.T) {
	rt := NewRuntime(New(nil))
	if rt.Latest() != nil {
		t.Error("Latest() non-nil before any frame")
	}
}

func TestRuntimeRewindReplays(t *testing.T) {
	frames := forwardScene(5)
	src := &sliceSource{frames: frames}
	sink := &recordingSink{}
	rt := NewRuntime(New(nil), sink)

	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := rt.RequestRewind(2); err != nil {
		t.Fatalf("RequestRewind: %v", err)
	}
	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if src.restarts != 1 {
		t.Errorf("source restarted %d times, want 1", src.restarts)
	}
	if len(sink.results) != 10 {
		t.Fatalf("sink saw %d results, want 5 + 5 replayed", len(sink.results))
	}

	replayed := sink.results[5:]
	wantReplay := []bool{true, true, true, false, false}
	for i, res := range replayed {
		if res.Position != i {
			t.Errorf("replayed result %d has position %d", i, res.Position)
		}
		if res.Replay != wantReplay[i] {
			t.Errorf("replayed result %d Replay = %v, want %v", i, res.Replay, wantReplay[i])
		}
	}

	if rt.Pipeline().State() != StateForward {
		t.Errorf("pipeline state %v after replay, want forward", rt.Pipeline().State())
	}
}

func TestRuntimeRewindPendingRejected(t *testing.T) {
	rt := NewRuntime(New(nil))
	if err := rt.RequestRewind(3); err != nil {
		t.Fatalf("first RequestRewind: %v", err)
	}
	if err := rt.RequestRewind(5); err == nil {
		t.Error("second RequestRewind accepted while one is pending")
	}
	if err := rt.RequestRewind(-1); err == nil {
		t.Error("negative rewind target accepted")
	}
}

func TestRuntimeRewindRefusedOnLiveSource(t *testing.T) {
	frames := forwardScene(3)
	src := &liveSource{frames: frames}
	rt := NewRuntime(New(nil))

	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := rt.RequestRewind(1); err != nil {
		t.Fatalf("RequestRewind: %v", err)
	}
	// The request is consumed but refused; the pipeline keeps its state.
	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if got := rt.Pipeline().Position(); got != 3 {
		t.Errorf("Position() = %d after refused rewind, want 3", got)
	}
	if rt.Pipeline().State() != StateForward {
		t.Error("pipeline left forward state on a refused rewind")
	}
}

func TestRuntimeSinkErrorsDoNotStopStream(t *testing.T) {
	frames := forwardScene(4)
	src := &sliceSource{frames: frames}
	sink := &recordingSink{fail: errors.New("sink down")}
	rt := NewRuntime(New(nil), sink)

	if err := rt.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := rt.Snapshot()
	if stats.FramesProcessed != 4 {
		t.Errorf("FramesProcessed = %d, want 4", stats.FramesProcessed)
	}
	if stats.SinkErrors != 4 {
		t.Errorf("SinkErrors = %d, want 4", stats.SinkErrors)
	}
	if len(sink.results) != 4 {
		t.Errorf("failing sink still must see all results, got %d", len(sink.results))
	}
}

func TestRuntimeContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := NewRuntime(New(nil))
	err := rt.Run(ctx, &sliceSource{frames: forwardScene(2)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run on canceled context = %v, want context.Canceled", err)
	}
}

func TestRuntimeSourceErrorWrapped(t *testing.T) {
	rt := NewRuntime(New(nil))
	src := &failingSource{err: errors.New("serial port gone")}
	err := rt.Run(context.Background(), src)
	if err == nil || !errors.Is(err, src.err) {
		t.Errorf("Run = %v, want wrapped source error", err)
	}
}

type failingSource struct{ err error }

func (s *failingSource) NextFrame(ctx context.Context) ([]byte, error) {
	return nil, s.err
}
