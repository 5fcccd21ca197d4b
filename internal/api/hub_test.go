package api

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corvid-data/proximity.report/internal/mmwave"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testFrameResult(position int) *pipeline.FrameResult {
	return &pipeline.FrameResult{
		Position:    position,
		Header:      mmwave.FrameHeader{FrameNumber: uint32(position + 1)},
		RawSpeed:    1.0,
		SmoothSpeed: 2.0,
		Filtered: mmwave.PointCloud{
			{X: 0.5, Y: 8, Z: 0.5, Doppler: -1.4, SNR: 15},
		},
	}
}

func TestHubConsumeWithoutViewers(t *testing.T) {
	hub := NewHub("mph")

	// No Run goroutine: with zero viewers ConsumeResult must not touch the
	// broadcast channel at all.
	for i := 0; i < 100; i++ {
		if err := hub.ConsumeResult(context.Background(), testFrameResult(i)); err != nil {
			t.Fatalf("ConsumeResult: %v", err)
		}
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
	if hub.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", hub.Dropped())
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub("kmph")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "viewer registration", func() bool { return hub.ClientCount() == 1 })

	if err := hub.ConsumeResult(ctx, testFrameResult(7)); err != nil {
		t.Fatalf("ConsumeResult: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload FramePayload
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if payload.Position != 7 {
		t.Errorf("position = %d, want 7", payload.Position)
	}
	if payload.Units != "kmph" {
		t.Errorf("units = %q, want kmph", payload.Units)
	}
	if math.Abs(payload.SmoothSpeed-7.2) > 1e-9 {
		t.Errorf("smooth_speed = %f, want 7.2", payload.SmoothSpeed)
	}
	if len(payload.Points) != 1 {
		t.Errorf("points = %d, want 1", len(payload.Points))
	}

	conn.Close()
	waitFor(t, "viewer removal", func() bool { return hub.ClientCount() == 0 })
}

func TestHubShutdownClosesViewers(t *testing.T) {
	hub := NewHub("mps")
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "viewer registration", func() bool { return hub.ClientCount() == 1 })

	cancel()
	waitFor(t, "shutdown", func() bool { return hub.ClientCount() == 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub shutdown")
	}
}

func TestHubDropsWhenSaturated(t *testing.T) {
	hub := NewHub("mps")

	// Pretend a viewer is connected without running the fan-out loop, so
	// the broadcast buffer fills and the overflow is dropped.
	hub.mu.Lock()
	hub.connCount = 1
	hub.mu.Unlock()

	for i := 0; i < 10; i++ {
		if err := hub.ConsumeResult(context.Background(), testFrameResult(i)); err != nil {
			t.Fatalf("ConsumeResult: %v", err)
		}
	}

	if got := hub.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
}

func TestHandleWebSocketRejectsPlainRequest(t *testing.T) {
	hub := NewHub("mps")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	hub.HandleWebSocket(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
