package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"
	"testing"
)

// recorderT captures assertion failures instead of failing the real test.
type recorderT struct {
	errors []string
}

func (r *recorderT) Helper() {}

func (r *recorderT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)

	rec := &recorderT{}
	AssertStatusCode(rec, http.StatusOK, http.StatusBadRequest)
	if len(rec.errors) != 1 {
		t.Fatalf("recorded %d errors, want 1", len(rec.errors))
	}
	if want := "status code = 200, want 400"; rec.errors[0] != want {
		t.Errorf("recorded %q, want %q", rec.errors[0], want)
	}
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest("GET", "/test")
	if req.Method != "GET" {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/test" {
		t.Errorf("path = %s, want /test", req.URL.Path)
	}
}

func TestNewTestRecorder(t *testing.T) {
	t.Parallel()

	rec := NewTestRecorder()
	if rec == nil {
		t.Fatal("recorder is nil")
	}
}

func TestBuildRadarFrame(t *testing.T) {
	t.Parallel()

	points := PointPayload([][4]float32{{1, 2, 3, -0.5}})
	side := SideInfoPayload([][2]uint16{{150, 80}})
	frame := BuildRadarFrame(42, 1,
		TLVSpec{Type: 1, Payload: points},
		TLVSpec{Type: 7, Payload: side},
	)

	if !bytes.HasPrefix(frame, MagicBytes) {
		t.Fatal("frame does not start with magic word")
	}

	wantTotal := 40 + 8 + len(points) + 8 + len(side)
	if len(frame) != wantTotal {
		t.Errorf("frame length = %d, want %d", len(frame), wantTotal)
	}
	if got := binary.LittleEndian.Uint32(frame[12:16]); got != uint32(wantTotal) {
		t.Errorf("TotalPacketLength = %d, want %d", got, wantTotal)
	}
	if got := binary.LittleEndian.Uint32(frame[20:24]); got != 42 {
		t.Errorf("FrameNumber = %d, want 42", got)
	}
	if got := binary.LittleEndian.Uint32(frame[32:36]); got != 2 {
		t.Errorf("NumTLVs = %d, want 2", got)
	}
}

func TestPointPayloadSize(t *testing.T) {
	t.Parallel()

	payload := PointPayload([][4]float32{{1, 1, 1, 1}, {2, 2, 2, 2}, {3, 3, 3, 3}})
	if len(payload) != 48 {
		t.Errorf("payload size = %d, want 48", len(payload))
	}
}

func TestSideInfoPayloadSize(t *testing.T) {
	t.Parallel()

	payload := SideInfoPayload([][2]uint16{{100, 50}, {200, 60}})
	if len(payload) != 8 {
		t.Errorf("payload size = %d, want 8", len(payload))
	}
}
