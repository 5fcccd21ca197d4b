package mmwave

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/corvid-data/proximity.report/internal/testutil"
)

func TestStreamBufferBackToBackFrames(t *testing.T) {
	f1 := testutil.BuildRadarFrame(1, 1,
		testutil.TLVSpec{Type: 1, Payload: testutil.PointPayload([][4]float32{{1, 2, 0, 0}})},
	)
	f2 := testutil.BuildRadarFrame(2, 0)

	var sb StreamBuffer
	frames := sb.Push(append(append([]byte{}, f1...), f2...))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], f1) || !bytes.Equal(frames[1], f2) {
		t.Error("frame bytes do not match input")
	}
	if sb.Dropped() != 0 {
		t.Errorf("dropped %d bytes from a clean stream", sb.Dropped())
	}
}

func TestStreamBufferDropsLeadingGarbage(t *testing.T) {
	f := testutil.BuildRadarFrame(3, 0)
	garbage := bytes.Repeat([]byte{0xFF}, 25)

	var sb StreamBuffer
	frames := sb.Push(append(append([]byte{}, garbage...), f...))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], f) {
		t.Error("frame bytes corrupted by garbage prefix")
	}
	if sb.Dropped() != int64(len(garbage)) {
		t.Errorf("Dropped() = %d, want %d", sb.Dropped(), len(garbage))
	}
}

func TestStreamBufferChunkedDelivery(t *testing.T) {
	f := testutil.BuildRadarFrame(4, 1,
		testutil.TLVSpec{Type: 1, Payload: testutil.PointPayload([][4]float32{{0, 5, 0, 1}})},
	)

	var sb StreamBuffer
	var frames [][]byte
	for i := 0; i < len(f); i += 7 {
		end := i + 7
		if end > len(f) {
			end = len(f)
		}
		frames = append(frames, sb.Push(f[i:end])...)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames across chunked pushes, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], f) {
		t.Error("reassembled frame does not match input")
	}
}

func TestStreamBufferMagicSplitAcrossChunks(t *testing.T) {
	f := testutil.BuildRadarFrame(5, 0)
	garbage := bytes.Repeat([]byte{0xFF}, 10)

	var sb StreamBuffer
	first := append(append([]byte{}, garbage...), f[:3]...)
	if frames := sb.Push(first); len(frames) != 0 {
		t.Fatalf("got %d frames from partial magic, want 0", len(frames))
	}
	frames := sb.Push(f[3:])
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], f) {
		t.Error("frame corrupted when magic word straddled a chunk boundary")
	}
	if sb.Dropped() != int64(len(garbage)) {
		t.Errorf("Dropped() = %d, want %d", sb.Dropped(), len(garbage))
	}
}

func TestStreamBufferImplausibleLength(t *testing.T) {
	bad := testutil.BuildRadarFrame(6, 0)
	binary.LittleEndian.PutUint32(bad[12:16], 0) // corrupt length field
	good := testutil.BuildRadarFrame(7, 0)

	var sb StreamBuffer
	frames := sb.Push(append(append([]byte{}, bad...), good...))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], bad) {
		t.Error("corrupt frame not cut at the next magic word")
	}
	if !bytes.Equal(frames[1], good) {
		t.Error("frame after the corrupt one was lost")
	}
}

func TestStreamBufferOverstatedLength(t *testing.T) {
	// Length field claims 20 bytes beyond the real frame end. The magic word
	// of the following frame marks the true boundary.
	f1 := testutil.BuildRadarFrame(8, 0)
	binary.LittleEndian.PutUint32(f1[12:16], uint32(len(f1)+20))
	f2 := testutil.BuildRadarFrame(9, 0)

	var sb StreamBuffer
	frames := sb.Push(append(append([]byte{}, f1...), f2...))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], f1) {
		t.Error("overstated frame not cut at the next magic word")
	}
	if !bytes.Equal(frames[1], f2) {
		t.Error("frame after the overstated one was lost")
	}
}

func TestStreamBufferFlush(t *testing.T) {
	f := testutil.BuildRadarFrame(10, 0)
	binary.LittleEndian.PutUint32(f[12:16], uint32(len(f)+8))

	var sb StreamBuffer
	if frames := sb.Push(f); len(frames) != 0 {
		t.Fatalf("got %d frames before flush, want 0", len(frames))
	}
	frames := sb.Flush()
	if len(frames) != 1 {
		t.Fatalf("Flush returned %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], f) {
		t.Error("flushed frame does not match buffered bytes")
	}
	if again := sb.Flush(); len(again) != 0 {
		t.Errorf("second Flush returned %d frames, want 0", len(again))
	}
}

func TestStreamBufferFlushTooShort(t *testing.T) {
	var sb StreamBuffer
	sb.Push(magicBytes)
	if frames := sb.Flush(); frames != nil {
		t.Errorf("Flush of a bare magic word = %v, want nil", frames)
	}
}

func TestFramerReadsStream(t *testing.T) {
	f1 := testutil.BuildRadarFrame(1, 0)
	f2 := testutil.BuildRadarFrame(2, 1,
		testutil.TLVSpec{Type: 1, Payload: testutil.PointPayload([][4]float32{{1, 1, 0, 0}})},
	)
	f3 := testutil.BuildRadarFrame(3, 0)

	var stream []byte
	stream = append(stream, bytes.Repeat([]byte{0xAA}, 11)...)
	stream = append(stream, f1...)
	stream = append(stream, f2...)
	stream = append(stream, f3...)

	fr := NewFramer(bytes.NewReader(stream))
	for i, want := range [][]byte{f1, f2, f3} {
		got, err := fr.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d bytes mismatch", i)
		}
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Errorf("after last frame, err = %v, want io.EOF", err)
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Errorf("repeated Next after EOF, err = %v, want io.EOF", err)
	}
}
