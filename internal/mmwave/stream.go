package mmwave

import (
	"bytes"
	"encoding/binary"
	"io"
)

// MagicWord is the 8-byte frame delimiter read as a little-endian uint64.
const MagicWord uint64 = 0x0708050603040102

// magicBytes is the delimiter as it appears on the wire.
var magicBytes = []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x08, 0x07}

const (
	// maxFrameLen bounds a plausible TotalPacketLength. Frames larger than
	// this are treated as corrupt and re-framed at the next magic word.
	maxFrameLen = 1 << 16

	// maxBuffered bounds the reassembly buffer. If no frame boundary shows
	// up within this much data the stream is garbage and the buffer is cut
	// back to the most recent possible delimiter.
	maxBuffered = 1 << 20
)

// StreamBuffer reassembles frames from an unbounded byte stream. Data
// arrives in arbitrary chunks (serial reads, UDP payloads); Push returns
// every complete frame that can be cut from the buffered data. A frame is
// delimited by the magic word and sized by the header's TotalPacketLength;
// when the length field is implausible the frame is cut at the next magic
// word instead, so one corrupt frame cannot desynchronize the stream.
//
// The zero value is ready to use.
type StreamBuffer struct {
	buf     []byte
	dropped int64 // garbage bytes discarded before frame boundaries
}

// Push appends data to the buffer and returns all complete frames now
// available, in stream order. Returned slices are copies and remain valid
// after subsequent calls.
func (s *StreamBuffer) Push(data []byte) [][]byte {
	s.buf = append(s.buf, data...)

	var frames [][]byte
	for {
		frame, ok := s.next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}

	if len(s.buf) > maxBuffered {
		// No boundary in sight. Keep only the tail that could still begin
		// with a partial magic word.
		s.dropped += int64(len(s.buf) - len(magicBytes))
		Opsf("stream: no frame boundary in %d bytes, resynchronizing (dropped %d total)", maxBuffered, s.dropped)
		s.buf = append(s.buf[:0], s.buf[len(s.buf)-len(magicBytes):]...)
	}
	return frames
}

// Flush returns whatever complete-looking frame remains buffered. Call once
// at end of stream: a capture file's final frame has no following magic
// word to delimit it.
func (s *StreamBuffer) Flush() [][]byte {
	s.align()
	if len(s.buf) < frameHeaderSize {
		s.buf = nil
		return nil
	}
	frame := make([]byte, len(s.buf))
	copy(frame, s.buf)
	s.buf = nil
	return [][]byte{frame}
}

// Dropped reports how many garbage bytes were discarded so far.
func (s *StreamBuffer) Dropped() int64 { return s.dropped }

// align discards data before the first magic word, keeping a tail shorter
// than the delimiter in case it is a split prefix.
func (s *StreamBuffer) align() {
	i := bytes.Index(s.buf, magicBytes)
	if i == 0 {
		return
	}
	if i < 0 {
		keep := len(s.buf)
		if keep > len(magicBytes)-1 {
			keep = len(magicBytes) - 1
		}
		s.dropped += int64(len(s.buf) - keep)
		s.buf = append(s.buf[:0], s.buf[len(s.buf)-keep:]...)
		return
	}
	s.dropped += int64(i)
	s.buf = append(s.buf[:0], s.buf[i:]...)
}

// next cuts one complete frame off the front of the buffer.
func (s *StreamBuffer) next() ([]byte, bool) {
	s.align()
	if len(s.buf) < frameHeaderSize {
		return nil, false
	}

	total := int(binary.LittleEndian.Uint32(s.buf[12:16]))
	if total >= frameHeaderSize && total <= maxFrameLen {
		// A magic word before the declared end means the length field lied;
		// cut there so the next frame survives.
		if j := bytes.Index(s.buf[len(magicBytes):min(total, len(s.buf))], magicBytes); j >= 0 {
			return s.cut(j + len(magicBytes)), true
		}
		if len(s.buf) < total {
			return nil, false
		}
		return s.cut(total), true
	}

	// Implausible length: fall back to splitting at the next magic word.
	j := bytes.Index(s.buf[len(magicBytes):], magicBytes)
	if j < 0 {
		return nil, false
	}
	return s.cut(j + len(magicBytes)), true
}

func (s *StreamBuffer) cut(n int) []byte {
	frame := make([]byte, n)
	copy(frame, s.buf[:n])
	s.buf = append(s.buf[:0], s.buf[n:]...)
	return frame
}

// Framer yields one frame at a time from an io.Reader carrying the raw
// sensor stream (a serial data port, a recorded dump). Next blocks on the
// underlying Read; cancel by closing the reader.
type Framer struct {
	r       io.Reader
	sb      StreamBuffer
	pending [][]byte
	readBuf []byte
	eof     bool
}

// NewFramer returns a Framer reading from r.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r, readBuf: make([]byte, 4096)}
}

// Next returns the next complete frame, or io.EOF when the stream is
// exhausted. Read errors other than EOF are returned as is; frames decoded
// from data before the error are not lost.
func (f *Framer) Next() ([]byte, error) {
	for {
		if len(f.pending) > 0 {
			frame := f.pending[0]
			f.pending = f.pending[1:]
			return frame, nil
		}
		if f.eof {
			return nil, io.EOF
		}

		n, err := f.r.Read(f.readBuf)
		if n > 0 {
			f.pending = f.sb.Push(f.readBuf[:n])
		}
		if err != nil {
			if err == io.EOF {
				f.eof = true
				f.pending = append(f.pending, f.sb.Flush()...)
				continue
			}
			return nil, err
		}
	}
}
