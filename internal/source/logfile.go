// Package source provides the frame sources the pipeline runtime can consume:
// recorded log files, packet captures, a live UDP listener, and the sensor's
// serial data port. Recorded sources can restart their stream for replay.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-data/proximity.report/internal/mmwave"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
)

// logHeader is the first row of a frame log. Each following record holds a
// capture timestamp in unix milliseconds and the frame's raw bytes as
// comma-separated decimal values in a single quoted field.
var logHeader = []string{"timestamp_ms", "raw_data"}

// LogSource replays frames from a recorded log file. It implements
// pipeline.RewindableSource: Restart reopens the file from the top.
type LogSource struct {
	path   string
	period time.Duration

	file    *os.File
	reader  *csv.Reader
	sb      mmwave.StreamBuffer
	pending [][]byte
	row     int
	flushed bool
}

// NewLogSource opens a frame log for replay. A non-zero period paces the
// replay: each frame is delayed by that much, approximating the sensor's
// frame rate. Zero replays as fast as the consumer can process.
func NewLogSource(path string, period time.Duration) (*LogSource, error) {
	if !strings.HasSuffix(path, ".csv") {
		return nil, fmt.Errorf("unsupported log file extension (expected .csv): %s", path)
	}
	s := &LogSource{path: path, period: period}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LogSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	s.file = f
	s.reader = csv.NewReader(f)
	s.reader.FieldsPerRecord = -1
	s.sb = mmwave.StreamBuffer{}
	s.pending = nil
	s.row = 0
	s.flushed = false
	return nil
}

// NextFrame returns the next complete frame from the log, pacing by the
// configured period. Returns io.EOF when the log is exhausted.
func (s *LogSource) NextFrame(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		if err := s.readRecord(); err != nil {
			return nil, err
		}
	}

	if s.period > 0 {
		select {
		case <-time.After(s.period):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame, nil
}

// readRecord consumes one log row and pushes its bytes through the stream
// buffer. Bad rows are skipped with a warning, matching how the recorder's
// own log tooling treats them.
func (s *LogSource) readRecord() error {
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		if !s.flushed {
			s.flushed = true
			if tail := s.sb.Flush(); len(tail) > 0 {
				s.pending = append(s.pending, tail...)
				return nil
			}
		}
		return io.EOF
	}
	if err != nil {
		// Malformed CSV rows are recoverable; skip and continue
		s.row++
		log.Printf("log row %d unreadable, skipping: %v", s.row, err)
		return nil
	}
	s.row++

	// Header row
	if s.row == 1 && len(record) > 0 && record[0] == logHeader[0] {
		return nil
	}
	if len(record) < 2 || record[1] == "" {
		log.Printf("log row %d has no frame data, skipping", s.row)
		return nil
	}

	raw, err := parseByteList(record[1])
	if err != nil {
		log.Printf("log row %d undecodable, skipping: %v", s.row, err)
		return nil
	}
	s.pending = append(s.pending, s.sb.Push(raw)...)
	return nil
}

// Restart rewinds the log to the beginning.
func (s *LogSource) Restart(ctx context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.open()
}

// Close releases the underlying file.
func (s *LogSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// parseByteList decodes a comma-separated list of decimal byte values.
func parseByteList(field string) ([]byte, error) {
	parts := strings.Split(field, ",")
	raw := make([]byte, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad byte value %q: %w", p, err)
		}
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("byte value %d out of range", v)
		}
		raw = append(raw, byte(v))
	}
	return raw, nil
}

// LogRecorder appends raw frames to a log file in the replayable format.
type LogRecorder struct {
	file *os.File
	w    *csv.Writer
}

// NewLogRecorder creates (or truncates) a frame log at path and writes the
// header row.
func NewLogRecorder(path string) (*LogRecorder, error) {
	if !strings.HasSuffix(path, ".csv") {
		return nil, fmt.Errorf("unsupported log file extension (expected .csv): %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(logHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	return &LogRecorder{file: f, w: w}, nil
}

// RecordFrame appends one raw frame with the current time.
func (r *LogRecorder) RecordFrame(raw []byte) error {
	values := make([]string, len(raw))
	for i, b := range raw {
		values[i] = strconv.Itoa(int(b))
	}
	record := []string{
		strconv.FormatInt(time.Now().UnixMilli(), 10),
		strings.Join(values, ","),
	}
	if err := r.w.Write(record); err != nil {
		return fmt.Errorf("failed to write log record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (r *LogRecorder) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// RecordingSource wraps a FrameSource so every frame that flows to the
// pipeline is also appended to a log for later replay.
type RecordingSource struct {
	Source   pipeline.FrameSource
	Recorder *LogRecorder
}

// NextFrame reads from the wrapped source and records the frame. Recording
// failures are logged but do not interrupt the stream.
func (s *RecordingSource) NextFrame(ctx context.Context) ([]byte, error) {
	frame, err := s.Source.NextFrame(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordFrame(frame); err != nil {
		log.Printf("frame recording failed: %v", err)
	}
	return frame, nil
}
