package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corvid-data/proximity.report/internal/mmwave"
	"github.com/corvid-data/proximity.report/internal/serialmux"
)

// maxProfileSize bounds sensor profile reads.
const maxProfileSize = 256 * 1024

// StreamSource adapts a raw byte stream into a frame source. The sensor's
// binary data UART is the primary user; any io.ReadCloser carrying the frame
// stream works, including recorded binary dumps.
type StreamSource struct {
	framer *mmwave.Framer
	closer io.Closer
}

// NewStreamSource wraps an open byte stream.
func NewStreamSource(rc io.ReadCloser) *StreamSource {
	return &StreamSource{framer: mmwave.NewFramer(rc), closer: rc}
}

// NewSerialSource opens the sensor's data UART at path. The config UART is
// separate; bring the sensor up through serialmux before expecting frames.
func NewSerialSource(path string) (*StreamSource, error) {
	port, err := serialmux.OpenDataPort(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data port %s: %w", path, err)
	}
	return NewStreamSource(port), nil
}

// NextFrame returns the next complete frame from the stream. The underlying
// read blocks; closing the source unblocks a pending read after the context
// is canceled.
func (s *StreamSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.framer.Next()
}

// Close closes the underlying stream.
func (s *StreamSource) Close() error {
	return s.closer.Close()
}

// LoadConfigCommands reads a sensor profile (.cfg) and returns its lines for
// serialmux.Configure. Comment and blank lines are kept; Configure skips
// them, and keeping them makes the loaded profile inspectable as written.
func LoadConfigCommands(path string) ([]string, error) {
	if !strings.HasSuffix(path, ".cfg") {
		return nil, fmt.Errorf("unsupported profile extension (expected .cfg): %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat profile: %w", err)
	}
	if info.Size() > maxProfileSize {
		return nil, fmt.Errorf("profile too large: %d bytes (max %d)", info.Size(), maxProfileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return lines, nil
}
