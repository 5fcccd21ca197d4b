package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/corvid-data/proximity.report/internal/mmwave"
)

// PCAPConfig configures capture replay behavior.
type PCAPConfig struct {
	// UDPPort restricts replay to packets with this source or destination
	// port. Zero replays every UDP packet in the capture.
	UDPPort int

	// SpeedMultiplier enables real-time pacing from capture timestamps
	// (1.0 = real-time, 2.0 = 2x speed, 0.5 = half speed). Zero replays
	// as fast as the consumer can process.
	SpeedMultiplier float64
}

// PCAPSource replays radar frames from a packet capture of the UDP stream.
// UDP payloads are reassembled into frames, so a frame split across
// datagrams still comes out whole. It implements pipeline.RewindableSource.
type PCAPSource struct {
	path   string
	config PCAPConfig

	file    *os.File
	packets *gopacket.PacketSource
	sb      mmwave.StreamBuffer
	pending [][]byte
	flushed bool

	lastCapture time.Time
	packetCount int
}

// NewPCAPSource opens a capture file for replay.
func NewPCAPSource(path string, config PCAPConfig) (*PCAPSource, error) {
	s := &PCAPSource{path: path, config: config}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PCAPSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", s.path, err)
	}
	reader, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read PCAP file %s: %w", s.path, err)
	}
	s.file = f
	s.packets = gopacket.NewPacketSource(reader, reader.LinkType())
	s.sb = mmwave.StreamBuffer{}
	s.pending = nil
	s.flushed = false
	s.lastCapture = time.Time{}
	s.packetCount = 0
	return nil
}

// NextFrame returns the next complete frame from the capture. Returns io.EOF
// when the capture is exhausted.
func (s *PCAPSource) NextFrame(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		if err := s.readPacket(ctx); err != nil {
			return nil, err
		}
	}
	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame, nil
}

// readPacket consumes one capture packet, pacing by capture timestamps when
// configured, and pushes its UDP payload through the stream buffer.
func (s *PCAPSource) readPacket(ctx context.Context) error {
	packet, err := s.packets.NextPacket()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Printf("PCAP read error after %d packets: %v", s.packetCount, err)
		}
		if !s.flushed {
			s.flushed = true
			if tail := s.sb.Flush(); len(tail) > 0 {
				s.pending = append(s.pending, tail...)
				return nil
			}
		}
		return io.EOF
	}

	s.packetCount++

	// Pace replay by the gap between capture timestamps
	captureTime := packet.Metadata().Timestamp
	if s.config.SpeedMultiplier > 0 {
		if !s.lastCapture.IsZero() {
			delay := captureTime.Sub(s.lastCapture)
			scaledDelay := time.Duration(float64(delay) / s.config.SpeedMultiplier)
			if scaledDelay > 0 {
				select {
				case <-time.After(scaledDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		s.lastCapture = captureTime
	}

	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil // Skip non-UDP packets
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil
	}
	if s.config.UDPPort != 0 &&
		int(udp.SrcPort) != s.config.UDPPort && int(udp.DstPort) != s.config.UDPPort {
		return nil
	}

	payload := udp.Payload
	if len(payload) == 0 {
		return nil
	}

	s.pending = append(s.pending, s.sb.Push(payload)...)

	if s.packetCount%10000 == 0 {
		log.Printf("PCAP progress: %d packets processed", s.packetCount)
	}
	return nil
}

// Restart rewinds the capture to the beginning.
func (s *PCAPSource) Restart(ctx context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.open()
}

// Close releases the underlying file.
func (s *PCAPSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
