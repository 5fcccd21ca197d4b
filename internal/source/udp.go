package source

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/corvid-data/proximity.report/internal/mmwave"
)

// readDeadline bounds each socket read so the listener can notice context
// cancellation between datagrams.
const readDeadline = 100 * time.Millisecond

// UDPConfig configures the live UDP listener.
type UDPConfig struct {
	// Address is the listen address, e.g. ":6843".
	Address string

	// RcvBuf is the socket receive buffer size in bytes. Zero keeps the
	// system default.
	RcvBuf int

	// Forwarder mirrors every received datagram to a downstream address
	// for capture. Optional.
	Forwarder *PacketForwarder
}

// UDPSource receives the radar byte stream over UDP and reassembles complete
// frames. It is a live source: the stream cannot be restarted.
type UDPSource struct {
	conn      *net.UDPConn
	forwarder *PacketForwarder
	sb        mmwave.StreamBuffer
	pending   [][]byte
	buffer    []byte
	packets   int
}

// NewUDPSource starts listening on the configured address.
func NewUDPSource(config UDPConfig) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP address: %w", err)
	}

	if config.RcvBuf > 0 {
		if err := conn.SetReadBuffer(config.RcvBuf); err != nil {
			log.Printf("Warning: Failed to set UDP receive buffer size to %d: %v", config.RcvBuf, err)
		}
	}

	log.Printf("UDP listener started on %s", conn.LocalAddr())

	return &UDPSource{
		conn:      conn,
		forwarder: config.Forwarder,
		// One datagram can carry at most one full frame plus change
		buffer: make([]byte, 65536),
	}, nil
}

// NextFrame blocks until a complete frame has been received. Returns the
// context's error on cancellation.
func (s *UDPSource) NextFrame(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Bounded read so context cancellation is noticed promptly
		s.conn.SetReadDeadline(time.Now().Add(readDeadline))

		n, _, err := s.conn.ReadFromUDP(s.buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("UDP read error: %w", err)
		}
		if n == 0 {
			continue
		}

		datagram := s.buffer[:n]
		if s.forwarder != nil {
			s.forwarder.ForwardAsync(datagram)
		}
		s.pending = append(s.pending, s.sb.Push(datagram)...)

		s.packets++
		if s.packets%10000 == 0 {
			log.Printf("UDP progress: %d datagrams received, %d garbage bytes dropped",
				s.packets, s.sb.Dropped())
		}
	}

	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame, nil
}

// Addr returns the bound listen address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close closes the UDP socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// PacketForwarder handles asynchronous forwarding of UDP packets to another
// address. It provides non-blocking forwarding with drop tracking so a slow
// or unreachable destination never stalls the receive path.
type PacketForwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	dropped     atomic.Int64
	logInterval time.Duration
	address     string
}

// NewPacketForwarder creates a forwarder that sends packets to the specified
// address.
func NewPacketForwarder(addr string, port int, logInterval time.Duration) (*PacketForwarder, error) {
	forwardAddress := fmt.Sprintf("%s:%d", addr, port)
	forwardUDPAddr, err := net.ResolveUDPAddr("udp", forwardAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, forwardUDPAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	if logInterval <= 0 {
		logInterval = time.Minute
	}

	return &PacketForwarder{
		conn:        conn,
		channel:     make(chan []byte, 1000), // Buffer 1000 packets
		logInterval: logInterval,
		address:     forwardAddress,
	}, nil
}

// Start begins the forwarding goroutine that drains the channel. Dropped
// packets are reported at the configured interval.
func (f *PacketForwarder) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case packet := <-f.channel:
				if _, err := f.conn.Write(packet); err != nil {
					f.dropped.Add(1)
				}
			case <-ticker.C:
				if n := f.dropped.Swap(0); n > 0 {
					log.Printf("\033[93mDropped %d forwarded packets\033[0m", n)
				}
			}
		}
	}()

	log.Printf("Forwarding packets to %s", f.address)
}

// ForwardAsync queues a packet for forwarding without blocking. If the
// forwarding buffer is full the packet is dropped.
func (f *PacketForwarder) ForwardAsync(packet []byte) {
	// Copy so the caller can reuse its receive buffer
	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case f.channel <- packetCopy:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns the number of packets dropped since the last interval log.
func (f *PacketForwarder) Dropped() int64 {
	return f.dropped.Load()
}

// Close closes the forwarding connection.
func (f *PacketForwarder) Close() error {
	return f.conn.Close()
}
