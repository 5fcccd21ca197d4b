package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for dev mode without hardware.
type MockSerialPort struct {
	io.Reader
	writeMu sync.Mutex
	written bytes.Buffer
	closed  bool
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.closed {
		return 0, errors.New("mock serial port closed")
	}
	return m.written.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.closed = true
	return nil
}

// Written returns everything sent to the mock port so far.
func (m *MockSerialPort) Written() []byte {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// NewMockSerialMux creates a SerialMux backed by a mock config port that
// emits the given line every half second, simulating a chatty device. Lines
// written to the port are captured in memory.
func NewMockSerialMux(mockLine []byte) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()

	mockPort := &MockSerialPort{Reader: r}

	// generate data periodically to simulate serial port input
	go func() {
		defer w.Close()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(mockLine); err != nil {
				return
			}
		}
	}()

	return NewSerialMux(mockPort)
}

// TestableSerialPort is an in-memory SerialPorter for tests, shared across
// packages that need a mux over an inspectable port. Reads behave like a
// real UART: they block until AddReadData seeds bytes, and return io.EOF
// once the port is closed.
type TestableSerialPort struct {
	mu       sync.Mutex
	dataRead sync.Cond

	readBuf  bytes.Buffer
	writeBuf bytes.Buffer

	// WriteError, when set, fails every subsequent Write.
	WriteError error

	// Closed reports whether Close was called.
	Closed bool
}

// NewTestableSerialPort returns an open port with empty buffers.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{}
	tsp.dataRead.L = &tsp.mu
	return tsp
}

// Read blocks until seeded data is available or the port closes.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.Closed && t.readBuf.Len() == 0 {
		t.dataRead.Wait()
	}
	if t.Closed {
		return 0, io.EOF
	}
	return t.readBuf.Read(p)
}

// Write captures p, or fails with WriteError when one is set.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		return 0, t.WriteError
	}
	return t.writeBuf.Write(p)
}

// Close marks the port closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.dataRead.Broadcast()
	return nil
}

// AddReadData seeds bytes for subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.readBuf.Write(data)
	t.dataRead.Broadcast()
}

// GetWrittenData returns everything written to the port so far.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.writeBuf.Bytes()...)
}
