package serialmux

import (
	"go.bug.st/serial"
)

// NewRealSerialMux opens the serial device at path with the given options
// and wraps it in a mux.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewSerialMux[serial.Port](port), nil
}

// NewConfigPortMux opens the sensor's configuration UART and wraps it in a
// mux. Command responses are line oriented and fan out to subscribers.
func NewConfigPortMux(path string) (*SerialMux[serial.Port], error) {
	return NewRealSerialMux(path, ConfigPortOptions())
}

// OpenDataPort opens the sensor's binary data UART directly. The data port
// carries TLV frames rather than lines, so it bypasses the mux; callers hand
// the port to a frame reassembler.
func OpenDataPort(path string) (serial.Port, error) {
	mode, err := DataPortOptions().SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}
