package serialmux

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// PortOptions describes the serial connection parameters used when opening a
// real serial port. The zero value normalizes to the config UART's 115200 8N1.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// ConfigPortOptions returns the parameters for the sensor's configuration
// UART. The IWR6843 CLI listens at 115200 8N1.
func ConfigPortOptions() PortOptions {
	return PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
}

// DataPortOptions returns the parameters for the sensor's binary data UART,
// which streams TLV frames at 921600 8N1.
func DataPortOptions() PortOptions {
	return PortOptions{BaudRate: 921600, DataBits: 8, StopBits: 1, Parity: "N"}
}

// Normalize fills unset fields with config-UART defaults and reduces
// parity to its single-letter form.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("data bits %d: want 5 through 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("stop bits %d: want 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	if parity == "" {
		parity = "N"
	}

	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("parity %q: want N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// Equal reports whether both options would open the port identically after
// normalization. Options that fail to normalize are never equal.
func (o PortOptions) Equal(other PortOptions) bool {
	a, errA := o.Normalize()
	b, errB := other.Normalize()
	if errA != nil || errB != nil {
		return false
	}

	return a.BaudRate == b.BaudRate &&
		a.DataBits == b.DataBits &&
		a.StopBits == b.StopBits &&
		a.Parity == b.Parity
}

// Library constants for each normalized stop-bit and parity value. The
// stop-bit enum is positional, so the integer count cannot be cast
// directly.
var (
	stopBitModes = map[int]serial.StopBits{
		1: serial.OneStopBit,
		2: serial.TwoStopBits,
	}
	parityModes = map[string]serial.Parity{
		"N": serial.NoParity,
		"E": serial.EvenParity,
		"O": serial.OddParity,
	}
)

// SerialMode converts the port options into the serial.Mode structure
// required by go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	// Normalize only lets mapped values through.
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: stopBitModes[opts.StopBits],
		Parity:   parityModes[opts.Parity],
	}, nil
}
