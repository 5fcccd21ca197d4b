package mmwave

import (
	"io"
	"log"
	"sync"
)

// LogWriters names a destination for each of the package's logging
// streams.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	logMu   sync.RWMutex
	streams struct {
		ops, diag, trace *log.Logger
	}
)

// SetLogWriters swaps all three logging streams in one locked step. A nil
// writer silences that stream.
func SetLogWriters(w LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	streams.ops = newLogger(w.Ops)
	streams.diag = newLogger(w.Diag)
	streams.trace = newLogger(w.Trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[mmwave] ", log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream (actionable warnings, errors, lifecycle).
func Opsf(format string, args ...interface{}) {
	logMu.RLock()
	l := streams.ops
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream (decode warnings, tuning context).
func Diagf(format string, args ...interface{}) {
	logMu.RLock()
	l := streams.diag
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream (high-frequency frame telemetry).
func Tracef(format string, args ...interface{}) {
	logMu.RLock()
	l := streams.trace
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
