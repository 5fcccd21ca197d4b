package pipeline

import (
	"io"
	"log"
)

var streams struct {
	ops, diag, trace *log.Logger
}

// SetLogWriters points the pipeline package's three logging streams at the
// given writers. A nil writer silences that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.ops = newLogger(ops)
	streams.diag = newLogger(diag)
	streams.trace = newLogger(trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[pipeline] ", log.LstdFlags|log.Lmicroseconds)
}

// opsf logs to the ops stream (safety warnings, data loss, lifecycle).
func opsf(format string, args ...interface{}) {
	if l := streams.ops; l != nil {
		l.Printf(format, args...)
	}
}

// diagf logs to the diag stream (rewind protocol, tuning context).
func diagf(format string, args ...interface{}) {
	if l := streams.diag; l != nil {
		l.Printf(format, args...)
	}
}

// tracef logs to the trace stream (per-frame telemetry).
func tracef(format string, args ...interface{}) {
	if l := streams.trace; l != nil {
		l.Printf(format, args...)
	}
}
