// Package monitoring carries the cross-cutting log hook shared by the
// request middleware, the result sinks, and the store. Packages with
// their own stream loggers (the pipeline) do not go through it.
package monitoring

import "log"

// noop discards the line; SetLogger(nil) installs it.
func noop(string, ...interface{}) {}

// Logf emits one diagnostic line. It defaults to log.Printf and is
// replaced wholesale by SetLogger: tests capture lines through it, muted
// deployments install the no-op. Replace it before the goroutines that
// log start; the variable itself is not synchronized.
var Logf = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}
