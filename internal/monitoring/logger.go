// Package monitoring carries the package-level diagnostic logger used by the
// cache and session layers, where per-instance loggers would be noise.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf; tests and callers
// that want quiet caches can replace or mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
