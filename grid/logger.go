package grid

import (
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...interface{})

var logger atomic.Pointer[logFunc]

// Logf is where every log line of this package goes: mapper diagnostics,
// replay, MQTT, publisher and websocket hub. It defaults to log.Printf.
func Logf(format string, v ...interface{}) {
	if f := logger.Load(); f != nil {
		(*f)(format, v...)
		return
	}
	log.Printf(format, v...)
}

// SetLogger redirects Logf. nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	lf := logFunc(f)
	logger.Store(&lf)
}
