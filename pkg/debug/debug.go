// Package debug provides conditional debug logging for netinv.
//
// Debug logging is enabled by setting the NI_DEBUG environment variable:
//
//	NI_DEBUG=1 ni --file hosts.yaml
//
// Messages go to stderr with a timestamp. When disabled (the default) every
// function returns immediately.
//
// Usage:
//
//	debug.Log("execute %s at %s", cmd.Description(), loc)
//	defer debug.LogEnterExit("session.Reload")()
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[NI_DEBUG] "

var (
	// enabled is true when NI_DEBUG is set
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("NI_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled switches debug logging on or off at runtime.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, mainly for tests.
func SetOutput(w io.Writer) {
	if logger == nil {
		logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
		return
	}
	logger.SetOutput(w)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs entry immediately and exit (with elapsed time) when the
// returned function runs:
//
//	defer debug.LogEnterExit("Paste")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Assert panics when cond is false. It only checks while debug is enabled.
func Assert(cond bool, msg string) {
	if !enabled {
		return
	}
	if !cond {
		logger.Printf("ASSERTION FAILED: %s", msg)
		panic(fmt.Sprintf("debug assertion failed: %s", msg))
	}
}
