// Package debug provides a process-wide gated logger for diagnostic output
// that should stay silent unless a user explicitly asks for it.
package debug

import (
	"fmt"
	"os"
	"sync/atomic"
)

var enabled atomic.Bool

// SetEnabled turns debug logging on or off. Called once at startup from
// the PRIZM_DEBUG env var.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled reports whether debug logging is currently on.
func Enabled() bool {
	return enabled.Load()
}

// Logf writes a debug line to stderr if logging is enabled.
func Logf(format string, args ...interface{}) {
	if !enabled.Load() {
		return
	}
	fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
}

func init() {
	if os.Getenv("PRIZM_DEBUG") == "1" || os.Getenv("PRIZM_DEBUG") == "true" {
		enabled.Store(true)
	}
}
