//go:build unix

package daemon

import (
	"os"
	"syscall"
)

// isProcessAlive reports whether pid names a running process, by sending
// the null signal.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
