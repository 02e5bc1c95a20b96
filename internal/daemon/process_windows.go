//go:build windows

package daemon

import "os"

// isProcessAlive reports whether pid names a running process. Windows
// lacks a null-signal probe; FindProcess succeeding is the best available
// signal short of opening a handle with PROCESS_QUERY_INFORMATION.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
