//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detach sets up cmd so the spawned prizmd survives this CLI process
// exiting: its own session, detached from the controlling terminal.
func detach(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return nil
}
