package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/prizm-dev/prizm/internal/daemon"
	"github.com/prizm-dev/prizm/internal/debug"
	"github.com/prizm-dev/prizm/internal/rpc"
	"golang.org/x/mod/semver"
)

// resolveScope returns the absolute scope root: --scope, or the current
// directory.
func resolveScope() (string, error) {
	root := flagScope
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve current directory: %w", err)
		}
	}
	return filepath.Abs(root)
}

// connectDaemon returns a connected client for scopeRoot's daemon,
// auto-starting a detached prizmd if none is currently listening (unless
// --no-daemon-spawn is set).
func connectDaemon(scopeRoot string) (*rpc.Client, error) {
	socketPath := rpc.ShortSocketPath(scopeRoot)

	client, err := rpc.TryConnectWithTimeout(socketPath, 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if client != nil {
		client.SetActor(flagActor)
		warnVersionSkew(client)
		return client, nil
	}

	if flagNoSpawn {
		return nil, fmt.Errorf("no daemon running for scope %s (--no-daemon-spawn set)", scopeRoot)
	}

	if err := spawnDaemon(scopeRoot); err != nil {
		return nil, fmt.Errorf("start daemon: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		client, err = rpc.TryConnectWithTimeout(socketPath, 300*time.Millisecond)
		if err != nil {
			return nil, err
		}
		if client != nil {
			client.SetActor(flagActor)
			return client, nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return nil, fmt.Errorf("daemon did not become ready for scope %s", scopeRoot)
}

// warnVersionSkew notes on stderr when a long-lived daemon predates the
// CLI build driving it — a stale prizmd keeps serving the old behavior
// until restarted, which otherwise surfaces as baffling bug reports.
func warnVersionSkew(client *rpc.Client) {
	status, err := client.Status()
	if err != nil {
		return
	}
	if semver.Major("v"+status.Version) != semver.Major("v"+rpc.ClientVersion) {
		fmt.Fprintf(os.Stderr, "warning: daemon version %s does not match client %s; restart the daemon after upgrading\n",
			status.Version, rpc.ClientVersion)
	}
}

// spawnDaemon launches prizmd detached from the current process, passing
// the scope root as PRIZM_SCOPE_ROOT. It does not touch the daemon
// registry: prizmd registers itself once its RPC server is ready.
func spawnDaemon(scopeRoot string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate prizm executable: %w", err)
	}
	daemonPath := filepath.Join(filepath.Dir(exe), "prizmd")
	if _, err := os.Stat(daemonPath); err != nil {
		// Fall back to $PATH lookup for a dev/test checkout where prizm
		// and prizmd aren't installed side by side.
		found, lookErr := exec.LookPath("prizmd")
		if lookErr != nil {
			return fmt.Errorf("locate prizmd: %w", err)
		}
		daemonPath = found
	}

	cmd := exec.Command(daemonPath, scopeRoot)
	cmd.Env = append(os.Environ(), "PRIZM_SCOPE_ROOT="+scopeRoot)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if err := detach(cmd); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn prizmd: %w", err)
	}
	debug.Logf("spawned prizmd pid=%d for scope=%s", cmd.Process.Pid, scopeRoot)
	return cmd.Process.Release()
}

// daemonInfo returns the live daemon for scopeRoot, if any, without
// spawning one.
func daemonInfo(scopeRoot string) (*daemon.Info, error) {
	return daemon.FindByScopeRoot(scopeRoot)
}
