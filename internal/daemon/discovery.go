package daemon

import (
	"fmt"
	"os"
	"time"

	"github.com/prizm-dev/prizm/internal/rpc"
)

// Info describes one discovered daemon, live or not.
type Info struct {
	ScopeID       string
	ScopeRoot     string
	SocketPath    string
	PID           int
	Version       string
	UptimeSeconds float64
	Alive         bool
	Error         string
}

// Discover lists every daemon the registry currently believes is live,
// probing each over its Unix socket to confirm and enrich the status.
func Discover() ([]Info, error) {
	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}

	entries, err := registry.List()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, probe(e))
	}
	return infos, nil
}

// FindByScopeRoot finds the live daemon serving a scope root, if any.
func FindByScopeRoot(scopeRoot string) (*Info, error) {
	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}

	entry, err := registry.Find(ScopeID(scopeRoot))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no daemon found for scope: %s", scopeRoot)
	}

	info := probe(*entry)
	if !info.Alive {
		return nil, fmt.Errorf("no daemon found for scope: %s", scopeRoot)
	}
	return &info, nil
}

func probe(e Entry) Info {
	info := Info{
		ScopeID:    e.ScopeID,
		ScopeRoot:  e.ScopeRoot,
		SocketPath: e.SocketPath,
		PID:        e.PID,
		Version:    e.Version,
	}

	client, err := rpc.TryConnectWithTimeout(e.SocketPath, 500*time.Millisecond)
	if err != nil || client == nil {
		info.Error = fmt.Sprintf("failed to connect: %v", err)
		return info
	}
	defer func() { _ = client.Close() }()

	status, err := client.Status()
	if err != nil {
		info.Error = fmt.Sprintf("failed to get status: %v", err)
		return info
	}

	info.Alive = true
	info.UptimeSeconds = status.UptimeSeconds
	return info
}

// Stop gracefully stops a daemon via RPC, falling back to killing its
// process.
func Stop(info Info) error {
	if !info.Alive {
		return fmt.Errorf("daemon is not running")
	}

	client, err := rpc.TryConnectWithTimeout(info.SocketPath, 500*time.Millisecond)
	if err == nil && client != nil {
		defer func() { _ = client.Close() }()
		if err := client.Shutdown(); err == nil {
			time.Sleep(200 * time.Millisecond)
			return nil
		}
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return err
	}
	return proc.Kill()
}
