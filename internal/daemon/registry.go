// Package daemon tracks the set of prizmd processes running on this
// machine, one per open scope, in a shared registry file.
package daemon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Entry is one daemon's record in the registry.
type Entry struct {
	ScopeID    string    `json:"scope_id"`
	ScopeRoot  string    `json:"scope_root"`
	SocketPath string    `json:"socket_path"`
	PID        int       `json:"pid"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
}

// ScopeID derives the stable registry key for a scope root: a scope is a
// physical directory, so its registry identity is a hash of the resolved
// absolute path.
func ScopeID(scopeRoot string) string {
	abs, err := filepath.Abs(scopeRoot)
	if err != nil {
		abs = scopeRoot
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:16]
}

// Registry manages ~/.prizm/registry.json, the process-wide map of live
// per-scope daemons.
type Registry struct {
	path     string
	lockPath string
	mu       sync.Mutex // in-process mutex; cross-process uses the file lock
}

// NewRegistry opens (creating if absent) the registry under the user's
// home directory.
func NewRegistry() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(home, ".prizm")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}, nil
}

func (r *Registry) withFileLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fl := flock.New(r.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire registry lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

func (r *Registry) readEntriesLocked() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	if len(trimSpace(data)) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupted registry just means daemons need rediscovering.
		return []Entry{}, nil
	}
	return entries, nil
}

func (r *Registry) writeEntriesLocked(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "registry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp registry file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp registry file: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp registry file: %w", err)
	}
	return nil
}

// Register adds or replaces a daemon's entry, keyed by scope id.
func (r *Registry) Register(entry Entry) error {
	return r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}

		filtered := entries[:0:0]
		for _, e := range entries {
			if e.ScopeID != entry.ScopeID && e.PID != entry.PID {
				filtered = append(filtered, e)
			}
		}
		filtered = append(filtered, entry)

		return r.writeEntriesLocked(filtered)
	})
}

// Unregister removes a scope's daemon entry.
func (r *Registry) Unregister(scopeID string, pid int) error {
	return r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}

		filtered := entries[:0:0]
		for _, e := range entries {
			if e.ScopeID != scopeID && e.PID != pid {
				filtered = append(filtered, e)
			}
		}
		return r.writeEntriesLocked(filtered)
	})
}

// List returns every live daemon, reaping stale (dead-process) entries as
// a side effect.
func (r *Registry) List() ([]Entry, error) {
	var live []Entry

	err := r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}

		var alive []Entry
		for _, e := range entries {
			if isProcessAlive(e.PID) {
				alive = append(alive, e)
			}
		}

		if len(alive) != len(entries) {
			if err := r.writeEntriesLocked(alive); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to clean up stale registry entries: %v\n", err)
			}
		}

		live = alive
		return nil
	})

	return live, err
}

// Find returns the registered daemon for a scope, if any live one exists.
func (r *Registry) Find(scopeID string) (*Entry, error) {
	entries, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ScopeID == scopeID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

// Clear removes every entry (for tests).
func (r *Registry) Clear() error {
	return r.withFileLock(func() error {
		return r.writeEntriesLocked([]Entry{})
	})
}

func trimSpace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != 0 && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			out = append(out, c)
		}
	}
	return out
}
