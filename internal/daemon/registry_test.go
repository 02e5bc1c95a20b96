package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}
}

func liveEntry(scopeID string) Entry {
	return Entry{
		ScopeID:    scopeID,
		ScopeRoot:  "/ws/" + scopeID,
		SocketPath: "/tmp/" + scopeID + ".sock",
		PID:        os.Getpid(),
		Version:    "test",
		StartedAt:  time.Now(),
	}
}

func TestScopeIDIsStableAndPathDerived(t *testing.T) {
	a := ScopeID("/some/workspace")
	b := ScopeID("/some/workspace")
	c := ScopeID("/other/workspace")

	if a != b {
		t.Fatalf("ScopeID not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("distinct roots must not collide")
	}
	if len(a) != 16 {
		t.Fatalf("ScopeID length = %d", len(a))
	}
}

func TestRegisterFindUnregister(t *testing.T) {
	r := newTestRegistry(t)

	e := liveEntry("scope-a")
	if err := r.Register(e); err != nil {
		t.Fatalf("Register: %v", err)
	}

	found, err := r.Find("scope-a")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found == nil || found.SocketPath != e.SocketPath {
		t.Fatalf("found = %+v", found)
	}

	if err := r.Unregister("scope-a", e.PID); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	found, err = r.Find("scope-a")
	if err != nil {
		t.Fatalf("Find after unregister: %v", err)
	}
	if found != nil {
		t.Fatalf("entry should be gone, got %+v", found)
	}
}

func TestRegisterReplacesSameScope(t *testing.T) {
	r := newTestRegistry(t)

	first := liveEntry("scope-a")
	first.Version = "old"
	if err := r.Register(first); err != nil {
		t.Fatal(err)
	}

	second := liveEntry("scope-a")
	second.Version = "new"
	if err := r.Register(second); err != nil {
		t.Fatal(err)
	}

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Version != "new" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestListReapsDeadProcesses(t *testing.T) {
	r := newTestRegistry(t)

	dead := liveEntry("scope-dead")
	dead.PID = 999999999 // out of pid range everywhere we run
	if err := r.Register(dead); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(liveEntry("scope-live")); err != nil {
		t.Fatal(err)
	}

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ScopeID != "scope-live" {
		t.Fatalf("entries = %+v", entries)
	}

	// The reap persisted: a direct re-read shows only the live entry.
	entries, err = r.readEntriesLocked()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("reap did not persist: %+v", entries)
	}
}

func TestCorruptRegistryFileIsTreatedAsEmpty(t *testing.T) {
	r := newTestRegistry(t)
	if err := os.WriteFile(r.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v", entries)
	}

	// And registration recovers the file.
	if err := r.Register(liveEntry("scope-a")); err != nil {
		t.Fatalf("Register over corrupt file: %v", err)
	}
}
