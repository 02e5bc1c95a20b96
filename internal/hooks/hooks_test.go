package hooks

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeExecutableHook(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write hook: %v", err)
	}
	return path
}

func TestHookExists(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit check is unix-specific")
	}
	dir := t.TempDir()
	r := NewRunner(dir)

	if r.HookExists(EventCreate) {
		t.Fatal("expected no hook before one is written")
	}

	writeExecutableHook(t, dir, HookOnCreate, "#!/bin/sh\nexit 0\n")

	if !r.HookExists(EventCreate) {
		t.Fatal("expected hook to exist after writing it")
	}
}

func TestHookExistsIgnoresNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit check is unix-specific")
	}
	dir := t.TempDir()
	r := NewRunner(dir)

	path := filepath.Join(dir, HookOnUpdate)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0644); err != nil {
		t.Fatalf("write hook: %v", err)
	}

	if r.HookExists(EventUpdate) {
		t.Fatal("expected non-executable hook to be ignored")
	}
}

func TestRunSyncExecutesHook(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script hooks are unix-specific in this test")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	writeExecutableHook(t, dir, HookOnDelete, "#!/bin/sh\ntouch \""+marker+"\"\n")

	r := NewRunner(dir)
	if err := r.RunSync(EventDelete, Payload{ResourceType: "document", ResourceID: "d1"}); err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected hook to have run: %v", err)
	}
}

func TestRunSyncMissingHookIsNoop(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(dir)
	if err := r.RunSync(EventLockChanged, Payload{ResourceType: "document", ResourceID: "d1"}); err != nil {
		t.Fatalf("expected no error for missing hook, got %v", err)
	}
}

func TestRunIsAsync(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script hooks are unix-specific in this test")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	writeExecutableHook(t, dir, HookOnCreate, "#!/bin/sh\nsleep 0.1\ntouch \""+marker+"\"\n")

	r := NewRunner(dir)
	r.Run(EventCreate, Payload{ResourceType: "document", ResourceID: "d1"})

	if _, err := os.Stat(marker); err == nil {
		t.Fatal("expected hook not to have completed yet (Run is async)")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected async hook to eventually complete")
}
