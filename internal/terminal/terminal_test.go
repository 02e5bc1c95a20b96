package terminal

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecCapturesOutput(t *testing.T) {
	m := New()
	res, err := m.Exec(context.Background(), "s1", t.TempDir(), "echo hello", time.Second)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !strings.Contains(res.Output, "hello") {
		t.Fatalf("expected output to contain hello, got %q", res.Output)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if res.TimedOut {
		t.Fatalf("expected not timed out")
	}
}

func TestExecTimeout(t *testing.T) {
	m := New()
	res, err := m.Exec(context.Background(), "s1", t.TempDir(), "sleep 5", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !res.TimedOut {
		t.Fatalf("expected timeout")
	}
}

func TestStripANSI(t *testing.T) {
	in := "\x1b[31mred\x1b[0m plain"
	got := stripANSI(in)
	if got != "red plain" {
		t.Fatalf("stripANSI: got %q", got)
	}
}

func TestRingBufferTrims(t *testing.T) {
	r := newRing(16)
	r.Write([]byte("0123456789"))
	r.Write([]byte("abcdefghij"))
	if r.Len() != 16 {
		t.Fatalf("expected len 16, got %d", r.Len())
	}
	snap := r.Snapshot(r.Len())
	if string(snap) != "456789abcdefghij" {
		t.Fatalf("unexpected ring contents: %q", snap)
	}
}

func TestCloseOwnedBy(t *testing.T) {
	m := New()
	t1, err := m.StartInteractive("owner1", t.TempDir())
	if err != nil {
		t.Skipf("pty unavailable in this environment: %v", err)
	}
	defer m.Close(t1.ID)

	m.CloseOwnedBy("owner1")
	if m.Get(t1.ID) != nil {
		t.Fatalf("expected terminal to be torn down with its owner")
	}
}
