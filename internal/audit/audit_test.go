package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	if _, err := log.Append(&Entry{ToolName: "prizm_document", Action: ActionCreate}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".prizm", FileName)); err != nil {
		t.Fatalf("expected audit file to exist: %v", err)
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	id, err := log.Append(&Entry{ToolName: "prizm_todo", Action: ActionUpdate})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	f, err := os.Open(log.Path())
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected a line in audit log")
	}
	var e Entry
	if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if e.ID != id {
		t.Errorf("id = %q, want %q", e.ID, id)
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if e.Result != ResultSuccess {
		t.Errorf("result = %q, want %q", e.Result, ResultSuccess)
	}
}

func TestAppendRequiresToolName(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	if _, err := log.Append(&Entry{Action: ActionRead}); err == nil {
		t.Fatal("expected error for missing tool name")
	}
}

func TestAppendIsOrderPreserving(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	names := []string{"prizm_document", "prizm_todo", "prizm_lock"}
	for _, n := range names {
		if _, err := log.Append(&Entry{ToolName: n, Action: ActionRead}); err != nil {
			t.Fatalf("Append(%s): %v", n, err)
		}
	}

	f, err := os.Open(log.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, e.ToolName)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d entries, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i] != n {
			t.Errorf("entry %d = %q, want %q", i, got[i], n)
		}
	}
}
