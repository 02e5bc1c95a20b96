package versions

import (
	"strings"
	"testing"

	"github.com/prizm-dev/prizm/internal/mdstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(mdstore.New(t.TempDir()))
}

func TestSaveVersionAppendsOnChange(t *testing.T) {
	s := newTestStore(t)

	v1, err := s.SaveVersion("d1", "Hello", "line1\nline2", "user:alice", "")
	if err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if v1.Version != 1 {
		t.Fatalf("expected version 1, got %d", v1.Version)
	}

	v2, err := s.SaveVersion("d1", "Hello", "line1\nline2\nline3", "user:alice", "")
	if err != nil {
		t.Fatalf("save v2: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}

	hist, err := s.GetVersionHistory("d1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 1 || hist[1].Version != 2 {
		t.Fatalf("expected versions in order, got %v, %v", hist[0].Version, hist[1].Version)
	}
	if hist[1].Body != "line1\nline2\nline3" {
		t.Fatalf("unexpected body: %q", hist[1].Body)
	}
}

func TestSaveVersionIdempotentOnSameContent(t *testing.T) {
	s := newTestStore(t)

	content := "line1\nline2\nline3"
	if _, err := s.SaveVersion("d1", "Hello", "line1\nline2", "", ""); err != nil {
		t.Fatal(err)
	}
	v2, err := s.SaveVersion("d1", "Hello", content, "", "")
	if err != nil {
		t.Fatal(err)
	}
	v2Again, err := s.SaveVersion("d1", "Hello", content, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if v2Again.Version != v2.Version {
		t.Fatalf("expected version unchanged at %d, got %d", v2.Version, v2Again.Version)
	}

	hist, err := s.GetVersionHistory("d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected version count to stay at 2, got %d", len(hist))
	}
}

func TestComputeDiff(t *testing.T) {
	v1 := "line1\nline2"
	v2 := "line1\nline2\nline3"

	diff := ComputeDiff(v1, v2)
	for _, marker := range []string{"新增", "line3", "变更统计"} {
		if !strings.Contains(diff, marker) {
			t.Fatalf("diff missing expected marker %q: %q", marker, diff)
		}
	}

	if got := ComputeDiff(v1, v1); got != "无显著变更" {
		t.Fatalf("expected no-change marker, got %q", got)
	}
}
