package scope

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
)

func TestOpenCreatesScopeConfig(t *testing.T) {
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()

	s, err := Open(root, locks, bus)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Config.ID == "" {
		t.Fatal("expected a generated scope id")
	}
	if s.Config.DataVersion != 3 {
		t.Fatalf("expected dataVersion migrated to 3, got %d", s.Config.DataVersion)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()

	s1, err := Open(root, locks, bus)
	if err != nil {
		t.Fatal(err)
	}
	id1 := s1.Config.ID
	s1.Close()

	s2, err := Open(root, locks, bus)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if s2.Config.ID != id1 {
		t.Fatalf("expected stable scope id across opens, got %q then %q", id1, s2.Config.ID)
	}
}

func TestOpenPreservesUnknownConfigKeys(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".prizm"), 0755); err != nil {
		t.Fatal(err)
	}
	raw := `{"id":"s1","dataVersion":3,"settings":{},"futureFeature":"keep-me"}`
	if err := os.WriteFile(filepath.Join(root, ".prizm", "scope.json"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	locks := lock.New()
	bus := events.New()

	s, err := Open(root, locks, bus)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, ok := s.Config.unknown["futureFeature"]; !ok {
		t.Fatal("expected unknown key to be tracked after open")
	}

	content, err := os.ReadFile(filepath.Join(root, ".prizm", "scope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "futureFeature") {
		t.Fatalf("expected rewrite to preserve unknown key, got %s", content)
	}
}
