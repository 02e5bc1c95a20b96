package metadatacache

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListFindsUserMarkdownFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes", "hello.md"), "# hi")
	writeFile(t, filepath.Join(root, ".prizm", "scope.json"), "{}")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "readme.md"), "ignored")
	writeFile(t, filepath.Join(root, "notes.txt"), "not markdown")

	c := New(root, nil)
	entries, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].RelativePath != "notes/hello.md" {
		t.Errorf("unexpected relative path: %s", entries[0].RelativePath)
	}
}

func TestExcludePatternsHonored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "drafts", "a.md"), "a")
	writeFile(t, filepath.Join(root, "keep.md"), "b")

	c := New(root, []string{"drafts"})
	entries, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RelativePath != "keep.md" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestInvalidateForcesRescan(t *testing.T) {
	root := t.TempDir()
	c := New(root, nil)
	if _, err := c.List(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "new.md"), "x")
	entries, _ := c.List()
	if len(entries) != 0 {
		t.Fatalf("expected stale cache, got %d entries", len(entries))
	}

	c.Invalidate()
	entries, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after invalidate, got %d", len(entries))
	}
}
