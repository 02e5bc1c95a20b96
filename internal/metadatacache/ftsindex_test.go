package metadatacache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func enableTestFTS(t *testing.T, c *Cache, root string) {
	t.Helper()
	read := func(rel string) (string, string, error) {
		raw, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", "", err
		}
		title := strings.TrimSuffix(filepath.Base(rel), ".md")
		return title, string(raw), nil
	}
	if err := c.EnableFTS(filepath.Join(t.TempDir(), "index.db"), read); err != nil {
		t.Fatalf("EnableFTS: %v", err)
	}
}

func TestFTSSearchFindsContentMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Recipes.md"), "slow-roasted tomato sauce")
	writeFile(t, filepath.Join(root, "Travel.md"), "packing list for the coast")

	c := New(root, nil)
	t.Cleanup(func() { c.Close() })
	enableTestFTS(t, c, root)

	paths, err := c.SearchFTS("tomato", 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(paths) != 1 || paths[0] != "Recipes.md" {
		t.Fatalf("paths = %v", paths)
	}

	none, err := c.SearchFTS("volcano", 10)
	if err != nil {
		t.Fatalf("SearchFTS miss: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no hits, got %v", none)
	}
}

func TestFTSRebuildsAfterInvalidation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "First.md"), "original body")

	c := New(root, nil)
	t.Cleanup(func() { c.Close() })
	enableTestFTS(t, c, root)

	if _, err := c.SearchFTS("original", 10); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "Second.md"), "freshly added paragraph")
	c.Invalidate()

	paths, err := c.SearchFTS("freshly", 10)
	if err != nil {
		t.Fatalf("SearchFTS after invalidate: %v", err)
	}
	if len(paths) != 1 || paths[0] != "Second.md" {
		t.Fatalf("paths = %v", paths)
	}
}
