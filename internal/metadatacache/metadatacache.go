// Package metadatacache scans a scope root for user-space Markdown files
// and keeps a read-mostly, watcher-invalidated cache of the result so tools
// don't re-walk the tree on every call.
package metadatacache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prizm-dev/prizm/internal/pathprovider"
)

// defaultIgnore is always excluded, in addition to any scope-level
// excludePatterns from scope.json.
var defaultIgnore = []string{".git", "node_modules", "dist"}

// Entry describes one candidate user file found by a scan.
type Entry struct {
	RelativePath string
	AbsolutePath string
	ModTime      time.Time
	Size         int64
}

// Cache holds the most recent scan of a scope root plus an fsnotify watcher
// that invalidates it on change, debounced by 500ms.
type Cache struct {
	scopeRoot       string
	excludePatterns []string

	mu      sync.RWMutex
	entries []Entry
	scanned bool

	version atomic.Uint64

	watcher   *fsnotify.Watcher
	debouncer *debouncer
	closeOnce sync.Once
	done      chan struct{}

	ftsMu      sync.Mutex
	fts        *FTSIndex
	ftsRead    func(relPath string) (title, content string, err error)
	ftsVersion uint64
	ftsBuilt   bool
}

// New creates a cache for scopeRoot. excludePatterns come from
// scope.json's settings.excludePatterns.
func New(scopeRoot string, excludePatterns []string) *Cache {
	return &Cache{
		scopeRoot:       scopeRoot,
		excludePatterns: excludePatterns,
		done:            make(chan struct{}),
	}
}

// Version returns a counter that increments on every invalidation, so
// callers can detect whether their view of the cache is stale.
func (c *Cache) Version() uint64 {
	return c.version.Load()
}

// List returns the cached scan, scanning synchronously on first use.
func (c *Cache) List() ([]Entry, error) {
	c.mu.RLock()
	if c.scanned {
		defer c.mu.RUnlock()
		return c.entries, nil
	}
	c.mu.RUnlock()

	return c.rescan()
}

// Invalidate forces the next List call to rescan.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.scanned = false
	c.mu.Unlock()
	c.version.Add(1)
}

func (c *Cache) rescan() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := scan(c.scopeRoot, c.excludePatterns)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	c.scanned = true
	return entries, nil
}

// scan walks scopeRoot breadth-first, skipping .prizm, the always-ignored
// directories, and any scope-level exclude pattern, returning every
// regular .md file found.
func scan(scopeRoot string, excludePatterns []string) ([]Entry, error) {
	var entries []Entry

	type dirJob struct{ path, rel string }
	queue := []dirJob{{path: scopeRoot, rel: ""}}

	for len(queue) > 0 {
		job := queue[0]
		queue = queue[1:]

		dirEntries, err := os.ReadDir(job.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		for _, de := range dirEntries {
			name := de.Name()
			rel := name
			if job.rel != "" {
				rel = job.rel + "/" + name
			}

			if pathprovider.IsSystemPath(rel) {
				continue
			}
			if shouldIgnore(name, rel, excludePatterns) {
				continue
			}

			full := filepath.Join(job.path, name)
			if de.IsDir() {
				queue = append(queue, dirJob{path: full, rel: rel})
				continue
			}

			if !strings.HasSuffix(strings.ToLower(name), ".md") {
				continue
			}

			info, err := de.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{
				RelativePath: rel,
				AbsolutePath: full,
				ModTime:      info.ModTime(),
				Size:         info.Size(),
			})
		}
	}

	return entries, nil
}

func shouldIgnore(name, rel string, excludePatterns []string) bool {
	for _, ig := range defaultIgnore {
		if name == ig {
			return true
		}
	}
	for _, pattern := range excludePatterns {
		if pattern == "" {
			continue
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if strings.HasPrefix(rel, strings.TrimSuffix(pattern, "/")+"/") {
			return true
		}
	}
	return false
}

// Watch starts an fsnotify watcher over the scope root. File events are
// debounced 500ms before invalidating the cache; Close stops the watcher.
// Returns an error if fsnotify can't be initialized; without a watcher the
// cache is refreshed only by Invalidate and the rescan that follows it.
func (c *Cache) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watcher = watcher
	c.debouncer = newDebouncer(500*time.Millisecond, c.Invalidate)

	if err := addRecursive(watcher, c.scopeRoot); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				c.debouncer.Trigger()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	return nil
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if rel != "." && pathprovider.IsSystemPath(rel) {
			return filepath.SkipDir
		}
		for _, ig := range defaultIgnore {
			if d.Name() == ig {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

// EnableFTS attaches a full-text index at indexPath. read supplies each
// file's title and body (the caller's mdstore, so frontmatter is already
// split off). The index is built lazily on first search and rebuilt
// whenever the cache has been invalidated since the last build.
func (c *Cache) EnableFTS(indexPath string, read func(relPath string) (title, content string, err error)) error {
	ix, err := OpenFTSIndex(indexPath)
	if err != nil {
		return err
	}
	c.ftsMu.Lock()
	c.fts = ix
	c.ftsRead = read
	c.ftsBuilt = false
	c.ftsMu.Unlock()
	return nil
}

// FTSEnabled reports whether EnableFTS has been called on this cache.
func (c *Cache) FTSEnabled() bool {
	c.ftsMu.Lock()
	defer c.ftsMu.Unlock()
	return c.fts != nil
}

// SearchFTS queries the full-text index, rebuilding it first if the
// cache was invalidated since the last build. Returns an error if
// EnableFTS was never called.
func (c *Cache) SearchFTS(query string, limit int) ([]string, error) {
	c.ftsMu.Lock()
	defer c.ftsMu.Unlock()
	if c.fts == nil {
		return nil, fmt.Errorf("full-text index not enabled")
	}

	current := c.version.Load()
	if !c.ftsBuilt || current != c.ftsVersion {
		entries, err := c.List()
		if err != nil {
			return nil, err
		}
		docs := make([]IndexedFile, 0, len(entries))
		for _, e := range entries {
			title := strings.TrimSuffix(filepath.Base(e.RelativePath), ".md")
			_, content, err := c.ftsRead(e.RelativePath)
			if err != nil {
				continue
			}
			docs = append(docs, IndexedFile{Path: e.RelativePath, Title: title, Content: content})
		}
		if err := c.fts.Rebuild(docs); err != nil {
			return nil, err
		}
		c.ftsBuilt = true
		c.ftsVersion = current
	}

	return c.fts.Search(query, limit)
}

// Close stops the watcher, if one was started, and releases the
// full-text index.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.debouncer != nil {
			c.debouncer.Cancel()
		}
		if c.watcher != nil {
			err = c.watcher.Close()
		}
	})
	c.ftsMu.Lock()
	if c.fts != nil {
		if ftsErr := c.fts.Close(); ftsErr != nil && err == nil {
			err = ftsErr
		}
		c.fts = nil
	}
	c.ftsMu.Unlock()
	return err
}
