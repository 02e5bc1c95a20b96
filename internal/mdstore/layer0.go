// Package mdstore implements the sandboxed generic file layer (Layer 0)
// and the typed-entity layer built on top of it (Layer 1), both scoped
// to one scope root directory.
package mdstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prizm-dev/prizm/internal/frontmatter"
	"github.com/prizm-dev/prizm/internal/pathprovider"
)

// Store is the Layer 0 sandboxed file API over one scope root.
type Store struct {
	scopeRoot string

	// onMutate, when set, runs after every successful write, move, or
	// delete. The owning scope points it at its metadata cache's
	// Invalidate, so the cache never serves a scan older than the last
	// write made through this store.
	onMutate func()
}

// SetMutationObserver registers fn to run after every successful mutation
// through this store. At most one observer; nil clears it.
func (s *Store) SetMutationObserver(fn func()) {
	s.onMutate = fn
}

func (s *Store) notifyMutate() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

// New creates a Layer 0 store rooted at scopeRoot. scopeRoot must already
// be an absolute, cleaned path.
func New(scopeRoot string) *Store {
	return &Store{scopeRoot: scopeRoot}
}

// ScopeRoot returns the absolute root this store is sandboxed to.
func (s *Store) ScopeRoot() string {
	return s.scopeRoot
}

// FileInfo is the generic description of a file returned by Layer 0 reads.
type FileInfo struct {
	RelativePath string
	Content      string // empty for binary files; see IsBinary
	IsBinary     bool
	Frontmatter  map[string]any
	PrizmType    string
	Size         int64
	LastModified time.Time
}

// DirEntry describes one child of a listDirectory call.
type DirEntry struct {
	Name         string
	RelativePath string
	IsDir        bool
	IsFile       bool
	Size         int64
	LastModified time.Time
	PrizmType    string
	PrizmID      string
	Children     []DirEntry
}

// resolve validates relativePath and returns its absolute form, rejecting
// traversal and (unless allowSystem) any path under .prizm.
func (s *Store) resolve(relativePath string, allowSystem bool) (string, error) {
	if relativePath == "" {
		return "", ErrInvalidPath
	}
	if filepath.IsAbs(relativePath) {
		return "", ErrInvalidPath
	}

	cleaned := filepath.Clean(relativePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	if !allowSystem && pathprovider.IsSystemPath(cleaned) {
		return "", ErrPermissionSystemPath
	}

	if cleaned == "." {
		return s.scopeRoot, nil
	}

	abs := filepath.Join(s.scopeRoot, cleaned)
	rootWithSep := s.scopeRoot + string(filepath.Separator)
	if abs != s.scopeRoot && !strings.HasPrefix(abs, rootWithSep) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

// ReadFileByPath reads relativePath's content and, if textual, its
// frontmatter. Binary files return metadata only. A missing file returns
// (nil, nil).
func (s *Store) ReadFileByPath(relativePath string) (*FileInfo, error) {
	return s.readFileByPath(relativePath, false)
}

// ReadSystemFileByPath is ReadFileByPath but permits .prizm paths, for use
// by the typed system APIs only.
func (s *Store) ReadSystemFileByPath(relativePath string) (*FileInfo, error) {
	return s.readFileByPath(relativePath, true)
}

func (s *Store) readFileByPath(relativePath string, allowSystem bool) (*FileInfo, error) {
	abs, err := s.resolve(relativePath, allowSystem)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ioError("stat", err)
	}
	if info.IsDir() {
		return nil, ErrInvalidPath
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, ioError("read", err)
	}

	fi := &FileInfo{
		RelativePath: filepath.ToSlash(relativePath),
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}

	if !isTextual(raw) {
		fi.IsBinary = true
		return fi, nil
	}

	if strings.HasSuffix(strings.ToLower(abs), ".md") {
		parsed := frontmatter.Parse(raw)
		fi.Frontmatter = parsed.Data
		fi.Content = parsed.Body
		fi.PrizmType = parsed.Type()
	} else {
		fi.Content = string(raw)
	}

	return fi, nil
}

// WriteFileByPath writes content to relativePath, creating parent
// directories as needed, atomically (write-temp + rename).
func (s *Store) WriteFileByPath(relativePath string, content []byte) error {
	return s.writeFileByPath(relativePath, content, false)
}

// WriteSystemFileByPath is WriteFileByPath but permits .prizm paths.
func (s *Store) WriteSystemFileByPath(relativePath string, content []byte) error {
	return s.writeFileByPath(relativePath, content, true)
}

func (s *Store) writeFileByPath(relativePath string, content []byte, allowSystem bool) error {
	abs, err := s.resolve(relativePath, allowSystem)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioError("mkdir", err)
	}

	if err := atomicWrite(abs, content); err != nil {
		return err
	}
	s.notifyMutate()
	return nil
}

// atomicWrite writes data to path via a same-directory temp file plus
// rename, so readers never observe a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".*.tmp")
	if err != nil {
		return ioError("create-temp", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return ioError("write-temp", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return ioError("close-temp", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return ioError("rename", err)
	}
	return nil
}

// ListDirectory lists relativePath's children. Hidden entries (dotfiles
// and .prizm) are suppressed unless includeSystem is set. recursive
// descends into each subdirectory as it is listed and populates Children.
func (s *Store) ListDirectory(relativePath string, recursive, includeSystem bool) ([]DirEntry, error) {
	abs, err := s.resolve(orRoot(relativePath), includeSystem)
	if err != nil {
		return nil, err
	}

	return s.listDir(abs, recursive, includeSystem)
}

func orRoot(relativePath string) string {
	if relativePath == "" {
		return "."
	}
	return relativePath
}

func (s *Store) listDir(abs string, recursive, includeSystem bool) ([]DirEntry, error) {
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError("readdir", err)
	}

	var out []DirEntry
	for _, de := range dirEntries {
		name := de.Name()
		if !includeSystem && (strings.HasPrefix(name, ".") || name == pathprovider.SystemDir) {
			continue
		}

		full := filepath.Join(abs, name)
		rel, _ := filepath.Rel(s.scopeRoot, full)
		rel = filepath.ToSlash(rel)

		entry := DirEntry{
			Name:         name,
			RelativePath: rel,
			IsDir:        de.IsDir(),
			IsFile:       !de.IsDir(),
		}

		if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
			entry.LastModified = info.ModTime()
		}

		if entry.IsFile && strings.HasSuffix(strings.ToLower(name), ".md") {
			if raw, err := os.ReadFile(full); err == nil && isTextual(raw) {
				parsed := frontmatter.Parse(raw)
				entry.PrizmType = parsed.Type()
				entry.PrizmID = parsed.String("id")
			}
		}

		if entry.IsDir && recursive {
			children, err := s.listDir(full, recursive, includeSystem)
			if err == nil {
				entry.Children = children
			}
		}

		out = append(out, entry)
	}

	return out, nil
}

// MkdirByPath creates relativePath and any missing parents. Refuses
// system paths.
func (s *Store) MkdirByPath(relativePath string) error {
	abs, err := s.resolve(relativePath, false)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return ioError("mkdir", err)
	}
	return nil
}

// MoveFile renames fromPath to toPath, validating both ends and ensuring
// the destination's parent directory exists.
func (s *Store) MoveFile(fromPath, toPath string) error {
	return s.moveFile(fromPath, toPath, false)
}

func (s *Store) moveFile(fromPath, toPath string, allowSystem bool) error {
	fromAbs, err := s.resolve(fromPath, allowSystem)
	if err != nil {
		return err
	}
	toAbs, err := s.resolve(toPath, allowSystem)
	if err != nil {
		return err
	}

	if _, err := os.Stat(fromAbs); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ioError("stat", err)
	}

	if err := os.MkdirAll(filepath.Dir(toAbs), 0755); err != nil {
		return ioError("mkdir", err)
	}

	if err := os.Rename(fromAbs, toAbs); err != nil {
		return ioError("rename", err)
	}
	s.notifyMutate()
	return nil
}

// DeleteByPath removes relativePath. Refuses system paths; directories
// are removed recursively.
func (s *Store) DeleteByPath(relativePath string) error {
	return s.deleteByPath(relativePath, false)
}

// DeleteSystemByPath is DeleteByPath but permits .prizm paths.
func (s *Store) DeleteSystemByPath(relativePath string) error {
	return s.deleteByPath(relativePath, true)
}

func (s *Store) deleteByPath(relativePath string, allowSystem bool) error {
	abs, err := s.resolve(relativePath, allowSystem)
	if err != nil {
		return err
	}
	if abs == s.scopeRoot {
		return ErrInvalidPath
	}

	if err := os.RemoveAll(abs); err != nil {
		return ioError("remove", err)
	}
	s.notifyMutate()
	return nil
}

// StatByPath returns size/mtime/type flags for relativePath.
func (s *Store) StatByPath(relativePath string) (*DirEntry, error) {
	abs, err := s.resolve(relativePath, false)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError("stat", err)
	}

	return &DirEntry{
		Name:         filepath.Base(abs),
		RelativePath: filepath.ToSlash(relativePath),
		IsDir:        info.IsDir(),
		IsFile:       !info.IsDir(),
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// isTextual is a cheap binary sniff: a NUL byte in the first 8KiB means
// treat the file as binary and skip frontmatter parsing.
func isTextual(data []byte) bool {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	for i := 0; i < n; i++ {
		if data[i] == 0 {
			return false
		}
	}
	return true
}
