package mdstore

import (
	"os"

	"github.com/prizm-dev/prizm/internal/frontmatter"
)

// ReadRawFileByPath returns a file's raw bytes without frontmatter
// parsing, for callers (migrations) that need to re-parse and rewrite the
// frontmatter block themselves.
func (s *Store) ReadRawFileByPath(relativePath string) ([]byte, error) {
	abs, err := s.resolve(relativePath, true)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError("read", err)
	}
	return raw, nil
}

// RenameUserEntityFile moves the file at relPath to a collision-free
// title-derived name in dir, preserving its frontmatter and body
// unchanged. Used by migrateToV2 to rename id-named files to
// title-named ones.
func (s *Store) RenameUserEntityFile(relPath, dir, title string) error {
	raw, err := s.ReadRawFileByPath(relPath)
	if err != nil {
		return err
	}
	parsed := frontmatter.Parse(raw)

	_, err = s.writeTitledEntity(relPath, dir, title, parsed.Data, parsed.Body)
	return err
}

// RenameAndRewriteEntityFile moves the file at relPath to a
// collision-free title-derived name in dir, rewriting its frontmatter to
// data and body in the process. Used by migrateToV3's note→document
// rewrite.
func (s *Store) RenameAndRewriteEntityFile(relPath, dir, title string, data map[string]any, body string) error {
	_, err := s.writeTitledEntity(relPath, dir, title, data, body)
	return err
}
