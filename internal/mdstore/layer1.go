package mdstore

import (
	"path/filepath"

	"github.com/prizm-dev/prizm/internal/frontmatter"
	"github.com/prizm-dev/prizm/internal/pathprovider"
)

// writeTitledEntity implements the write-single contract for
// title-driven user entities (documents, todo lists): if existingRelPath
// is non-empty and the title-derived filename differs from it, the entity
// is moved via collision-safe write-new + delete-old; otherwise it's
// written in place. Returns the relative path the entity now lives at.
func (s *Store) writeTitledEntity(existingRelPath, dir, title string, data map[string]any, body string) (string, error) {
	raw, err := frontmatter.Emit(data, body)
	if err != nil {
		return "", err
	}

	allowSystem := pathprovider.IsSystemPath(dir)
	dirAbs, err := s.resolve(orRoot(dir), allowSystem)
	if err != nil {
		return "", err
	}

	exclude := ""
	if existingRelPath != "" {
		exclude = filepath.Base(existingRelPath)
	}
	name := collisionFreeName(dirAbs, title, ".md", exclude)
	newRelPath := filepath.ToSlash(filepath.Join(dir, name))

	if err := s.writeFileByPath(newRelPath, raw, allowSystem); err != nil {
		return "", err
	}

	if existingRelPath != "" && existingRelPath != newRelPath {
		if err := s.deleteByPath(existingRelPath, allowSystem); err != nil {
			return "", err
		}
	}

	return newRelPath, nil
}

// writeIDKeyedEntity implements the write-single contract for
// .prizm-stored families addressed by id rather than title (clipboard,
// token usage, agent sessions): always written in place at relPath.
func (s *Store) writeIDKeyedEntity(relPath string, data map[string]any, body string) error {
	raw, err := frontmatter.Emit(data, body)
	if err != nil {
		return err
	}
	return s.writeFileByPath(relPath, raw, true)
}
