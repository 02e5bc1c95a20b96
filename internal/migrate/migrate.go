// Package migrate runs version-gated, on-disk-layout migrations:
// on first open of a scope, each migration
// between the stored dataVersion and CurrentVersion runs exactly once,
// then scope.json's dataVersion is persisted atomically.
package migrate

import (
	"fmt"
	"strings"

	"github.com/prizm-dev/prizm/internal/frontmatter"
	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/pathprovider"
)

// CurrentVersion is the dataVersion a freshly migrated scope ends up at.
// migrateToV3's concrete seed scenario fixes the
// note→document rewrite at version 3, so migrations are ordered:
// V1 prunes the legacy pomodoro subtree, V2 renames id-named files to
// title-named ones, V3 performs the prizm_type rewrite.
const CurrentVersion = 3

// Migration is one version-gated step. Target is the dataVersion the
// scope will be at after Run succeeds.
type Migration struct {
	Target int
	Name   string
	Run    func(md *mdstore.Store) error
}

// All is the ordered list of migrations, applied from the stored
// dataVersion up to CurrentVersion.
var All = []Migration{
	{Target: 1, Name: "prune-pomodoro", Run: migrateToV1},
	{Target: 2, Name: "rename-id-named-files", Run: migrateToV2},
	{Target: 3, Name: "note-to-document", Run: migrateToV3},
}

// ErrMigrationFailed wraps a failed migration step; callers surface this
// as MIGRATION_REQUIRED and refuse to open the scope.
type ErrMigrationFailed struct {
	Migration string
	Err       error
}

func (e *ErrMigrationFailed) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Migration, e.Err)
}

func (e *ErrMigrationFailed) Unwrap() error { return e.Err }

// RunPending runs every migration between fromVersion (exclusive) and
// CurrentVersion (inclusive), in order, returning the new version reached.
// It stops and returns an error at the first failing migration. Each
// migration's own file writes are atomic, so a failure here never leaves
// a half-rewritten file, only a scope stuck below CurrentVersion until
// the next open retries the same migration.
func RunPending(md *mdstore.Store, fromVersion int) (int, error) {
	version := fromVersion
	for _, m := range All {
		if m.Target <= fromVersion {
			continue
		}
		if err := m.Run(md); err != nil {
			return version, &ErrMigrationFailed{Migration: m.Name, Err: err}
		}
		version = m.Target
	}
	return version, nil
}

// migrateToV1 deletes the obsolete .prizm/pomodoro subtree.
func migrateToV1(md *mdstore.Store) error {
	if err := md.DeleteSystemByPath(pathprovider.SystemDir + "/pomodoro"); err != nil {
		if err == mdstore.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}

// migrateToV2 renames id-named user files (filename base equals the
// entity's id rather than its title) to their title-derived name,
// resolving collisions the same way a normal title-driven write would.
func migrateToV2(md *mdstore.Store) error {
	entries, err := md.ListDirectory("", true, false)
	if err != nil {
		return err
	}

	var rename func([]mdstore.DirEntry) error
	rename = func(list []mdstore.DirEntry) error {
		for _, e := range list {
			if e.IsDir {
				if err := rename(e.Children); err != nil {
					return err
				}
				continue
			}
			if e.PrizmType == "" || e.PrizmID == "" {
				continue
			}
			if err := renameIfIDNamed(md, e); err != nil {
				return err
			}
		}
		return nil
	}
	return rename(entries)
}

func renameIfIDNamed(md *mdstore.Store, e mdstore.DirEntry) error {
	base := strings.TrimSuffix(e.Name, ".md")
	if base != e.PrizmID {
		return nil
	}

	raw, err := md.ReadRawFileByPath(e.RelativePath)
	if err != nil {
		return err
	}
	parsed := frontmatter.Parse(raw)

	title, _ := parsed.Data["title"].(string)
	if title == "" || title == base {
		return nil
	}

	return md.RenameUserEntityFile(e.RelativePath, dirname(e.RelativePath), title)
}

func dirname(relPath string) string {
	idx := strings.LastIndex(relPath, "/")
	if idx < 0 {
		return ""
	}
	return relPath[:idx]
}

// migrateToV3 rewrites every file whose prizm_type is the legacy "note"
// tag to "document". A note with no title yet (the common legacy shape)
// is titled from its body content, which also drives its new filename.
func migrateToV3(md *mdstore.Store) error {
	entries, err := md.ListDirectory("", true, false)
	if err != nil {
		return err
	}

	var walk func([]mdstore.DirEntry) error
	walk = func(list []mdstore.DirEntry) error {
		for _, e := range list {
			if e.IsDir {
				if err := walk(e.Children); err != nil {
					return err
				}
				continue
			}
			if e.PrizmType != "note" {
				continue
			}
			if err := rewriteNoteToDocument(md, e); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(entries)
}

func rewriteNoteToDocument(md *mdstore.Store, e mdstore.DirEntry) error {
	raw, err := md.ReadRawFileByPath(e.RelativePath)
	if err != nil {
		return err
	}
	parsed := frontmatter.Parse(raw)

	title, _ := parsed.Data["title"].(string)
	if title == "" {
		title = strings.TrimSpace(parsed.Body)
		if len(title) > 80 {
			title = title[:80]
		}
	}

	data := make(map[string]any, len(parsed.Data)+1)
	for k, v := range parsed.Data {
		data[k] = v
	}
	data["prizm_type"] = "document"
	data["title"] = title

	return md.RenameAndRewriteEntityFile(e.RelativePath, dirname(e.RelativePath), title, data, parsed.Body)
}
