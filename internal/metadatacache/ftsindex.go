package metadatacache

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// FTSIndex is an optional full-text index over the scope's user Markdown
// files, backing prizm_search when enabled. It is a disposable cache: the
// Markdown store stays the source of truth, and the index file can be
// deleted and rebuilt from a scan at any time.
type FTSIndex struct {
	db *sql.DB
}

// IndexedFile is one file's contribution to the index.
type IndexedFile struct {
	Path    string
	Title   string
	Content string
}

// OpenFTSIndex opens (creating if absent) the index database at path.
func OpenFTSIndex(path string) (*FTSIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS files USING fts5(path UNINDEXED, title, content)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create search index schema: %w", err)
	}
	return &FTSIndex{db: db}, nil
}

// Rebuild replaces the entire index with docs in one transaction.
func (ix *FTSIndex) Rebuild(docs []IndexedFile) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM files`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO files(path, title, content) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		if _, err := stmt.Exec(d.Path, d.Title, d.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns the paths of up to limit files matching query, best
// match first. The query is quoted so user input is matched literally
// rather than parsed as FTS5 operator syntax.
func (ix *FTSIndex) Search(query string, limit int) ([]string, error) {
	rows, err := ix.db.Query(
		`SELECT path FROM files WHERE files MATCH ? ORDER BY rank LIMIT ?`,
		fmt.Sprintf("%q", query), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close releases the underlying database handle.
func (ix *FTSIndex) Close() error {
	return ix.db.Close()
}
