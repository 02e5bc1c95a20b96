// Package versions implements the append-only per-document version
// history: one file per document id under
// .prizm/document-versions, content-hash deduplicated, with a
// Markdown-formatted line diff between any two versions.
package versions

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prizm-dev/prizm/internal/frontmatter"
	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/types"
)

const versionMarkerPrefix = "<!-- prizm:version:"

// Store manages document-versions files for one scope, built on its
// Layer 0 mdstore.Store for sandboxed, atomic file I/O.
type Store struct {
	md *mdstore.Store
}

// New creates a version store over an already-constructed Layer 0 store.
func New(md *mdstore.Store) *Store {
	return &Store{md: md}
}

// ContentHash computes the 16-hex-character identity hash of content: a
// 64-bit (8-byte) truncation of SHA-256, sufficient for deduplication
// identity, not integrity.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}

// GetVersionHistory returns every version of docID's history, version
// ascending, each with its content body populated. Returns an empty slice
// if the document has no version file yet.
func (s *Store) GetVersionHistory(docID string) ([]*types.DocumentVersion, error) {
	return s.readAll(docID)
}

// GetVersion returns one specific version, or nil if it does not exist.
func (s *Store) GetVersion(docID string, version int) (*types.DocumentVersion, error) {
	all, err := s.readAll(docID)
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, nil
}

// Latest returns the most recent version, or nil if the document has no
// history yet.
func (s *Store) Latest(docID string) (*types.DocumentVersion, error) {
	all, err := s.readAll(docID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// SaveVersion appends a new version for docID if content's hash differs
// from the current latest. If it matches, it is a no-op that returns the
// existing latest unchanged — the version counter never bumps for an
// identical save.
func (s *Store) SaveVersion(docID, title, content, changedBy, changeReason string) (*types.DocumentVersion, error) {
	all, err := s.readAll(docID)
	if err != nil {
		return nil, err
	}

	hash := ContentHash(content)
	if len(all) > 0 {
		last := all[len(all)-1]
		if last.ContentHash == hash {
			return last, nil
		}
	}

	v := &types.DocumentVersion{
		Version:      len(all) + 1,
		Title:        title,
		ContentHash:  hash,
		Timestamp:    time.Now().UnixMilli(),
		ChangedBy:    changedBy,
		ChangeReason: changeReason,
		Body:         content,
	}
	all = append(all, v)

	if err := s.writeAll(docID, all); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) readAll(docID string) ([]*types.DocumentVersion, error) {
	relPath := relDocumentVersionFile(docID)
	fi, err := s.md.ReadSystemFileByPath(relPath)
	if err != nil {
		return nil, err
	}
	if fi == nil || fi.IsBinary {
		return nil, nil
	}

	metaList, _ := fi.Frontmatter["versions"].([]any)
	bodies := splitVersionBodies(fi.Content)

	out := make([]*types.DocumentVersion, 0, len(metaList))
	for _, mi := range metaList {
		m, ok := mi.(map[string]any)
		if !ok {
			continue
		}
		version := int(toInt64(m["version"]))
		out = append(out, &types.DocumentVersion{
			Version:      version,
			Title:        toStr(m["title"]),
			ContentHash:  toStr(m["contentHash"]),
			Timestamp:    toInt64(m["timestamp"]),
			ChangedBy:    toStr(m["changedBy"]),
			ChangeReason: toStr(m["changeReason"]),
			Body:         bodies[version],
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *Store) writeAll(docID string, all []*types.DocumentVersion) error {
	meta := make([]map[string]any, 0, len(all))
	var body strings.Builder
	for _, v := range all {
		entry := map[string]any{
			"version":     v.Version,
			"title":       v.Title,
			"contentHash": v.ContentHash,
			"timestamp":   v.Timestamp,
		}
		if v.ChangedBy != "" {
			entry["changedBy"] = v.ChangedBy
		}
		if v.ChangeReason != "" {
			entry["changeReason"] = v.ChangeReason
		}
		meta = append(meta, entry)

		body.WriteString(versionMarkerPrefix)
		body.WriteString(strconv.Itoa(v.Version))
		body.WriteString(" -->\n")
		body.WriteString(v.Body)
		if !strings.HasSuffix(v.Body, "\n") {
			body.WriteString("\n")
		}
	}

	data := map[string]any{
		"prizm_type": "document_version",
		"versions":   meta,
	}
	raw, err := frontmatter.Emit(data, body.String())
	if err != nil {
		return err
	}
	return s.md.WriteSystemFileByPath(relDocumentVersionFile(docID), raw)
}

// splitVersionBodies splits a version file's body back into a
// version-number-keyed map of per-version content, reversing writeAll's
// marker-delimited concatenation.
func splitVersionBodies(body string) map[int]string {
	out := make(map[int]string)
	if body == "" {
		return out
	}
	body = strings.TrimSuffix(body, "\n")

	lines := strings.Split(body, "\n")
	current := -1
	var buf strings.Builder
	flush := func() {
		if current >= 0 {
			out[current] = strings.TrimSuffix(buf.String(), "\n")
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, versionMarkerPrefix) {
			flush()
			buf.Reset()
			numStr := strings.TrimSuffix(strings.TrimPrefix(line, versionMarkerPrefix), " -->")
			n, err := strconv.Atoi(numStr)
			if err != nil {
				current = -1
				continue
			}
			current = n
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return out
}

func relDocumentVersionFile(docID string) string {
	return pathprovider.SystemDir + "/document-versions/" + docID + ".md"
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}
