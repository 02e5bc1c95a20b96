package mdstore

import (
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllClipboardItems returns every clipboard item in the scope, sorted
// by createdAt ascending.
func (s *Store) ReadAllClipboardItems() ([]*types.ClipboardItem, error) {
	files, err := s.scanSystemEntities(relClipboardDir())
	if err != nil {
		return nil, err
	}
	sortByCreatedAtField(files)

	items := make([]*types.ClipboardItem, 0, len(files))
	for _, f := range files {
		items = append(items, clipboardFromParsed(f))
	}
	return items, nil
}

// ReadClipboardItemByID returns the clipboard item with the given id, or
// nil if none exists.
func (s *Store) ReadClipboardItemByID(id string) (*types.ClipboardItem, error) {
	fi, err := s.ReadSystemFileByPath(relClipboardItemFile(id))
	if err != nil {
		return nil, err
	}
	if fi == nil || fi.IsBinary {
		return nil, nil
	}
	return clipboardFromParsed(parsedFile{RelativePath: fi.RelativePath, Data: fi.Frontmatter, Body: fi.Content}), nil
}

// WriteClipboardItem persists item, id-keyed under .prizm/clipboard.
func (s *Store) WriteClipboardItem(item *types.ClipboardItem) error {
	data := map[string]any{
		"prizm_type": "clipboard",
		"id":         item.ID,
		"type":       string(item.Type),
		"createdAt":  item.CreatedAt,
	}
	if item.SourceApp != "" {
		data["sourceApp"] = item.SourceApp
	}
	return s.writeIDKeyedEntity(relClipboardItemFile(item.ID), data, item.Body)
}

// DeleteClipboardItem removes the clipboard item with the given id.
// Idempotent.
func (s *Store) DeleteClipboardItem(id string) error {
	return s.deleteByPath(relClipboardItemFile(id), true)
}

func clipboardFromParsed(f parsedFile) *types.ClipboardItem {
	return &types.ClipboardItem{
		ID:        stringField(f.Data, "id"),
		Type:      types.ClipboardItemType(stringField(f.Data, "type")),
		SourceApp: stringField(f.Data, "sourceApp"),
		CreatedAt: int64Field(f.Data, "createdAt"),
		Body:      f.Body,
	}
}

func relClipboardDir() string {
	return pathprovider.SystemDir + "/clipboard"
}

func relClipboardItemFile(id string) string {
	return relClipboardDir() + "/" + id + ".md"
}
