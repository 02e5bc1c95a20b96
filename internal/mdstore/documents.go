package mdstore

import (
	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllDocuments returns every document in the scope, sorted by
// createdAt ascending.
func (s *Store) ReadAllDocuments() ([]*types.Document, error) {
	files, err := s.scanUserEntities(string(types.TypeDocument))
	if err != nil {
		return nil, err
	}
	sortByCreatedAtField(files)

	docs := make([]*types.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, documentFromParsed(f))
	}
	return docs, nil
}

// ReadDocumentByID returns the document with the given id, or nil if none
// exists.
func (s *Store) ReadDocumentByID(id string) (*types.Document, error) {
	docs, err := s.ReadAllDocuments()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

// WriteDocument persists doc. If doc.RelativePath is empty it is treated
// as new and placed at the scope root; otherwise its current file is
// renamed in place if the title no longer matches the filename.
func (s *Store) WriteDocument(doc *types.Document) error {
	data := map[string]any{
		"prizm_type": string(types.TypeDocument),
		"id":         doc.ID,
		"title":      doc.Title,
		"createdAt":  doc.CreatedAt,
		"updatedAt":  doc.UpdatedAt,
	}
	if len(doc.Tags) > 0 {
		data["tags"] = doc.Tags
	}
	if doc.LLMSummary != "" {
		data["llmSummary"] = doc.LLMSummary
	}

	dir := ""
	if doc.RelativePath != "" {
		dir = dirOf(doc.RelativePath)
	}

	newRelPath, err := s.writeTitledEntity(doc.RelativePath, dir, doc.Title, data, doc.Body)
	if err != nil {
		return err
	}
	doc.RelativePath = newRelPath
	return nil
}

// DeleteDocument removes the document with the given id. Idempotent.
func (s *Store) DeleteDocument(id string) error {
	doc, err := s.ReadDocumentByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return s.deleteByPath(doc.RelativePath, false)
}

func documentFromParsed(f parsedFile) *types.Document {
	d := &types.Document{
		ID:           stringField(f.Data, "id"),
		Title:        stringField(f.Data, "title"),
		LLMSummary:   stringField(f.Data, "llmSummary"),
		RelativePath: f.RelativePath,
		CreatedAt:    int64Field(f.Data, "createdAt"),
		UpdatedAt:    int64Field(f.Data, "updatedAt"),
		Body:         f.Body,
	}
	if tags, ok := f.Data["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				d.Tags = append(d.Tags, s)
			}
		}
	}
	return d
}
