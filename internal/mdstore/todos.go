package mdstore

import (
	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllTodoLists returns every todo list in the scope, sorted by
// createdAt ascending.
func (s *Store) ReadAllTodoLists() ([]*types.TodoList, error) {
	files, err := s.scanUserEntities(string(types.TypeTodoList))
	if err != nil {
		return nil, err
	}
	sortByCreatedAtField(files)

	lists := make([]*types.TodoList, 0, len(files))
	for _, f := range files {
		lists = append(lists, todoListFromParsed(f))
	}
	return lists, nil
}

// ReadTodoListByID returns the todo list with the given id, or nil.
func (s *Store) ReadTodoListByID(id string) (*types.TodoList, error) {
	lists, err := s.ReadAllTodoLists()
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

// WriteTodoList persists list. Its body is always empty; items live in
// frontmatter.
func (s *Store) WriteTodoList(list *types.TodoList) error {
	items := make([]map[string]any, 0, len(list.Items))
	for _, it := range list.Items {
		item := map[string]any{
			"id":        it.ID,
			"title":     it.Title,
			"status":    string(it.Status),
			"createdAt": it.CreatedAt,
			"updatedAt": it.UpdatedAt,
		}
		if it.Description != "" {
			item["description"] = it.Description
		}
		items = append(items, item)
	}

	data := map[string]any{
		"prizm_type": string(types.TypeTodoList),
		"id":         list.ID,
		"title":      list.Title,
		"items":      items,
		"createdAt":  list.CreatedAt,
		"updatedAt":  list.UpdatedAt,
	}

	dir := ""
	if list.RelativePath != "" {
		dir = dirOf(list.RelativePath)
	}

	newRelPath, err := s.writeTitledEntity(list.RelativePath, dir, list.Title, data, "")
	if err != nil {
		return err
	}
	list.RelativePath = newRelPath
	return nil
}

// DeleteTodoList removes the todo list with the given id. Idempotent.
func (s *Store) DeleteTodoList(id string) error {
	list, err := s.ReadTodoListByID(id)
	if err != nil {
		return err
	}
	if list == nil {
		return nil
	}
	return s.deleteByPath(list.RelativePath, false)
}

func todoListFromParsed(f parsedFile) *types.TodoList {
	l := &types.TodoList{
		ID:           stringField(f.Data, "id"),
		Title:        stringField(f.Data, "title"),
		RelativePath: f.RelativePath,
		CreatedAt:    int64Field(f.Data, "createdAt"),
		UpdatedAt:    int64Field(f.Data, "updatedAt"),
	}

	rawItems, _ := f.Data["items"].([]any)
	for _, ri := range rawItems {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		l.Items = append(l.Items, types.TodoItem{
			ID:          stringField(m, "id"),
			Title:       stringField(m, "title"),
			Description: stringField(m, "description"),
			Status:      types.TodoStatus(stringField(m, "status")),
			CreatedAt:   int64Field(m, "createdAt"),
			UpdatedAt:   int64Field(m, "updatedAt"),
		})
	}
	return l
}
