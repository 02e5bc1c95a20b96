package tools

import (
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/types"
)

// newScopedID mints an id for an entity created directly in a non-main
// workspace, bypassing the services layer.
func newScopedID() string {
	return uuid.NewString()
}

// newScopedDocument builds a fresh Document for a non-main workspace
// write. Non-main workspaces have no DocumentService backing them (they
// are private sandboxes nothing else can race against), so tool
// executors construct the entity directly and hand it to mdstore.
func newScopedDocument(title, body string, tags []string) *types.Document {
	now := time.Now().UnixMilli()
	return &types.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newScopedTodoList builds a fresh, empty TodoList for a non-main
// workspace write, the todo-list counterpart of newScopedDocument.
func newScopedTodoList(title string) *types.TodoList {
	now := time.Now().UnixMilli()
	return &types.TodoList{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// mutateScopedTodoList applies a.Action's item-level mutation directly to
// list, mirroring services.TodoService's add_items/update_item/delete_item
// handling but without a lock manager to go through.
func mutateScopedTodoList(list *types.TodoList, a todoArgs) *rpc.InvokeResponse {
	switch a.Action {
	case "add_items":
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		now := time.Now().UnixMilli()
		list.Items = append(list.Items, types.TodoItem{
			ID:          uuid.NewString(),
			Title:       a.Title,
			Description: a.Description,
			Status:      types.TodoStatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	case "update_item":
		status, err := parseTodoStatus(a.Status)
		if err != nil {
			return invalidInput(err.Error())
		}
		for i := range list.Items {
			if list.Items[i].ID == a.ItemID {
				list.Items[i].Status = status
				list.Items[i].UpdatedAt = time.Now().UnixMilli()
				break
			}
		}
	case "delete_item":
		for i := range list.Items {
			if list.Items[i].ID == a.ItemID {
				list.Items = append(list.Items[:i], list.Items[i+1:]...)
				break
			}
		}
	}
	list.UpdatedAt = time.Now().UnixMilli()
	return nil
}
