package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/types"
)

const resourceTypeTodoList = "todo_list"

// TodoService composes todo-list CRUD and per-item status transitions.
// A whole list, not an individual item, is the lockable unit: two agents
// editing different items of the same list still contend for one lock,
// matching how the list is stored as a single frontmatter-item file.
type TodoService struct {
	scope *scope.Store
}

// NewTodoService builds a TodoService over an open scope.
func NewTodoService(s *scope.Store) *TodoService {
	return &TodoService{scope: s}
}

// List returns every todo list in the scope.
func (t *TodoService) List() ([]*types.TodoList, error) {
	return t.scope.MD.ReadAllTodoLists()
}

// Get returns the todo list with the given id.
func (t *TodoService) Get(id string) (*types.TodoList, error) {
	list, err := t.scope.MD.ReadTodoListByID(id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, &ResourceNotFound{ResourceType: resourceTypeTodoList, ResourceID: id}
	}
	return list, nil
}

// CreateList makes a new, empty todo list.
func (t *TodoService) CreateList(sessionID, title string) (*types.TodoList, error) {
	if title == "" {
		return nil, &InvalidInput{Field: "title", Reason: "must not be empty"}
	}

	now := time.Now().UnixMilli()
	list := &types.TodoList{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.scope.MD.WriteTodoList(list); err != nil {
		t.audit(sessionID, audit.ActionCreate, list.ID, title, audit.ResultError, err)
		return nil, err
	}

	t.scope.Bus.Publish(events.Event{Topic: events.TopicTodoCreated, Scope: t.scope.Config.ID, Payload: list})
	t.audit(sessionID, audit.ActionCreate, list.ID, title, audit.ResultSuccess, nil)
	return list, nil
}

// AddItem appends a new item to an existing list. A transient lock is
// acquired and released for the duration of the write; there is no
// checked-out-across-calls semantics for todo mutation the way there is
// for document edits.
func (t *TodoService) AddItem(sessionID, listID, title, description string) (*types.TodoList, error) {
	if title == "" {
		return nil, &InvalidInput{Field: "title", Reason: "must not be empty"}
	}
	return t.mutate(sessionID, listID, checkpoint.ActionCreate, func(list *types.TodoList) {
		now := time.Now().UnixMilli()
		list.Items = append(list.Items, types.TodoItem{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			Status:      types.TodoStatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
}

// SetItemStatus transitions one item's status.
func (t *TodoService) SetItemStatus(sessionID, listID, itemID string, status types.TodoStatus) (*types.TodoList, error) {
	return t.mutate(sessionID, listID, checkpoint.ActionUpdate, func(list *types.TodoList) {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items[i].Status = status
				list.Items[i].UpdatedAt = time.Now().UnixMilli()
				return
			}
		}
	})
}

// DeleteItem removes one item from a list by id. A no-op if itemID isn't
// present in the list.
func (t *TodoService) DeleteItem(sessionID, listID, itemID string) (*types.TodoList, error) {
	return t.mutate(sessionID, listID, checkpoint.ActionUpdate, func(list *types.TodoList) {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items = append(list.Items[:i], list.Items[i+1:]...)
				return
			}
		}
	})
}

// DeleteList removes an entire todo list.
func (t *TodoService) DeleteList(sessionID, id string) error {
	list, err := t.Get(id)
	if err != nil {
		return err
	}

	if err := t.withLock(sessionID, id, func() error {
		t.scope.Checkpoints.Capture(sessionID, checkpoint.Key("todo_list", id), checkpoint.Payload{
			Action:       checkpoint.ActionDelete,
			ListSnapshot: list,
		})
		return t.scope.MD.DeleteTodoList(id)
	}); err != nil {
		t.audit(sessionID, audit.ActionDelete, id, list.Title, auditResultFor(err), err)
		return err
	}

	t.scope.Bus.Publish(events.Event{Topic: events.TopicTodoDeleted, Scope: t.scope.Config.ID, Payload: list})
	t.audit(sessionID, audit.ActionDelete, id, list.Title, audit.ResultSuccess, nil)
	return nil
}

func (t *TodoService) mutate(sessionID, listID string, action checkpoint.Action, fn func(*types.TodoList)) (*types.TodoList, error) {
	list, err := t.Get(listID)
	if err != nil {
		return nil, err
	}

	var updated *types.TodoList
	err = t.withLock(sessionID, listID, func() error {
		snapshot := *list
		snapshot.Items = append([]types.TodoItem(nil), list.Items...)
		t.scope.Checkpoints.Capture(sessionID, checkpoint.Key("todo_list", listID), checkpoint.Payload{
			Action:       action,
			ListSnapshot: &snapshot,
		})

		fn(list)
		list.UpdatedAt = time.Now().UnixMilli()
		if err := t.scope.MD.WriteTodoList(list); err != nil {
			return err
		}
		updated = list
		return nil
	})
	if err != nil {
		t.audit(sessionID, audit.ActionUpdate, listID, list.Title, auditResultFor(err), err)
		return nil, err
	}

	t.scope.Bus.Publish(events.Event{Topic: events.TopicTodoUpdated, Scope: t.scope.Config.ID, Payload: updated})
	t.audit(sessionID, audit.ActionUpdate, listID, updated.Title, audit.ResultSuccess, nil)
	return updated, nil
}

// withLock acquires listID's lock if unheld, runs fn under the two-phase
// fence check, then releases the lock if this call is the one that
// acquired it. Todo lists have no checkout verb, so acquisition is
// always transient.
func (t *TodoService) withLock(sessionID, listID string, fn func() error) error {
	holder := t.scope.Locks.Get(t.scope.Config.ID, resourceTypeTodoList, listID)
	acquiredHere := holder == nil

	var fenceToken uint64
	if acquiredHere {
		res := t.scope.Locks.Acquire(t.scope.Config.ID, resourceTypeTodoList, listID, sessionID, "transient")
		if !res.Success {
			return &ResourceLocked{ResourceType: resourceTypeTodoList, ResourceID: listID, HolderID: res.Holder.SessionID}
		}
		fenceToken = res.FenceToken
	} else if holder.SessionID != sessionID {
		return &ResourceLocked{ResourceType: resourceTypeTodoList, ResourceID: listID, HolderID: holder.SessionID}
	} else {
		fenceToken = holder.FenceToken
	}

	if err := t.scope.Locks.CheckFence(t.scope.Config.ID, resourceTypeTodoList, listID, fenceToken); err != nil {
		return &ResourceLocked{ResourceType: resourceTypeTodoList, ResourceID: listID}
	}

	runErr := fn()

	if fenceErr := t.scope.Locks.CheckFence(t.scope.Config.ID, resourceTypeTodoList, listID, fenceToken); fenceErr != nil && runErr == nil {
		runErr = &ResourceLocked{ResourceType: resourceTypeTodoList, ResourceID: listID}
	}

	if acquiredHere {
		t.scope.Locks.Release(t.scope.Config.ID, resourceTypeTodoList, listID, sessionID)
	}
	return runErr
}

func (t *TodoService) audit(sessionID string, action audit.Action, id, title string, result audit.Result, err error) {
	entry := &audit.Entry{
		SessionID:     sessionID,
		ToolName:      "prizm_todo",
		Action:        action,
		ResourceType:  resourceTypeTodoList,
		ResourceID:    id,
		ResourceTitle: title,
		Result:        result,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	t.scope.Audit.Append(entry)
}
