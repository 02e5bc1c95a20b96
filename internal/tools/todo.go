package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/types"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type todoArgs struct {
	Action      string `json:"action"`
	ListID      string `json:"listId"`
	Title       string `json:"title"`
	ItemID      string `json:"itemId"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// todoTool implements prizm_todo{list,create_list,delete_list,add_items,
// update_item,delete_item}. Todo lists use a transient
// per-call lock (services.TodoService), never the checkout/checkin
// lifecycle documents use, since no tool in the catalogue exposes an
// explicit todo checkout verb. Non-main workspaces bypass the lock
// manager entirely, same as prizm_document.
func (r *Registry) todoTool(wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	var a todoArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_todo arguments: " + err.Error())
	}

	if wsType != "" && wsType != workspace.TypeMain {
		return r.todoToolScoped(wsCtx, wsType, a)
	}

	switch a.Action {
	case "list":
		lists, err := r.todos.List()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, l := range lists {
			fmt.Fprintf(&b, "%s\t%s\t%d items\n", l.ID, l.Title, len(l.Items))
		}
		return textResult(b.String())

	case "create_list":
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		list, err := r.todos.CreateList(sessionID, a.Title)
		if err != nil {
			return todoServiceErr(err)
		}
		return textResult("created todo list " + list.ID)

	case "delete_list":
		if a.ListID == "" {
			return invalidInput("listId is required")
		}
		if err := r.todos.DeleteList(sessionID, a.ListID); err != nil {
			return todoServiceErr(err)
		}
		return textResult("deleted todo list " + a.ListID)

	case "add_items":
		if a.ListID == "" {
			return invalidInput("listId is required")
		}
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		list, err := r.todos.AddItem(sessionID, a.ListID, a.Title, a.Description)
		if err != nil {
			return todoServiceErr(err)
		}
		return textResult(fmt.Sprintf("added item to %s (%d items)", list.Title, len(list.Items)))

	case "update_item":
		if a.ListID == "" || a.ItemID == "" {
			return invalidInput("listId and itemId are required")
		}
		status, err := parseTodoStatus(a.Status)
		if err != nil {
			return invalidInput(err.Error())
		}
		list, serr := r.todos.SetItemStatus(sessionID, a.ListID, a.ItemID, status)
		if serr != nil {
			return todoServiceErr(serr)
		}
		return textResult("updated item in " + list.Title)

	case "delete_item":
		if a.ListID == "" || a.ItemID == "" {
			return invalidInput("listId and itemId are required")
		}
		list, err := r.todos.DeleteItem(sessionID, a.ListID, a.ItemID)
		if err != nil {
			return todoServiceErr(err)
		}
		return textResult(fmt.Sprintf("removed item from %s (%d items remain)", list.Title, len(list.Items)))

	default:
		return invalidInput("unknown prizm_todo action: " + a.Action)
	}
}

// todoToolScoped handles prizm_todo calls against a session, run,
// workflow, or granted workspace: a private sandbox with no lock to
// contend for.
func (r *Registry) todoToolScoped(wsCtx workspace.Context, wsType workspace.Type, a todoArgs) *rpc.InvokeResponse {
	md, _, resolvedType, ok := r.storeForWorkspace(wsCtx, ".", wsType)
	if !ok {
		return errResult(CodeOutOfBounds, "workspace is not available for this session")
	}
	label := workspaceLabel(resolvedType)

	switch a.Action {
	case "list":
		lists, err := md.ReadAllTodoLists()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, l := range lists {
			fmt.Fprintf(&b, "%s\t%s\t%d items\n", l.ID, l.Title, len(l.Items))
		}
		return textResult(b.String() + label)

	case "create_list":
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		list := newScopedTodoList(a.Title)
		if err := md.WriteTodoList(list); err != nil {
			return ioErrorResult(err)
		}
		return textResult("created todo list " + list.ID + label)

	case "delete_list":
		if a.ListID == "" {
			return invalidInput("listId is required")
		}
		if err := md.DeleteTodoList(a.ListID); err != nil {
			return ioErrorResult(err)
		}
		return textResult("deleted todo list " + a.ListID + label)

	case "add_items", "update_item", "delete_item":
		list, err := md.ReadTodoListByID(a.ListID)
		if err != nil {
			return ioErrorResult(err)
		}
		if list == nil {
			return errResult(CodeNotFound, "todo list not found: "+a.ListID)
		}
		if errResp := mutateScopedTodoList(list, a); errResp != nil {
			return errResp
		}
		if err := md.WriteTodoList(list); err != nil {
			return ioErrorResult(err)
		}
		return textResult(fmt.Sprintf("%s: %s now has %d items%s", a.Action, list.Title, len(list.Items), label))

	default:
		return invalidInput("unknown prizm_todo action: " + a.Action)
	}
}

func parseTodoStatus(s string) (types.TodoStatus, error) {
	switch types.TodoStatus(s) {
	case types.TodoStatusTodo, types.TodoStatusDoing, types.TodoStatusDone:
		return types.TodoStatus(s), nil
	default:
		return "", fmt.Errorf("status must be one of todo|doing|done, got %q", s)
	}
}

func todoServiceErr(err error) *rpc.InvokeResponse {
	switch e := err.(type) {
	case *services.ResourceLocked:
		return errResult(CodeLocked, fmt.Sprintf("清单已被会话 %s 锁定", e.HolderID))
	case *services.ResourceNotFound:
		return errResult(CodeNotFound, err.Error())
	case *services.InvalidInput:
		return errResult(CodeInvalidInput, err.Error())
	default:
		return ioErrorResult(err)
	}
}
