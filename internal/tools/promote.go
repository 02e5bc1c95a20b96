package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type promoteFileArgs struct {
	FileID string `json:"fileId"`
	Folder string `json:"folder,omitempty"`
}

// promoteFileTool implements prizm_promote_file: it moves an entity the
// session drafted in its temp workspace into the main workspace, where
// the global list can see it. The entity keeps its id; only
// its location changes. Documents and todo lists are promotable — they
// are the two entity families a session can draft in its sandbox.
func (r *Registry) promoteFileTool(wsCtx workspace.Context, raw json.RawMessage, sessionID, actor string) *rpc.InvokeResponse {
	var a promoteFileArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_promote_file arguments: " + err.Error())
	}
	if a.FileID == "" {
		return invalidInput("fileId is required")
	}

	md, _, _, ok := r.storeForWorkspace(wsCtx, ".", workspace.TypeSession)
	if !ok {
		return errResult(CodeOutOfBounds, "this session has no temp workspace")
	}

	doc, err := md.ReadDocumentByID(a.FileID)
	if err != nil {
		return ioErrorResult(err)
	}
	if doc != nil {
		if existing, err := r.scope.MD.ReadDocumentByID(doc.ID); err != nil {
			return ioErrorResult(err)
		} else if existing != nil {
			return errResult(CodeConflict, "a document with this id already exists in the main workspace")
		}

		// Re-home under the main root: a cleared RelativePath makes
		// WriteDocument place the file fresh, at a.Folder or the root.
		doc.RelativePath = ""
		if a.Folder != "" {
			doc.RelativePath = a.Folder + "/" + doc.Title + ".md"
		}
		doc.UpdatedAt = time.Now().UnixMilli()
		if err := r.scope.MD.WriteDocument(doc); err != nil {
			return ioErrorResult(err)
		}
		if _, err := r.scope.Versions.SaveVersion(doc.ID, doc.Title, doc.Body, actor, "promoted from session workspace"); err != nil {
			return ioErrorResult(err)
		}
		if err := md.DeleteDocument(a.FileID); err != nil {
			return ioErrorResult(err)
		}

		r.scope.Bus.Publish(events.Event{Topic: events.TopicDocumentCreated, Scope: r.scope.Config.ID, Payload: doc})
		r.auditPromote(sessionID, "document", doc.ID, doc.Title)
		return textResult(fmt.Sprintf("promoted document %s to %s", doc.ID, doc.RelativePath))
	}

	list, err := md.ReadTodoListByID(a.FileID)
	if err != nil {
		return ioErrorResult(err)
	}
	if list != nil {
		if existing, err := r.scope.MD.ReadTodoListByID(list.ID); err != nil {
			return ioErrorResult(err)
		} else if existing != nil {
			return errResult(CodeConflict, "a todo list with this id already exists in the main workspace")
		}

		list.RelativePath = ""
		if a.Folder != "" {
			list.RelativePath = a.Folder + "/" + list.Title + ".md"
		}
		list.UpdatedAt = time.Now().UnixMilli()
		if err := r.scope.MD.WriteTodoList(list); err != nil {
			return ioErrorResult(err)
		}
		if err := md.DeleteTodoList(a.FileID); err != nil {
			return ioErrorResult(err)
		}

		r.scope.Bus.Publish(events.Event{Topic: events.TopicTodoCreated, Scope: r.scope.Config.ID, Payload: list})
		r.auditPromote(sessionID, "todo-list", list.ID, list.Title)
		return textResult(fmt.Sprintf("promoted todo list %s to %s", list.ID, list.RelativePath))
	}

	return errResult(CodeNotFound, "no promotable entity with id "+a.FileID+" in the session workspace")
}

func (r *Registry) auditPromote(sessionID, resourceType, id, title string) {
	entry := &audit.Entry{
		SessionID:     sessionID,
		ToolName:      "prizm_promote_file",
		Action:        audit.ActionCreate,
		ResourceType:  resourceType,
		ResourceID:    id,
		ResourceTitle: title,
		Result:        audit.ResultSuccess,
	}
	if _, err := r.scope.Audit.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "audit append failed: %v\n", err)
	}
}
