package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type documentArgs struct {
	Action       string   `json:"action"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags,omitempty"`
	ChangeReason string    `json:"changeReason,omitempty"`
}

// documentTool implements prizm_document{list,read,create,update,delete}.
// Main-workspace calls go through services.DocumentService, which owns
// the lock-acquire/fence/checkpoint/version/event/audit composite.
// Calls against any other workspace bypass locking entirely and
// operate on an ad-hoc mdstore rooted at that workspace's own directory,
// since locks only ever guard the main workspace's resources.
func (r *Registry) documentTool(wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage, sessionID, actor string) *rpc.InvokeResponse {
	var a documentArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_document arguments: " + err.Error())
	}

	if wsType != "" && wsType != workspace.TypeMain {
		return r.documentToolScoped(wsCtx, wsType, a)
	}

	switch a.Action {
	case "list":
		docs, err := r.documents.List()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, d := range docs {
			fmt.Fprintf(&b, "%s\t%s\n", d.ID, d.Title)
		}
		return textResult(b.String())

	case "read":
		doc, err := r.documents.Get(a.ID)
		if err != nil {
			return documentServiceErr(err)
		}
		return textResult(doc.Body)

	case "create":
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		doc, err := r.documents.Create(sessionID, actor, a.Title, a.Body, a.Tags)
		if err != nil {
			return documentServiceErr(err)
		}
		return textResult("created document " + doc.ID)

	case "update":
		doc, err := r.documents.Update(sessionID, actor, a.ID, a.Title, a.Content, a.ChangeReason)
		if err != nil {
			return documentServiceErr(err)
		}
		return textResult("updated document " + doc.ID)

	case "delete":
		if err := r.documents.Delete(sessionID, actor, a.ID); err != nil {
			return documentServiceErr(err)
		}
		return textResult("deleted document " + a.ID)

	default:
		return invalidInput("unknown prizm_document action: " + a.Action)
	}
}

// documentToolScoped handles prizm_document calls against a session, run,
// workflow, or granted workspace: these are private sandboxes no other
// session can see, so there is nothing to fence against.
func (r *Registry) documentToolScoped(wsCtx workspace.Context, wsType workspace.Type, a documentArgs) *rpc.InvokeResponse {
	md, _, resolvedType, ok := r.storeForWorkspace(wsCtx, ".", wsType)
	if !ok {
		return errResult(CodeOutOfBounds, "workspace is not available for this session")
	}
	label := workspaceLabel(resolvedType)

	switch a.Action {
	case "list":
		docs, err := md.ReadAllDocuments()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, d := range docs {
			fmt.Fprintf(&b, "%s\t%s\n", d.ID, d.Title)
		}
		return textResult(b.String() + label)

	case "read":
		doc, err := md.ReadDocumentByID(a.ID)
		if err != nil {
			return ioErrorResult(err)
		}
		if doc == nil {
			return errResult(CodeNotFound, "document not found: "+a.ID)
		}
		return textResult(doc.Body + label)

	case "create":
		if a.Title == "" {
			return invalidInput("title must not be empty")
		}
		doc := newScopedDocument(a.Title, a.Body, a.Tags)
		if err := md.WriteDocument(doc); err != nil {
			return ioErrorResult(err)
		}
		return textResult("created document " + doc.ID + label)

	case "update":
		doc, err := md.ReadDocumentByID(a.ID)
		if err != nil {
			return ioErrorResult(err)
		}
		if doc == nil {
			return errResult(CodeNotFound, "document not found: "+a.ID)
		}
		if a.Title != "" {
			doc.Title = a.Title
		}
		doc.Body = a.Content
		if err := md.WriteDocument(doc); err != nil {
			return ioErrorResult(err)
		}
		return textResult("updated document " + doc.ID + label)

	case "delete":
		if err := md.DeleteDocument(a.ID); err != nil {
			return ioErrorResult(err)
		}
		return textResult("deleted document " + a.ID + label)

	default:
		return invalidInput("unknown prizm_document action: " + a.Action)
	}
}

// documentServiceErr maps services-layer errors to tool-result error
// codes. The LOCKED text is a fixed Chinese notice with the current
// holder's session id substituted in.
func documentServiceErr(err error) *rpc.InvokeResponse {
	switch e := err.(type) {
	case *services.ResourceLocked:
		return errResult(CodeLocked, fmt.Sprintf("文档已被会话 %s 签出", e.HolderID))
	case *services.ResourceNotFound:
		return errResult(CodeNotFound, err.Error())
	case *services.InvalidInput:
		return errResult(CodeInvalidInput, err.Error())
	default:
		return ioErrorResult(err)
	}
}
