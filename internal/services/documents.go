package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/types"
)

const resourceTypeDocument = "document"

// DocumentService composes the document CRUD operations: every write
// checks/acquires the document's fencing lock,
// captures a pre-mutation checkpoint, persists through mdstore, appends a
// version, fires an event, and records an audit entry.
type DocumentService struct {
	scope *scope.Store
}

// NewDocumentService builds a DocumentService over an open scope.
func NewDocumentService(s *scope.Store) *DocumentService {
	return &DocumentService{scope: s}
}

// List returns every document in the scope, createdAt ascending.
func (d *DocumentService) List() ([]*types.Document, error) {
	return d.scope.MD.ReadAllDocuments()
}

// Get returns the document with the given id.
func (d *DocumentService) Get(id string) (*types.Document, error) {
	doc, err := d.scope.MD.ReadDocumentByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &ResourceNotFound{ResourceType: resourceTypeDocument, ResourceID: id}
	}
	return doc, nil
}

// Create makes a new document. New documents need no lock: nothing else
// can be racing to mutate an id that doesn't exist yet.
func (d *DocumentService) Create(sessionID, actor, title, body string, tags []string) (*types.Document, error) {
	if title == "" {
		return nil, &InvalidInput{Field: "title", Reason: "must not be empty"}
	}

	now := time.Now().UnixMilli()
	doc := &types.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.scope.MD.WriteDocument(doc); err != nil {
		d.audit(sessionID, audit.ActionCreate, doc.ID, title, audit.ResultError, err)
		return nil, err
	}
	if _, err := d.scope.Versions.SaveVersion(doc.ID, doc.Title, doc.Body, actor, "create"); err != nil {
		return nil, err
	}

	d.scope.Bus.Publish(events.Event{Topic: events.TopicDocumentCreated, Scope: d.scope.Config.ID, Payload: doc})
	d.audit(sessionID, audit.ActionCreate, doc.ID, title, audit.ResultSuccess, nil)
	return doc, nil
}

// Update overwrites a document's content and, when title is non-empty,
// retitles it — the id never changes, only the title-derived filename
// (mdstore.WriteDocument performs the rename). A title-only edit whose
// content hash is unchanged bumps no version. The caller's session must
// already hold (or is auto-granted) the document's lock; the lock is
// left held afterward so the model can choose when to check it back in
// via prizm_lock.checkin.
func (d *DocumentService) Update(sessionID, actor, id, title, content, changeReason string) (*types.Document, error) {
	doc, err := d.Get(id)
	if err != nil {
		return nil, err
	}

	fenceToken, err := d.acquireOrVerify(sessionID, id)
	if err != nil {
		d.audit(sessionID, audit.ActionUpdate, id, doc.Title, audit.ResultDenied, err)
		return nil, err
	}
	if err := d.scope.Locks.CheckFence(d.scope.Config.ID, resourceTypeDocument, id, fenceToken); err != nil {
		lockErr := &ResourceLocked{ResourceType: resourceTypeDocument, ResourceID: id, HolderID: d.holderID(id)}
		d.audit(sessionID, audit.ActionUpdate, id, doc.Title, audit.ResultDenied, lockErr)
		return nil, lockErr
	}

	d.scope.Checkpoints.Capture(sessionID, checkpoint.Key("document", id), checkpoint.Payload{
		Action:         checkpoint.ActionUpdate,
		ContentBefore:  doc.Body,
		DocumentBefore: doc,
	})

	if title != "" {
		doc.Title = title
	}
	doc.Body = content
	doc.UpdatedAt = time.Now().UnixMilli()

	if err := d.scope.Locks.CheckFence(d.scope.Config.ID, resourceTypeDocument, id, fenceToken); err != nil {
		lockErr := &ResourceLocked{ResourceType: resourceTypeDocument, ResourceID: id, HolderID: d.holderID(id)}
		d.audit(sessionID, audit.ActionUpdate, id, doc.Title, audit.ResultDenied, lockErr)
		return nil, lockErr
	}

	if err := d.scope.MD.WriteDocument(doc); err != nil {
		d.audit(sessionID, audit.ActionUpdate, id, doc.Title, audit.ResultError, err)
		return nil, err
	}
	if _, err := d.scope.Versions.SaveVersion(doc.ID, doc.Title, doc.Body, actor, changeReason); err != nil {
		return nil, err
	}

	d.scope.Bus.Publish(events.Event{Topic: events.TopicDocumentUpdated, Scope: d.scope.Config.ID, Payload: doc})
	d.audit(sessionID, audit.ActionUpdate, id, doc.Title, audit.ResultSuccess, nil)
	return doc, nil
}

// Delete removes a document. A delete auto-acquires the
// lock if needed and always releases it afterward, since there is
// nothing left to check back in.
func (d *DocumentService) Delete(sessionID, actor, id string) error {
	doc, err := d.Get(id)
	if err != nil {
		return err
	}

	fenceToken, err := d.acquireOrVerify(sessionID, id)
	if err != nil {
		d.audit(sessionID, audit.ActionDelete, id, doc.Title, audit.ResultDenied, err)
		return err
	}
	if err := d.scope.Locks.CheckFence(d.scope.Config.ID, resourceTypeDocument, id, fenceToken); err != nil {
		lockErr := &ResourceLocked{ResourceType: resourceTypeDocument, ResourceID: id, HolderID: d.holderID(id)}
		d.audit(sessionID, audit.ActionDelete, id, doc.Title, audit.ResultDenied, lockErr)
		return lockErr
	}

	d.scope.Checkpoints.Capture(sessionID, checkpoint.Key("document", id), checkpoint.Payload{
		Action:         checkpoint.ActionDelete,
		DocumentBefore: doc,
	})

	if err := d.scope.MD.DeleteDocument(id); err != nil {
		d.scope.Locks.Release(d.scope.Config.ID, resourceTypeDocument, id, sessionID)
		d.audit(sessionID, audit.ActionDelete, id, doc.Title, audit.ResultError, err)
		return err
	}

	d.scope.Locks.Release(d.scope.Config.ID, resourceTypeDocument, id, sessionID)
	d.scope.Bus.Publish(events.Event{Topic: events.TopicDocumentDeleted, Scope: d.scope.Config.ID, Payload: doc})
	d.audit(sessionID, audit.ActionDelete, id, doc.Title, audit.ResultSuccess, nil)
	return nil
}

// acquireOrVerify returns the fence token sessionID may write with: it
// reuses an already-held lock, auto-acquires an unheld one, or rejects
// with ResourceLocked if another session holds it.
func (d *DocumentService) acquireOrVerify(sessionID, id string) (uint64, error) {
	holder := d.scope.Locks.Get(d.scope.Config.ID, resourceTypeDocument, id)
	if holder == nil {
		res := d.scope.Locks.Acquire(d.scope.Config.ID, resourceTypeDocument, id, sessionID, "auto-acquired")
		if !res.Success {
			return 0, &ResourceLocked{ResourceType: resourceTypeDocument, ResourceID: id, HolderID: res.Holder.SessionID}
		}
		return res.FenceToken, nil
	}
	if holder.SessionID != sessionID {
		return 0, &ResourceLocked{ResourceType: resourceTypeDocument, ResourceID: id, HolderID: holder.SessionID}
	}
	return holder.FenceToken, nil
}

func (d *DocumentService) holderID(id string) string {
	if h := d.scope.Locks.Get(d.scope.Config.ID, resourceTypeDocument, id); h != nil {
		return h.SessionID
	}
	return ""
}

func (d *DocumentService) audit(sessionID string, action audit.Action, id, title string, result audit.Result, err error) {
	entry := &audit.Entry{
		SessionID:     sessionID,
		ToolName:      "prizm_document",
		Action:        action,
		ResourceType:  resourceTypeDocument,
		ResourceID:    id,
		ResourceTitle: title,
		Result:        result,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if _, auditErr := d.scope.Audit.Append(entry); auditErr != nil {
		fmt.Fprintf(auditFallback, "audit append failed: %v\n", auditErr)
	}
}
