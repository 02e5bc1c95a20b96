package services

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/scope"
)

func newTestScope(t *testing.T) *scope.Store {
	t.Helper()
	s, err := scope.Open(t.TempDir(), lock.New(), events.New())
	if err != nil {
		t.Fatalf("scope.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentCreateAndGet(t *testing.T) {
	s := newTestScope(t)
	svc := NewDocumentService(s)

	doc, err := svc.Create("sess-1", "actor-1", "Meeting Notes", "first draft", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "first draft\n" {
		t.Fatalf("expected body to round-trip, got %q", got.Body)
	}

	versions, err := s.Versions.GetVersionHistory(doc.ID)
	if err != nil {
		t.Fatalf("GetVersionHistory: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected one version after create, got %d", len(versions))
	}
}

func TestDocumentUpdateLeavesLockHeldForCaller(t *testing.T) {
	s := newTestScope(t)
	svc := NewDocumentService(s)

	doc, err := svc.Create("sess-1", "actor-1", "Doc", "v1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update("sess-1", "actor-1", doc.ID, "", "v2", "edit"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	holder := s.Locks.Get(s.Config.ID, resourceTypeDocument, doc.ID)
	if holder == nil || holder.SessionID != "sess-1" {
		t.Fatalf("expected sess-1 to still hold the lock after update, got %+v", holder)
	}

	if _, err := svc.Update("sess-2", "actor-2", doc.ID, "", "v3", "edit"); err == nil {
		t.Fatal("expected second session to be rejected while first holds the lock")
	} else if _, ok := err.(*ResourceLocked); !ok {
		t.Fatalf("expected ResourceLocked, got %T: %v", err, err)
	}
}

func TestDocumentUpdateRetitleMovesFileKeepsVersionCount(t *testing.T) {
	s := newTestScope(t)
	svc := NewDocumentService(s)

	doc, err := svc.Create("sess-1", "actor-1", "Hello", "same body", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.RelativePath != "Hello.md" {
		t.Fatalf("RelativePath = %q", doc.RelativePath)
	}

	// Title-only change, identical content: file renamed, no new version.
	updated, err := svc.Update("sess-1", "actor-1", doc.ID, "World", "same body", "rename")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.RelativePath != "World.md" || updated.Title != "World" {
		t.Fatalf("updated = %+v", updated)
	}
	if fi, _ := s.MD.ReadFileByPath("Hello.md"); fi != nil {
		t.Fatal("Hello.md should be gone after the retitle")
	}
	got, err := svc.Get(doc.ID)
	if err != nil {
		t.Fatalf("Get after retitle: %v", err)
	}
	if got.ID != doc.ID || got.Body != "same body\n" {
		t.Fatalf("got %+v", got)
	}

	versions, err := s.Versions.GetVersionHistory(doc.ID)
	if err != nil {
		t.Fatalf("GetVersionHistory: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected version count unchanged by a title-only edit, got %d", len(versions))
	}

	// A retitle with changed content appends a version as usual.
	if _, err := svc.Update("sess-1", "actor-1", doc.ID, "World Two", "new body", "edit"); err != nil {
		t.Fatalf("Update with content change: %v", err)
	}
	versions, err = s.Versions.GetVersionHistory(doc.ID)
	if err != nil {
		t.Fatalf("GetVersionHistory: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions after a content change, got %d", len(versions))
	}
}

func TestDocumentUpdateRejectsUnknownID(t *testing.T) {
	s := newTestScope(t)
	svc := NewDocumentService(s)

	if _, err := svc.Update("sess-1", "actor-1", "does-not-exist", "", "v2", "edit"); err == nil {
		t.Fatal("expected ResourceNotFound")
	} else if _, ok := err.(*ResourceNotFound); !ok {
		t.Fatalf("expected ResourceNotFound, got %T: %v", err, err)
	}
}

func TestDocumentDeleteReleasesLock(t *testing.T) {
	s := newTestScope(t)
	svc := NewDocumentService(s)

	doc, err := svc.Create("sess-1", "actor-1", "Doc", "v1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete("sess-1", "actor-1", doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if holder := s.Locks.Get(s.Config.ID, resourceTypeDocument, doc.ID); holder != nil {
		t.Fatalf("expected lock released after delete, got %+v", holder)
	}
	if got, err := svc.Get(doc.ID); err == nil {
		t.Fatalf("expected ResourceNotFound after delete, got %+v", got)
	}
}
