package services

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/types"
)

func TestTodoCreateListAndAddItem(t *testing.T) {
	s := newTestScope(t)
	svc := NewTodoService(s)

	list, err := svc.CreateList("sess-1", "Launch Checklist")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	updated, err := svc.AddItem("sess-1", list.ID, "Write docs", "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Title != "Write docs" {
		t.Fatalf("expected one item, got %+v", updated.Items)
	}

	if holder := s.Locks.Get(s.Config.ID, resourceTypeTodoList, list.ID); holder != nil {
		t.Fatalf("expected transient lock released after AddItem, got %+v", holder)
	}
}

func TestTodoSetItemStatus(t *testing.T) {
	s := newTestScope(t)
	svc := NewTodoService(s)

	list, err := svc.CreateList("sess-1", "Checklist")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	updated, err := svc.AddItem("sess-1", list.ID, "Task", "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	itemID := updated.Items[0].ID
	updated, err = svc.SetItemStatus("sess-1", list.ID, itemID, types.TodoStatusDone)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if updated.Items[0].Status != types.TodoStatusDone {
		t.Fatalf("expected status done, got %v", updated.Items[0].Status)
	}
}

func TestTodoDeleteListRejectsWhenLockedByAnotherSession(t *testing.T) {
	s := newTestScope(t)
	svc := NewTodoService(s)

	list, err := svc.CreateList("sess-1", "Checklist")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	res := s.Locks.Acquire(s.Config.ID, resourceTypeTodoList, list.ID, "sess-2", "editing")
	if !res.Success {
		t.Fatal("expected sess-2 to acquire the lock")
	}

	if err := svc.DeleteList("sess-1", list.ID); err == nil {
		t.Fatal("expected ResourceLocked")
	} else if _, ok := err.(*ResourceLocked); !ok {
		t.Fatalf("expected ResourceLocked, got %T: %v", err, err)
	}
}
