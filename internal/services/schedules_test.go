package services

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/types"
)

func TestScheduleCreateGetUpdateDelete(t *testing.T) {
	s := newTestScope(t)
	svc := NewScheduleService(s)

	item, err := svc.Create("sess-1", &types.ScheduleItem{
		Title:     "Standup",
		Type:      types.ScheduleEvent,
		StartTime: 1700000000000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Standup" {
		t.Fatalf("unexpected title %q", got.Title)
	}

	updated, err := svc.Update("sess-1", item.ID, func(i *types.ScheduleItem) {
		i.Status = types.ScheduleCompleted
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != types.ScheduleCompleted {
		t.Fatalf("expected status completed, got %v", updated.Status)
	}

	if err := svc.Delete("sess-1", item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(item.ID); err == nil {
		t.Fatal("expected ResourceNotFound after delete")
	}
}

func TestScheduleCreateRejectsMissingStartTime(t *testing.T) {
	s := newTestScope(t)
	svc := NewScheduleService(s)

	if _, err := svc.Create("sess-1", &types.ScheduleItem{Title: "No start"}); err == nil {
		t.Fatal("expected InvalidInput")
	} else if _, ok := err.(*InvalidInput); !ok {
		t.Fatalf("expected InvalidInput, got %T: %v", err, err)
	}
}
