package checkpoint

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/types"
)

func TestKeyFormat(t *testing.T) {
	if got := Key("doc", "d1"); got != "[doc:d1]" {
		t.Fatalf("Key = %q", got)
	}
	if got := Key("todo", "t9"); got != "[todo:t9]" {
		t.Fatalf("Key = %q", got)
	}
}

func TestCaptureOverwritesSameKey(t *testing.T) {
	s := New()

	s.Capture("s1", Key("doc", "d1"), Payload{Action: ActionUpdate, ContentBefore: "first"})
	s.Capture("s1", Key("doc", "d1"), Payload{Action: ActionUpdate, ContentBefore: "second"})

	p, ok := s.Get("s1", Key("doc", "d1"))
	if !ok {
		t.Fatal("expected a checkpoint")
	}
	if p.ContentBefore != "second" {
		t.Fatalf("ContentBefore = %q", p.ContentBefore)
	}
}

func TestConsumeIsOneShot(t *testing.T) {
	s := New()
	s.Capture("s1", Key("doc", "d1"), Payload{Action: ActionDelete})

	if _, ok := s.Consume("s1", Key("doc", "d1")); !ok {
		t.Fatal("first consume should succeed")
	}
	if _, ok := s.Consume("s1", Key("doc", "d1")); ok {
		t.Fatal("second consume should find nothing")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := New()
	s.Capture("s1", Key("doc", "d1"), Payload{Action: ActionUpdate})

	if _, ok := s.Get("s2", Key("doc", "d1")); ok {
		t.Fatal("s2 must not see s1's checkpoints")
	}
}

func TestClearSession(t *testing.T) {
	s := New()
	s.Capture("s1", Key("doc", "d1"), Payload{Action: ActionUpdate})
	s.Capture("s1", Key("todo", "t1"), Payload{Action: ActionModify, ListSnapshot: &types.TodoList{ID: "t1"}})

	s.ClearSession("s1")

	if _, ok := s.Get("s1", Key("doc", "d1")); ok {
		t.Fatal("checkpoints should be gone after ClearSession")
	}
	if _, ok := s.Get("s1", Key("todo", "t1")); ok {
		t.Fatal("checkpoints should be gone after ClearSession")
	}
}

func TestMarshalPayloadCarriesSnapshot(t *testing.T) {
	p := Payload{
		Action:       ActionModify,
		ListSnapshot: &types.TodoList{ID: "t1", Title: "Chores"},
	}
	raw, err := MarshalPayload(p)
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}
	if raw == "" || raw[0] != '{' {
		t.Fatalf("raw = %q", raw)
	}
}
