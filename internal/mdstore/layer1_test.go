package mdstore

import (
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/types"
)

func TestDocumentTitleRenameMovesFile(t *testing.T) {
	s := newTestStore(t)

	doc := &types.Document{
		ID:        "d1",
		Title:     "Hello",
		Body:      "body unchanged",
		CreatedAt: 1,
		UpdatedAt: 1,
	}
	if err := s.WriteDocument(doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if doc.RelativePath != "Hello.md" {
		t.Fatalf("RelativePath = %q", doc.RelativePath)
	}

	doc.Title = "World"
	if err := s.WriteDocument(doc); err != nil {
		t.Fatalf("rename write: %v", err)
	}
	if doc.RelativePath != "World.md" {
		t.Fatalf("RelativePath after rename = %q", doc.RelativePath)
	}

	if fi, _ := s.ReadFileByPath("Hello.md"); fi != nil {
		t.Fatal("Hello.md should be gone after the rename")
	}

	got, err := s.ReadDocumentByID("d1")
	if err != nil {
		t.Fatalf("ReadDocumentByID: %v", err)
	}
	if got == nil || got.Title != "World" || got.Body != "body unchanged\n" {
		t.Fatalf("got %+v", got)
	}
}

func TestDocumentIDStableAcrossWriteReadCycles(t *testing.T) {
	s := newTestStore(t)

	doc := &types.Document{ID: "stable-id", Title: "Cycle", Body: "b", CreatedAt: 1, UpdatedAt: 1}
	if err := s.WriteDocument(doc); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := s.ReadDocumentByID("stable-id")
		if err != nil || got == nil {
			t.Fatalf("cycle %d read: %v %v", i, got, err)
		}
		if err := s.WriteDocument(got); err != nil {
			t.Fatalf("cycle %d write: %v", i, err)
		}
	}

	docs, err := s.ReadAllDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "stable-id" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestReadAllDocumentsSortsByCreatedAt(t *testing.T) {
	s := newTestStore(t)

	for _, d := range []*types.Document{
		{ID: "late", Title: "Late", CreatedAt: 300},
		{ID: "early", Title: "Early", CreatedAt: 100},
		{ID: "mid", Title: "Mid", CreatedAt: 200},
	} {
		if err := s.WriteDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := s.ReadAllDocuments()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if len(ids) != 3 || ids[0] != "early" || ids[1] != "mid" || ids[2] != "late" {
		t.Fatalf("order = %v", ids)
	}
}

func TestCorruptEntityFileIsSkippedNeverMutated(t *testing.T) {
	s := newTestStore(t)

	corrupt := "---\nprizm_type: document\nid: [unclosed\n---\nbody"
	if err := s.WriteFileByPath("corrupt.md", []byte(corrupt)); err != nil {
		t.Fatal(err)
	}
	good := &types.Document{ID: "ok", Title: "Good", CreatedAt: 1}
	if err := s.WriteDocument(good); err != nil {
		t.Fatal(err)
	}

	docs, err := s.ReadAllDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "ok" {
		t.Fatalf("docs = %+v", docs)
	}

	// The malformed file is untouched on disk.
	fi, err := s.ReadFileByPath("corrupt.md")
	if err != nil || fi == nil {
		t.Fatalf("corrupt.md read: %v %v", fi, err)
	}
}

func TestDeleteDocumentIdempotent(t *testing.T) {
	s := newTestStore(t)

	doc := &types.Document{ID: "d1", Title: "Gone", CreatedAt: 1}
	if err := s.WriteDocument(doc); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDocument("d1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteDocument("d1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	docs, err := s.ReadAllDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestTodoListRoundTrip(t *testing.T) {
	s := newTestStore(t)

	list := &types.TodoList{
		ID:        "t1",
		Title:     "Chores",
		CreatedAt: 1,
		UpdatedAt: 1,
		Items: []types.TodoItem{
			{ID: "i1", Title: "dishes", Status: types.TodoStatusTodo, CreatedAt: 1, UpdatedAt: 1},
			{ID: "i2", Title: "laundry", Description: "whites only", Status: types.TodoStatusDoing, CreatedAt: 2, UpdatedAt: 2},
		},
	}
	if err := s.WriteTodoList(list); err != nil {
		t.Fatalf("WriteTodoList: %v", err)
	}

	got, err := s.ReadTodoListByID("t1")
	if err != nil || got == nil {
		t.Fatalf("ReadTodoListByID: %v %v", got, err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %+v", got.Items)
	}
	if got.Items[1].Description != "whites only" || got.Items[1].Status != types.TodoStatusDoing {
		t.Fatalf("item 2 = %+v", got.Items[1])
	}
}

func TestClipboardItemsAreIDKeyedUnderSystemDir(t *testing.T) {
	s := newTestStore(t)

	item := &types.ClipboardItem{
		ID:        "c1",
		Type:      types.ClipboardText,
		SourceApp: "editor",
		CreatedAt: time.Now().UnixMilli(),
		Body:      "snippet",
	}
	if err := s.WriteClipboardItem(item); err != nil {
		t.Fatalf("WriteClipboardItem: %v", err)
	}

	// Invisible to the user-entity scan.
	docs, err := s.ReadAllDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Fatalf("clipboard items leaked into user scan: %+v", docs)
	}

	got, err := s.ReadClipboardItemByID("c1")
	if err != nil || got == nil {
		t.Fatalf("ReadClipboardItemByID: %v %v", got, err)
	}
	if got.Body != "snippet\n" || got.SourceApp != "editor" {
		t.Fatalf("got %+v", got)
	}

	if err := s.DeleteClipboardItem("c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteClipboardItem("c1"); err != nil {
		t.Fatalf("clipboard delete should be idempotent: %v", err)
	}
}

func TestTokenUsageAppendPreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	for i, model := range []string{"m-a", "m-b", "m-c"} {
		rec := &types.TokenUsageRecord{
			ID:           string(rune('a' + i)),
			UsageScope:   types.UsageChat,
			Timestamp:    int64(100 - i), // deliberately decreasing
			Model:        model,
			InputTokens:  10,
			OutputTokens: 5,
			TotalTokens:  15,
		}
		if err := s.AppendTokenUsage(rec); err != nil {
			t.Fatalf("AppendTokenUsage: %v", err)
		}
	}

	recs, err := s.ReadTokenUsage()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("recs = %+v", recs)
	}
	for i, want := range []string{"m-a", "m-b", "m-c"} {
		if recs[i].Model != want {
			t.Fatalf("record %d = %+v, want model %s", i, recs[i], want)
		}
	}
}

func TestAgentSessionSingleFileRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sess := &types.AgentSession{
		ID:        "s1",
		Scope:     "scope-1",
		CreatedAt: 1,
		UpdatedAt: 2,
		Messages: []types.Message{
			{ID: "m1", Role: types.RoleUser, Content: "hi", CreatedAt: 1},
			{
				ID: "m2", Role: types.RoleAssistant, Content: "hello", CreatedAt: 2, Model: "test-model",
				ToolCalls: []types.ToolCall{{ID: "tc1", Name: "prizm_file", Result: "ok"}},
				Usage:     &types.Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7},
			},
		},
	}
	if err := s.WriteAgentSession(sess); err != nil {
		t.Fatalf("WriteAgentSession: %v", err)
	}

	got, err := s.ReadAgentSessionByID("s1")
	if err != nil || got == nil {
		t.Fatalf("ReadAgentSessionByID: %v %v", got, err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %+v", got.Messages)
	}
	m2 := got.Messages[1]
	if m2.Model != "test-model" || len(m2.ToolCalls) != 1 || m2.ToolCalls[0].Name != "prizm_file" {
		t.Fatalf("m2 = %+v", m2)
	}
	if m2.Usage == nil || m2.Usage.TotalTokens != 7 {
		t.Fatalf("usage = %+v", m2.Usage)
	}
}

func TestLegacyAgentSessionLayoutReadAndMigratedOnWrite(t *testing.T) {
	s := newTestStore(t)

	// Hand-build the legacy per-session-directory layout.
	meta := "---\nprizm_type: agent_session\nid: legacy-1\nscope: sc\ncreatedAt: 10\nupdatedAt: 20\n---\n"
	if err := s.WriteSystemFileByPath(".prizm/agent-sessions/legacy-1/meta.md", []byte(meta)); err != nil {
		t.Fatal(err)
	}
	msg1 := "---\nid: m1\nrole: user\ncreatedAt: 11\n---\nfirst question"
	msg2 := "---\nid: m2\nrole: assistant\ncreatedAt: 12\n---\nfirst answer"
	if err := s.WriteSystemFileByPath(".prizm/agent-sessions/legacy-1/messages/000.md", []byte(msg1)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteSystemFileByPath(".prizm/agent-sessions/legacy-1/messages/001.md", []byte(msg2)); err != nil {
		t.Fatal(err)
	}

	sess, err := s.ReadAgentSessionByID("legacy-1")
	if err != nil || sess == nil {
		t.Fatalf("legacy read: %v %v", sess, err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("messages = %+v", sess.Messages)
	}
	if sess.Messages[0].Content != "first question" || sess.Messages[1].Content != "first answer" {
		t.Fatalf("legacy bodies not recovered: %+v", sess.Messages)
	}

	// A write migrates the session to the single-file layout.
	if err := s.WriteAgentSession(sess); err != nil {
		t.Fatalf("migrating write: %v", err)
	}
	if fi, _ := s.ReadSystemFileByPath(".prizm/agent-sessions/legacy-1/meta.md"); fi != nil {
		t.Fatal("legacy meta.md should be removed after write")
	}
	if fi, _ := s.ReadSystemFileByPath(".prizm/agent-sessions/legacy-1/session.md"); fi == nil {
		t.Fatal("session.md should exist after write")
	}

	again, err := s.ReadAgentSessionByID("legacy-1")
	if err != nil || again == nil || len(again.Messages) != 2 {
		t.Fatalf("post-migration read: %+v %v", again, err)
	}
}

func TestReadAllAgentSessionsSurvivesRestart(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	for _, id := range []string{"s1", "s2"} {
		sess := &types.AgentSession{ID: id, Scope: "sc", CreatedAt: 1, UpdatedAt: 1}
		if err := s.WriteAgentSession(sess); err != nil {
			t.Fatal(err)
		}
	}

	// A fresh store over the same root sees the same list.
	reopened := New(root)
	sessions, err := reopened.ReadAllAgentSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %+v", sessions)
	}
}
