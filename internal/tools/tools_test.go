package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/workflow"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type fakeAgentRunner struct {
	output string
}

func (f *fakeAgentRunner) RunAgentStep(ctx context.Context, step *workflow.Step, bindings map[string]any, wsCtx workspace.Context, sessionID, actor string) (*workflow.AgentStepResult, error) {
	return &workflow.AgentStepResult{Output: f.output}, nil
}

func newTestRegistry(t *testing.T, runner workflow.AgentRunner) *Registry {
	t.Helper()
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()
	s, err := scope.Open(root, locks, bus)
	if err != nil {
		t.Fatalf("scope.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	terminals := terminal.New()
	engine := workflow.NewEngine(s, locks, bus, terminals, runner)
	return NewRegistry(s, terminals, engine, runner, nil)
}

func TestTerminalExecRoundTrip(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})
	resp, err := r.Invoke(context.Background(), "prizm_terminal",
		json.RawMessage(`{"action":"exec","command":"echo hello"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.IsError {
		t.Fatalf("unexpected error response: %s", resp.Text)
	}
	if resp.Text != "hello\n" {
		t.Fatalf("unexpected output: %q", resp.Text)
	}
}

func TestTerminalUnknownIDIsNotFound(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})
	resp, err := r.Invoke(context.Background(), "prizm_terminal",
		json.RawMessage(`{"action":"output","id":"missing"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.IsError || resp.Text[:11] != "[NOT_FOUND]" {
		t.Fatalf("expected NOT_FOUND, got %q", resp.Text)
	}
}

func TestWorkflowToolRegisterAndRun(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{output: "done"})

	def := `
name: greet
steps:
  - name: act
    type: agent
    prompt: "say hi"
`
	regArgs, _ := json.Marshal(map[string]any{"action": "register", "def": def})
	resp, err := r.Invoke(context.Background(), "prizm_workflow", regArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("register: err=%v resp=%+v", err, resp)
	}

	runArgs, _ := json.Marshal(map[string]any{"action": "run", "name": "greet"})
	resp, err = r.Invoke(context.Background(), "prizm_workflow", runArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("run: err=%v resp=%+v", err, resp)
	}

	listArgs, _ := json.Marshal(map[string]any{"action": "list_defs"})
	resp, err = r.Invoke(context.Background(), "prizm_workflow", listArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("list_defs: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "greet" {
		t.Fatalf("expected 'greet' in list_defs output, got %q", resp.Text)
	}
}

func TestWorkflowToolUnavailableWithoutEngine(t *testing.T) {
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()
	s, err := scope.Open(root, locks, bus)
	if err != nil {
		t.Fatalf("scope.Open: %v", err)
	}
	defer s.Close()

	r := NewRegistry(s, nil, nil, nil, nil)
	resp, err := r.Invoke(context.Background(), "prizm_workflow",
		json.RawMessage(`{"action":"list_defs"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.IsError {
		t.Fatal("expected an error response when no workflow engine is wired")
	}
}

func TestSpawnTaskAndPollStatus(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{output: "task finished"})

	spawnArgs, _ := json.Marshal(map[string]any{"prompt": "do the thing"})
	resp, err := r.Invoke(context.Background(), "prizm_spawn_task", spawnArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("spawn_task: err=%v resp=%+v", err, resp)
	}

	taskID := resp.Text[len("spawned task "):]

	var final *rpcInvokeResponseAlias
	for i := 0; i < 1000; i++ {
		statusArgs, _ := json.Marshal(map[string]any{"id": taskID})
		r2, err := r.Invoke(context.Background(), "prizm_task_status", statusArgs, "main", "s1", "tester")
		if err != nil {
			t.Fatalf("task_status: %v", err)
		}
		if r2.Text != "" {
			final = &rpcInvokeResponseAlias{Text: r2.Text, IsError: r2.IsError}
			break
		}
		time.Sleep(time.Millisecond)
	}
	if final == nil {
		t.Fatal("task never reported a result")
	}
	if final.Text != "task finished" {
		t.Fatalf("unexpected task output: %q", final.Text)
	}
}

func TestSetResultRejectedOutsideAgentLoop(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})
	resp, err := r.Invoke(context.Background(), "prizm_set_result", json.RawMessage(`{"text":"x"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.IsError {
		t.Fatal("expected prizm_set_result to be rejected outside an agent loop")
	}
}

func TestCronToolUnavailableWithoutService(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})
	resp, err := r.Invoke(context.Background(), "prizm_cron", json.RawMessage(`{"action":"list"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.IsError {
		t.Fatal("expected an error response when no cron service is wired")
	}
}

func TestCronToolLifecycle(t *testing.T) {
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()
	s, err := scope.Open(root, locks, bus)
	if err != nil {
		t.Fatalf("scope.Open: %v", err)
	}
	defer s.Close()

	terminals := terminal.New()
	engine := workflow.NewEngine(s, locks, bus, terminals, nil)
	cronSvc, err := services.NewCronService(s, engine)
	if err != nil {
		t.Fatalf("NewCronService: %v", err)
	}
	defer cronSvc.Stop()

	r := NewRegistry(s, terminals, engine, nil, cronSvc)

	createArgs, _ := json.Marshal(map[string]any{
		"action":       "create",
		"name":         "nightly digest",
		"expression":   "0 2 * * *",
		"workflowName": "digest",
		"enabled":      true,
	})
	resp, err := r.Invoke(context.Background(), "prizm_cron", createArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("create: err=%v resp=%+v", err, resp)
	}
	jobID := resp.Text[len("created cron job "):]

	listResp, err := r.Invoke(context.Background(), "prizm_cron", json.RawMessage(`{"action":"list"}`), "main", "s1", "tester")
	if err != nil || listResp.IsError {
		t.Fatalf("list: err=%v resp=%+v", err, listResp)
	}
	if listResp.Text == "" {
		t.Fatal("expected the newly created job in the list output")
	}

	pauseArgs, _ := json.Marshal(map[string]any{"action": "pause", "id": jobID})
	if resp, err := r.Invoke(context.Background(), "prizm_cron", pauseArgs, "main", "s1", "tester"); err != nil || resp.IsError {
		t.Fatalf("pause: err=%v resp=%+v", err, resp)
	}

	deleteArgs, _ := json.Marshal(map[string]any{"action": "delete", "id": jobID})
	if resp, err := r.Invoke(context.Background(), "prizm_cron", deleteArgs, "main", "s1", "tester"); err != nil || resp.IsError {
		t.Fatalf("delete: err=%v resp=%+v", err, resp)
	}
}

func TestKnowledgeClipboardLifecycle(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})

	addArgs, _ := json.Marshal(map[string]any{"action": "clip_add", "content": "copied text", "sourceApp": "editor"})
	resp, err := r.Invoke(context.Background(), "prizm_knowledge", addArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("clip_add: err=%v resp=%+v", err, resp)
	}
	clipID := resp.Text[len("clipped "):]

	getArgs, _ := json.Marshal(map[string]any{"action": "clip_get", "id": clipID})
	resp, err = r.Invoke(context.Background(), "prizm_knowledge", getArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("clip_get: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "copied text\n" {
		t.Fatalf("clip_get returned %q", resp.Text)
	}

	delArgs, _ := json.Marshal(map[string]any{"action": "clip_delete", "id": clipID})
	if resp, err := r.Invoke(context.Background(), "prizm_knowledge", delArgs, "main", "s1", "tester"); err != nil || resp.IsError {
		t.Fatalf("clip_delete: err=%v resp=%+v", err, resp)
	}

	resp, err = r.Invoke(context.Background(), "prizm_knowledge", json.RawMessage(`{"action":"clip_list"}`), "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("clip_list: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "clipboard is empty" {
		t.Fatalf("expected an empty clipboard after delete, got %q", resp.Text)
	}
}

func TestKnowledgeRememberRecall(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})

	rememberArgs, _ := json.Marshal(map[string]any{"action": "remember", "content": "the user prefers tabs"})
	if resp, err := r.Invoke(context.Background(), "prizm_knowledge", rememberArgs, "main", "s1", "tester"); err != nil || resp.IsError {
		t.Fatalf("remember: err=%v resp=%+v", err, resp)
	}
	rememberArgs, _ = json.Marshal(map[string]any{"action": "remember", "content": "builds run on port 8080"})
	if resp, err := r.Invoke(context.Background(), "prizm_knowledge", rememberArgs, "main", "s1", "tester"); err != nil || resp.IsError {
		t.Fatalf("remember: err=%v resp=%+v", err, resp)
	}

	resp, err := r.Invoke(context.Background(), "prizm_knowledge", json.RawMessage(`{"action":"recall"}`), "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("recall: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "the user prefers tabs\n\nbuilds run on port 8080\n" {
		t.Fatalf("recall returned %q", resp.Text)
	}

	// Another session's memories are separate.
	resp, err = r.Invoke(context.Background(), "prizm_knowledge", json.RawMessage(`{"action":"recall"}`), "main", "s2", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("recall s2: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "no memories recorded for this session" {
		t.Fatalf("expected s2 to have no memories, got %q", resp.Text)
	}
}

func TestPromoteFileMovesSessionDraftToMain(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})

	sessionRoot := t.TempDir()
	r.RegisterSession("s1", workspace.Context{SessionRoot: sessionRoot})

	createArgs, _ := json.Marshal(map[string]any{"action": "create", "title": "Draft", "body": "work in progress"})
	resp, err := r.Invoke(context.Background(), "prizm_document", createArgs, "session", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("create in session workspace: err=%v resp=%+v", err, resp)
	}
	docID := resp.Text[len("created document "):]
	docID = docID[:len(docID)-len(" (session workspace)")]

	// The global list must not see the draft.
	resp, err = r.Invoke(context.Background(), "prizm_document", json.RawMessage(`{"action":"list"}`), "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("global list: err=%v resp=%+v", err, resp)
	}
	if resp.Text != "" {
		t.Fatalf("global list should be empty before promote, got %q", resp.Text)
	}

	// The session-scoped list does.
	resp, err = r.Invoke(context.Background(), "prizm_document", json.RawMessage(`{"action":"list"}`), "session", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("session list: err=%v resp=%+v", err, resp)
	}
	if resp.Text == " (session workspace)" {
		t.Fatal("session list should contain the draft")
	}

	promoteArgs, _ := json.Marshal(map[string]any{"fileId": docID})
	resp, err = r.Invoke(context.Background(), "prizm_promote_file", promoteArgs, "main", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("promote: err=%v resp=%+v", err, resp)
	}

	// Now the global list shows it, with the id preserved.
	doc, err := r.documents.Get(docID)
	if err != nil {
		t.Fatalf("Get after promote: %v", err)
	}
	if doc.Title != "Draft" || doc.Body != "work in progress\n" {
		t.Fatalf("promoted document mismatch: %+v", doc)
	}

	// And the session workspace no longer holds it.
	resp, err = r.Invoke(context.Background(), "prizm_document", json.RawMessage(`{"action":"list"}`), "session", "s1", "tester")
	if err != nil || resp.IsError {
		t.Fatalf("session list after promote: err=%v resp=%+v", err, resp)
	}
	if resp.Text != " (session workspace)" {
		t.Fatalf("session list should be empty after promote, got %q", resp.Text)
	}
}

func TestPromoteFileUnknownIDIsNotFound(t *testing.T) {
	r := newTestRegistry(t, &fakeAgentRunner{})
	r.RegisterSession("s1", workspace.Context{SessionRoot: t.TempDir()})

	resp, err := r.Invoke(context.Background(), "prizm_promote_file", json.RawMessage(`{"fileId":"nope"}`), "main", "s1", "tester")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resp.IsError {
		t.Fatal("expected NOT_FOUND for an unknown fileId")
	}
}

// rpcInvokeResponseAlias avoids importing internal/rpc just for a
// two-field snapshot in the polling loop above.
type rpcInvokeResponseAlias struct {
	Text    string
	IsError bool
}
