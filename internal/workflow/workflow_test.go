package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/workspace"
)

func TestParseRejectsEmptySteps(t *testing.T) {
	_, err := Parse([]byte("name: empty\nsteps: []\n"))
	if err == nil {
		t.Fatal("expected error for a workflow with no steps")
	}
}

func TestParseAssignsDefaultStepNames(t *testing.T) {
	def, err := Parse([]byte(`
name: greet
steps:
  - type: transform
    transform:
      template: "hi {{.who}}"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Steps[0].Name != "step-1" {
		t.Fatalf("expected default step name, got %q", def.Steps[0].Name)
	}
}

func TestValidateRejectsMismatchedFields(t *testing.T) {
	s := Step{Type: StepAgent}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error: agent step missing prompt")
	}
}

func TestRunTemplateTransform(t *testing.T) {
	out, err := runTemplateTransform("hello {{.name}}", map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("runTemplateTransform: %v", err)
	}
	if out["output"] != "hello world" {
		t.Fatalf("unexpected output: %v", out["output"])
	}
}

type fakeAgentRunner struct {
	calls int
}

func (f *fakeAgentRunner) RunAgentStep(ctx context.Context, step *Step, bindings map[string]any, wsCtx workspace.Context, sessionID, actor string) (*AgentStepResult, error) {
	f.calls++
	return &AgentStepResult{Output: "done: " + step.Name}, nil
}

func newTestEngine(t *testing.T, runner AgentRunner) *Engine {
	t.Helper()
	root := t.TempDir()
	locks := lock.New()
	bus := events.New()
	s, err := scope.Open(root, locks, bus)
	if err != nil {
		t.Fatalf("scope.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewEngine(s, locks, bus, terminal.New(), runner)
}

func TestEngineRunsTransformAndAgentSteps(t *testing.T) {
	fake := &fakeAgentRunner{}
	e := newTestEngine(t, fake)

	def, err := Parse([]byte(`
name: pipeline
steps:
  - name: prep
    type: transform
    transform:
      template: "{{.greeting}}, world"
  - name: act
    type: agent
    prompt: "do something with {{.greeting}}"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Register(def); err != nil {
		t.Fatal(err)
	}

	run, err := e.Run(context.Background(), "pipeline", map[string]any{"greeting": "hello"}, "tester")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("expected completed run, got %s (err=%s)", run.Status, run.Error)
	}
	if fake.calls != 1 {
		t.Fatalf("expected agent runner to be called once, got %d", fake.calls)
	}
	if len(run.StepHistory) != 2 {
		t.Fatalf("expected 2 step history entries, got %d", len(run.StepHistory))
	}
}

func TestEngineApprovePauseAndResume(t *testing.T) {
	e := newTestEngine(t, &fakeAgentRunner{})

	def, err := Parse([]byte(`
name: gated
steps:
  - name: gate
    type: approve
    approvePrompt: "proceed?"
  - name: after
    type: transform
    transform:
      template: "approved"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Register(def); err != nil {
		t.Fatal(err)
	}

	run, err := e.Run(context.Background(), "gated", nil, "tester")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != StatusAwaitingApproval {
		t.Fatalf("expected awaiting-approval, got %s", run.Status)
	}
	if run.ResumeToken == "" {
		t.Fatal("expected a resume token")
	}

	resumed, err := e.Resume(context.Background(), "gated", run.RunID, run.ResumeToken, true, "tester")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != StatusCompleted {
		t.Fatalf("expected completed after resume, got %s", resumed.Status)
	}
}

func TestEngineResumeRejectsWrongToken(t *testing.T) {
	e := newTestEngine(t, &fakeAgentRunner{})
	def, err := Parse([]byte(`
name: gated2
steps:
  - type: approve
    approvePrompt: "go?"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Register(def); err != nil {
		t.Fatal(err)
	}

	run, err := e.Run(context.Background(), "gated2", nil, "tester")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Resume(context.Background(), "gated2", run.RunID, "wrong-token", true, "tester"); err == nil {
		t.Fatal("expected resume with wrong token to fail")
	}
}

func TestEngineContinueOnErrorSkipsFailedStep(t *testing.T) {
	e := newTestEngine(t, &fakeAgentRunner{})
	def, err := Parse([]byte(`
name: resilient
steps:
  - name: broken
    type: transform
    retryConfig:
      maxAttempts: 1
      continueOnError: true
    transform:
      module: does-not-exist.wasm
  - name: recover
    type: transform
    transform:
      template: "recovered"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Register(def); err != nil {
		t.Fatal(err)
	}

	run, err := e.Run(context.Background(), "resilient", nil, "tester")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("expected completed run despite first-step failure, got %s", run.Status)
	}
	if run.StepHistory[0].Status != StepStatusFailed {
		t.Fatalf("expected first step recorded as failed, got %s", run.StepHistory[0].Status)
	}
}

func TestEngineCancelDuringAgentStep(t *testing.T) {
	blockingRunner := &blockingAgentRunner{started: make(chan struct{})}
	e := newTestEngine(t, blockingRunner)
	def, err := Parse([]byte(`
name: longrun
steps:
  - name: wait
    type: agent
    prompt: "wait"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Register(def); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Run, 1)
	go func() {
		run, _ := e.Run(ctx, "longrun", nil, "tester")
		done <- run
	}()

	<-blockingRunner.started
	cancel()

	select {
	case run := <-done:
		if run.Status != StatusCancelled && run.Status != StatusFailed {
			t.Fatalf("expected cancelled/failed run, got %s", run.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type blockingAgentRunner struct {
	started chan struct{}
}

func (b *blockingAgentRunner) RunAgentStep(ctx context.Context, step *Step, bindings map[string]any, wsCtx workspace.Context, sessionID, actor string) (*AgentStepResult, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}
