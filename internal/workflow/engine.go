package workflow

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/workspace"
)

// Engine is the workflow engine: it loads
// Definitions, runs them step by step against a durable Run record, and
// exposes resume tokens for approve steps.
type Engine struct {
	scope     *scope.Store
	locks     *lock.Manager
	bus       *events.Bus
	terminals *terminal.Manager
	runner    AgentRunner

	mu          sync.Mutex
	defs        map[string]*Definition
	cancelFuncs map[string]context.CancelFunc // runID -> cancel
}

// NewEngine builds an Engine bound to one open scope. runner may be nil
// if this process never executes agent steps (e.g. a CLI that only
// inspects run state).
func NewEngine(s *scope.Store, locks *lock.Manager, bus *events.Bus, terminals *terminal.Manager, runner AgentRunner) *Engine {
	return &Engine{
		scope:       s,
		locks:       locks,
		bus:         bus,
		terminals:   terminals,
		runner:      runner,
		defs:        make(map[string]*Definition),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// Register persists def's YAML under .prizm/workflows/defs and adds it
// to the in-memory catalogue.
func (e *Engine) Register(def *Definition) error {
	raw, err := Marshal(def)
	if err != nil {
		return err
	}
	rel := pathprovider.SystemDir + "/workflows/defs/" + def.Name + ".yaml"
	if err := e.scope.MD.WriteSystemFileByPath(rel, raw); err != nil {
		return err
	}
	e.mu.Lock()
	e.defs[def.Name] = def
	e.mu.Unlock()
	return nil
}

// GetDef returns a registered definition, loading it from disk on first
// access if it isn't already cached in memory.
func (e *Engine) GetDef(name string) (*Definition, error) {
	e.mu.Lock()
	if def, ok := e.defs[name]; ok {
		e.mu.Unlock()
		return def, nil
	}
	e.mu.Unlock()

	rel := pathprovider.SystemDir + "/workflows/defs/" + name + ".yaml"
	fi, err := e.scope.MD.ReadSystemFileByPath(rel)
	if err != nil {
		return nil, err
	}
	if fi == nil {
		return nil, fmt.Errorf("no such workflow: %s", name)
	}
	def, err := Parse([]byte(fi.Content))
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.defs[name] = def
	e.mu.Unlock()
	return def, nil
}

// ListDefs returns every registered definition name.
func (e *Engine) ListDefs() ([]string, error) {
	rel := pathprovider.SystemDir + "/workflows/defs"
	entries, err := e.scope.MD.ListDirectory(rel, false, true)
	if err != nil {
		if err == mdstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, ent := range entries {
		if ent.IsFile {
			names = append(names, trimYAMLSuffix(ent.Name))
		}
	}
	return names, nil
}

func trimYAMLSuffix(name string) string {
	for _, suf := range []string{".yaml", ".yml"} {
		if len(name) > len(suf) && name[len(name)-len(suf):] == suf {
			return name[:len(name)-len(suf)]
		}
	}
	return name
}

// Run starts a fresh run of the named workflow with the given initial
// bindings (typically the declared args), driving it synchronously to
// completion, an awaiting-approval pause, or failure. Callers that want
// non-blocking execution should call Run in their own goroutine; the
// Run's persisted state is always consistent with its returned value.
func (e *Engine) Run(ctx context.Context, workflowName string, args map[string]any, actor string) (*Run, error) {
	def, err := e.GetDef(workflowName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	run := &Run{
		RunID:        uuid.NewString(),
		WorkflowName: workflowName,
		Bindings:     copyBindings(args),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.ensureRunWorkspace(run); err != nil {
		return nil, err
	}
	if err := saveRun(e.scope.MD, run); err != nil {
		return nil, err
	}

	e.bus.Publish(events.Event{Topic: events.TopicWorkflowStarted, Scope: e.scope.Config.ID, Payload: run})
	return e.drive(ctx, def, run, actor)
}

// Resume continues a run that is StatusAwaitingApproval, matching token,
// and supplies whether the gate was approved.
func (e *Engine) Resume(ctx context.Context, workflowName, runID, token string, approved bool, actor string) (*Run, error) {
	def, err := e.GetDef(workflowName)
	if err != nil {
		return nil, err
	}
	run, err := loadRun(e.scope.MD, workflowName, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no such run: %s", runID)
	}
	if run.Status != StatusAwaitingApproval {
		return nil, fmt.Errorf("run %s is not awaiting approval (status=%s)", runID, run.Status)
	}
	if run.ResumeToken != token {
		return nil, fmt.Errorf("resume token mismatch for run %s", runID)
	}

	if !approved {
		run.Status = StatusCancelled
		run.Error = "approval denied"
		run.UpdatedAt = time.Now().UnixMilli()
		if err := saveRun(e.scope.MD, run); err != nil {
			return nil, err
		}
		return run, nil
	}

	run.CurrentStep++
	run.ResumeToken = ""
	return e.drive(ctx, def, run, actor)
}

// Status returns the current persisted state of a run.
func (e *Engine) Status(workflowName, runID string) (*Run, error) {
	return loadRun(e.scope.MD, workflowName, runID)
}

// List returns every run recorded for workflowName.
func (e *Engine) List(workflowName string) ([]*Run, error) {
	ids, err := listRunIDs(e.scope.MD, workflowName)
	if err != nil {
		return nil, err
	}
	var runs []*Run
	for _, id := range ids {
		r, err := loadRun(e.scope.MD, workflowName, id)
		if err != nil || r == nil {
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Cancel cooperatively cancels a running run: its context is cancelled
// (the running step observes it at its next suspension point), and once
// the drive loop unwinds, any locks it held are released and any
// terminals it spawned are closed.
func (e *Engine) Cancel(workflowName, runID string) error {
	e.mu.Lock()
	cancel, ok := e.cancelFuncs[runID]
	e.mu.Unlock()
	if ok {
		cancel()
		return nil
	}

	run, err := loadRun(e.scope.MD, workflowName, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no such run: %s", runID)
	}
	run.Status = StatusCancelled
	run.UpdatedAt = time.Now().UnixMilli()
	e.teardownRun(runID)
	return saveRun(e.scope.MD, run)
}

func copyBindings(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Engine) ensureRunWorkspace(run *Run) error {
	// This directory lives under .prizm, so it's created directly
	// (mdstore.MkdirByPath refuses system paths) —
	// the run workspace's *contents* remain addressable to tools through
	// workspace.Context.RunRoot, not through the generic file tools.
	dir := pathprovider.RunWorkspaceDir(e.scope.Root, run.WorkflowName, run.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run workspace: %w", err)
	}
	return nil
}

func (e *Engine) teardownRun(runID string) {
	e.locks.ReleaseSession(e.scope.Config.ID, runID)
	e.terminals.CloseOwnedBy(runID)
	e.mu.Lock()
	delete(e.cancelFuncs, runID)
	e.mu.Unlock()
}

// drive executes def.Steps starting at run.CurrentStep until the run
// completes, fails, is cancelled, or hits an approve gate.
func (e *Engine) drive(parent context.Context, def *Definition, run *Run, actor string) (*Run, error) {
	runCtx, cancel := context.WithCancel(parent)
	e.mu.Lock()
	e.cancelFuncs[run.RunID] = cancel
	e.mu.Unlock()
	defer cancel()

	run.Status = StatusRunning

	workflowWS := pathWorkflowWorkspace(e.scope.Root, def.Name)
	runWS := pathRunWorkspace(e.scope.Root, def.Name, run.RunID)

	for run.CurrentStep < len(def.Steps) {
		select {
		case <-runCtx.Done():
			run.Status = StatusCancelled
			run.UpdatedAt = time.Now().UnixMilli()
			e.teardownRun(run.RunID)
			_ = saveRun(e.scope.MD, run)
			return run, runCtx.Err()
		default:
		}

		step := def.Steps[run.CurrentStep]
		rec := StepRecord{Name: step.Name, Status: StepStatusRunning, StartedAt: time.Now().UnixMilli()}

		result, stepErr := e.runStepWithRetry(runCtx, &step, run, def, workflowWS, runWS, actor, &rec)
		rec.EndedAt = time.Now().UnixMilli()

		if stepErr != nil {
			rec.Status = StepStatusFailed
			rec.Error = stepErr.Error()
			run.StepHistory = append(run.StepHistory, rec)

			if step.RetryConfig != nil && step.RetryConfig.ContinueOnError {
				run.CurrentStep++
				continue
			}

			run.Status = StatusFailed
			run.Error = stepErr.Error()
			run.UpdatedAt = time.Now().UnixMilli()
			e.teardownRun(run.RunID)
			e.bus.Publish(events.Event{Topic: events.TopicWorkflowFailed, Scope: e.scope.Config.ID, Payload: run})
			_ = saveRun(e.scope.MD, run)
			return run, nil
		}

		if result.pause {
			rec.Status = StepStatusCompleted
			run.StepHistory = append(run.StepHistory, rec)
			run.Status = StatusAwaitingApproval
			run.ResumeToken = result.resumeToken
			run.UpdatedAt = time.Now().UnixMilli()
			e.bus.Publish(events.Event{Topic: events.TopicWorkflowStep, Scope: e.scope.Config.ID, Payload: run})
			return run, saveRun(e.scope.MD, run)
		}

		rec.Status = StepStatusCompleted
		rec.Output = result.output
		run.StepHistory = append(run.StepHistory, rec)
		for k, v := range result.bindings {
			run.Bindings[k] = v
		}
		run.Output = result.output
		run.StructuredData = result.structuredData
		run.CurrentStep++
		run.UpdatedAt = time.Now().UnixMilli()
		e.bus.Publish(events.Event{Topic: events.TopicWorkflowStep, Scope: e.scope.Config.ID, Payload: run})
		if err := saveRun(e.scope.MD, run); err != nil {
			return run, err
		}
	}

	run.Status = StatusCompleted
	run.UpdatedAt = time.Now().UnixMilli()
	e.teardownRun(run.RunID)
	e.bus.Publish(events.Event{Topic: events.TopicWorkflowDone, Scope: e.scope.Config.ID, Payload: run})
	return run, saveRun(e.scope.MD, run)
}

type stepOutcome struct {
	output         string
	structuredData string
	bindings       map[string]any
	pause          bool
	resumeToken    string
}

func (e *Engine) runStepWithRetry(ctx context.Context, step *Step, run *Run, def *Definition, workflowWS, runWS, actor string, rec *StepRecord) (*stepOutcome, error) {
	maxAttempts := 1
	backoff := time.Duration(0)
	if step.RetryConfig != nil && step.RetryConfig.MaxAttempts > 0 {
		maxAttempts = step.RetryConfig.MaxAttempts
		backoff = time.Duration(step.RetryConfig.BackoffMs) * time.Millisecond
	}

	timeout := def.DefaultStepTimeout()
	if step.TimeoutMs > 0 {
		timeout = time.Duration(step.TimeoutMs) * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec.Attempts = attempt
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := e.runStep(stepCtx, step, run, workflowWS, runWS, actor)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < maxAttempts && backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (e *Engine) runStep(ctx context.Context, step *Step, run *Run, workflowWS, runWS, actor string) (*stepOutcome, error) {
	switch step.Type {
	case StepApprove:
		return &stepOutcome{pause: true, resumeToken: uuid.NewString()}, nil

	case StepTransform:
		out, err := runTransform(ctx, step.Transform, run.Bindings, workflowWS)
		if err != nil {
			return nil, err
		}
		outputStr, _ := out["output"].(string)
		return &stepOutcome{output: outputStr, bindings: out}, nil

	case StepAgent:
		if e.runner == nil {
			return nil, fmt.Errorf("agent step %q: no AgentRunner configured", step.Name)
		}
		wsCtx := workspace.Context{
			ScopeRoot: e.scope.Root,
			RunRoot:   runWS,
			SessionID: run.RunID,
		}
		result, err := e.runner.RunAgentStep(ctx, step, run.Bindings, wsCtx, run.RunID, actor)
		if err != nil {
			return nil, err
		}
		return &stepOutcome{output: result.Output, structuredData: result.StructuredData}, nil

	default:
		return nil, fmt.Errorf("unknown step type %q", step.Type)
	}
}

func pathWorkflowWorkspace(scopeRoot, workflowName string) string {
	return pathprovider.WorkflowWorkspaceDir(scopeRoot, workflowName)
}

func pathRunWorkspace(scopeRoot, workflowName, runID string) string {
	return pathprovider.RunWorkspaceDir(scopeRoot, workflowName, runID)
}
