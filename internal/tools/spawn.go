package tools

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workflow"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type taskStatus string

const (
	taskStatusRunning   taskStatus = "running"
	taskStatusCompleted taskStatus = "completed"
	taskStatusFailed    taskStatus = "failed"

	defaultTaskTimeout = 10 * time.Minute
)

// backgroundTask is one prizm_spawn_task run: a fire-and-forget agent
// session whose outcome a caller later polls with prizm_task_status.
type backgroundTask struct {
	mu             sync.Mutex
	id             string
	status         taskStatus
	output         string
	structuredData string
	errText        string
}

func (t *backgroundTask) snapshot() (taskStatus, string, string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.output, t.structuredData, t.errText
}

func (t *backgroundTask) finish(result *workflow.AgentStepResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.status = taskStatusFailed
		t.errText = err.Error()
		return
	}
	t.status = taskStatusCompleted
	t.output = result.Output
	t.structuredData = result.StructuredData
}

type spawnTaskArgs struct {
	Prompt    string `json:"prompt"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// spawnTaskTool implements prizm_spawn_task: it starts a
// background agent session bound to a fresh session workspace, running
// the same agent loop an "agent" workflow step uses, and returns
// immediately with a task id a caller polls via prizm_task_status. The
// session terminates the moment its agent calls prizm_set_result, at
// which point the loop returns and this task's result is recorded.
func (r *Registry) spawnTaskTool(raw json.RawMessage, actor string) *rpc.InvokeResponse {
	if r.taskRunner == nil {
		return errResult(CodeInvalidInput, "background tasks are not available in this session")
	}

	var a spawnTaskArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_spawn_task arguments: " + err.Error())
	}
	if a.Prompt == "" {
		return invalidInput("prompt is required")
	}

	taskID := uuid.NewString()
	wsRoot := pathprovider.AgentSessionWorkspaceDir(r.scope.Root, taskID)
	if err := os.MkdirAll(wsRoot, 0o755); err != nil {
		return ioErrorResult(err)
	}
	wsCtx := workspace.Context{ScopeRoot: r.scope.Root, SessionRoot: wsRoot, SessionID: taskID}
	r.RegisterSession(taskID, wsCtx)

	t := &backgroundTask{id: taskID, status: taskStatusRunning}
	r.taskMu.Lock()
	r.tasks[taskID] = t
	r.taskMu.Unlock()

	timeout := defaultTaskTimeout
	if a.TimeoutMs > 0 {
		timeout = time.Duration(a.TimeoutMs) * time.Millisecond
	}
	step := &workflow.Step{Name: "spawn-task", Type: workflow.StepAgent, Prompt: a.Prompt}

	go func() {
		defer r.UnregisterSession(taskID)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := r.taskRunner.RunAgentStep(ctx, step, nil, wsCtx, taskID, actor)
		t.finish(result, err)
	}()

	return textResult("spawned task " + taskID)
}

type taskStatusArgs struct {
	ID string `json:"id"`
}

// taskStatusTool implements prizm_task_status.
func (r *Registry) taskStatusTool(raw json.RawMessage) *rpc.InvokeResponse {
	var a taskStatusArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_task_status arguments: " + err.Error())
	}
	if a.ID == "" {
		return invalidInput("id is required")
	}

	r.taskMu.Lock()
	t, ok := r.tasks[a.ID]
	r.taskMu.Unlock()
	if !ok {
		return errResult(CodeNotFound, "no such task: "+a.ID)
	}

	status, output, structuredData, errText := t.snapshot()
	if status == taskStatusFailed {
		return errResult(CodeIOError, errText)
	}
	return structuredResult(output, structuredData)
}

// setResultTool reports that prizm_set_result was invoked outside the
// agent loop that normally intercepts it. A workflow agent step or
// spawned task's own turn never reaches this: workflow.LLMAgentRunner
// recognizes the call by name and ends the session's loop directly,
// terminating that session. Any other caller has nothing to terminate.
func setResultTool() *rpc.InvokeResponse {
	return invalidInput("prizm_set_result may only be called from within a spawned agent or workflow-step session")
}
