// Package tools implements the built-in tool registry: a fixed
// catalogue of structured tools dispatched by name, each
// resolving its target path through internal/workspace, consulting
// internal/lock only when targeting the main workspace, and delegating
// to internal/services for the actual mutation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/workflow"
	"github.com/prizm-dev/prizm/internal/workspace"
)

// Registry is a scope's BuiltinToolRegistry: it implements
// rpc.ToolInvoker and rpc.Introspector so a daemon can wire it directly
// into an rpc.Server.
type Registry struct {
	scope *scope.Store

	documents *services.DocumentService
	todos     *services.TodoService
	schedules *services.ScheduleService
	cron      *services.CronService

	terminals      *terminal.Manager
	workflowEngine *workflow.Engine
	taskRunner     workflow.AgentRunner

	mu        sync.Mutex
	sessions  map[string]workspace.Context
	workflows map[string]struct{}

	taskMu sync.Mutex
	tasks  map[string]*backgroundTask
}

// NewRegistry builds a tool registry bound to one open scope. terminals,
// workflowEngine, taskRunner, and cronSvc may be nil, in which case the
// corresponding tool families report themselves as unavailable rather
// than panicking — useful for callers (tests, a read-only CLI) that
// never construct the full daemon wiring. cronSvc is built separately
// by the caller (cmd/prizmd) rather than here, since it can fail to
// start its scheduler and NewRegistry reports no error of its own.
func NewRegistry(s *scope.Store, terminals *terminal.Manager, workflowEngine *workflow.Engine, taskRunner workflow.AgentRunner, cronSvc *services.CronService) *Registry {
	return &Registry{
		scope:          s,
		documents:      services.NewDocumentService(s),
		todos:          services.NewTodoService(s),
		schedules:      services.NewScheduleService(s),
		cron:           cronSvc,
		terminals:      terminals,
		workflowEngine: workflowEngine,
		taskRunner:     taskRunner,
		sessions:       make(map[string]workspace.Context),
		workflows:      make(map[string]struct{}),
		tasks:          make(map[string]*backgroundTask),
	}
}

// RegisterSession associates sessionID with a workspace view (its
// session-temp root, and if it's a workflow run, the run/workflow
// roots and any granted paths). Tool calls made with this sessionID
// resolve paths against ctx until UnregisterSession.
func (r *Registry) RegisterSession(sessionID string, ctx workspace.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = ctx
}

// UnregisterSession drops sessionID's workspace view and releases any
// locks and checkpoints it held, the same teardown the lock manager
// applies when a session terminates.
func (r *Registry) UnregisterSession(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	r.scope.Locks.ReleaseSession(r.scope.Config.ID, sessionID)
	r.scope.Checkpoints.ClearSession(sessionID)
}

// RegisterWorkflowRun tracks an in-flight workflow run for ActiveWorkflows.
func (r *Registry) RegisterWorkflowRun(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[runID] = struct{}{}
}

// UnregisterWorkflowRun stops tracking a completed or cancelled run.
func (r *Registry) UnregisterWorkflowRun(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workflows, runID)
}

func (r *Registry) contextFor(sessionID string) workspace.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.sessions[sessionID]
	if !ok {
		return workspace.Context{ScopeRoot: r.scope.Root, SessionID: sessionID}
	}
	ctx.ScopeRoot = r.scope.Root
	ctx.SessionID = sessionID
	return ctx
}

// ActiveLocks implements rpc.Introspector.
func (r *Registry) ActiveLocks() int {
	return r.scope.Locks.ActiveCount(r.scope.Config.ID)
}

// ActiveSessions implements rpc.Introspector.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ActiveWorkflows implements rpc.Introspector.
func (r *Registry) ActiveWorkflows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}

// Invoke implements rpc.ToolInvoker: it dispatches toolName to its
// executor. Domain failures (locked, not found, bad input) are reported
// as an InvokeResponse with IsError set — the returned
// error is reserved for protocol-level problems like an unknown tool
// name, never a business-logic outcome.
func (r *Registry) Invoke(ctx context.Context, toolName string, args json.RawMessage, workspaceArg, sessionID, actor string) (*rpc.InvokeResponse, error) {
	wsCtx := r.contextFor(sessionID)
	wsType := workspace.Type(workspaceArg)

	switch toolName {
	case "prizm_file":
		return r.fileTool(wsCtx, wsType, args), nil
	case "prizm_document":
		return r.documentTool(wsCtx, wsType, args, sessionID, actor), nil
	case "prizm_todo":
		return r.todoTool(wsCtx, wsType, args, sessionID), nil
	case "prizm_schedule":
		return r.scheduleTool(wsCtx, wsType, args, sessionID), nil
	case "prizm_cron":
		return r.cronTool(args, sessionID), nil
	case "prizm_lock":
		return r.lockTool(args, sessionID), nil
	case "prizm_search":
		return r.searchTool(wsCtx, wsType, args), nil
	case "prizm_knowledge":
		return r.knowledgeTool(args, sessionID), nil
	case "prizm_promote_file":
		return r.promoteFileTool(wsCtx, args, sessionID, actor), nil
	case "prizm_terminal":
		return r.terminalTool(ctx, wsCtx, wsType, args, sessionID), nil
	case "prizm_workflow":
		return r.workflowTool(ctx, args, actor), nil
	case "prizm_spawn_task":
		return r.spawnTaskTool(args, actor), nil
	case "prizm_task_status":
		return r.taskStatusTool(args), nil
	case "prizm_set_result":
		return setResultTool(), nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
}

// storeForWorkspace resolves which mdstore.Store a non-locking file
// operation on rawPath should use: the scope's shared store when it
// targets main (so it benefits from no extra allocation), or a fresh
// store rooted at whatever other workspace root it resolved to — these
// have no cache state, so constructing one per call is cheap and always
// correct relative to the live filesystem.
func (r *Registry) storeForWorkspace(wsCtx workspace.Context, rawPath string, wsType workspace.Type) (*mdstore.Store, string, workspace.Type, bool) {
	res := workspace.Resolve(wsCtx, rawPath, wsType)
	if res == nil {
		return nil, "", "", false
	}
	if res.FileRoot == r.scope.Root {
		return r.scope.MD, res.RelativePath, res.WSType, true
	}
	return mdstore.New(res.FileRoot), res.RelativePath, res.WSType, true
}

// workspaceLabel returns the "(... workspace)" suffix appended to
// results targeting a non-main workspace.
func workspaceLabel(wsType workspace.Type) string {
	switch wsType {
	case workspace.TypeMain, "":
		return ""
	case workspace.TypeSession:
		return " (session workspace)"
	case workspace.TypeRun:
		return " (run workspace)"
	case workspace.TypeWorkflow:
		return " (workflow workspace)"
	case workspace.TypeGranted:
		return " (granted path)"
	default:
		return ""
	}
}
