package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type terminalArgs struct {
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
	Command    string `json:"command,omitempty"`
	TimeoutMs  int    `json:"timeoutMs,omitempty"`
	Data       string `json:"data,omitempty"`
	PressEnter bool   `json:"pressEnter,omitempty"`
	WaitMs     int    `json:"waitMs,omitempty"`
}

// terminalTool implements prizm_terminal{exec,start,send_keys,output,
// close}: one-shot commands and long-lived interactive
// PTYs, both started with the calling session's current workspace root
// as their working directory. Only the working directory is set; the
// spawned process is not confined to that root.
func (r *Registry) terminalTool(ctx context.Context, wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	if r.terminals == nil {
		return errResult(CodeInvalidInput, "terminals are not available in this session")
	}

	var a terminalArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_terminal arguments: " + err.Error())
	}

	switch a.Action {
	case "exec":
		if a.Command == "" {
			return invalidInput("command is required")
		}
		cwd := terminalCwd(wsCtx, wsType)
		result, err := r.terminals.Exec(ctx, sessionID, cwd, a.Command, time.Duration(a.TimeoutMs)*time.Millisecond)
		if err != nil {
			return ioErrorResult(err)
		}
		if result.TimedOut {
			return errResult(CodeTimeout, fmt.Sprintf("command timed out; output so far:\n%s", result.Output))
		}
		return structuredResult(result.Output, fmt.Sprintf(`{"exitCode":%d}`, result.ExitCode))

	case "start":
		cwd := terminalCwd(wsCtx, wsType)
		t, err := r.terminals.StartInteractive(sessionID, cwd)
		if err != nil {
			return ioErrorResult(err)
		}
		return textResult("started terminal " + t.ID)

	case "send_keys":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		out, err := r.terminals.SendKeys(a.ID, a.Data, a.PressEnter, a.WaitMs)
		if err != nil {
			return errResult(CodeNotFound, err.Error())
		}
		return textResult(out)

	case "output":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		out, err := r.terminals.GetRecentOutput(a.ID)
		if err != nil {
			return errResult(CodeNotFound, err.Error())
		}
		return textResult(out)

	case "close":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		if err := r.terminals.Close(a.ID); err != nil {
			return ioErrorResult(err)
		}
		return textResult("closed terminal " + a.ID)

	default:
		return invalidInput("unknown prizm_terminal action: " + a.Action)
	}
}

// terminalCwd picks the directory a new terminal process should start in:
// whatever root the caller's workspace argument resolved to, falling back
// to the scope root for a plain main-workspace call.
func terminalCwd(wsCtx workspace.Context, wsType workspace.Type) string {
	switch wsType {
	case workspace.TypeSession:
		if wsCtx.SessionRoot != "" {
			return wsCtx.SessionRoot
		}
	case workspace.TypeRun:
		if wsCtx.RunRoot != "" {
			return wsCtx.RunRoot
		}
	case workspace.TypeWorkflow:
		if wsCtx.WorkflowRoot != "" {
			return wsCtx.WorkflowRoot
		}
	}
	return wsCtx.ScopeRoot
}
