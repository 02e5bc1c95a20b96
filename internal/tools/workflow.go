package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workflow"
)

type workflowArgs struct {
	Action   string         `json:"action"`
	Name     string         `json:"name,omitempty"`
	RunID    string         `json:"runId,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Token    string         `json:"token,omitempty"`
	Approved bool           `json:"approved,omitempty"`
	Def      string         `json:"def,omitempty"`
}

// workflowTool implements prizm_workflow{run,resume,list,status,cancel,
// register,list_defs,get_def}, dispatched to the scope's
// workflow.Engine. "run" blocks the calling agent turn until the run
// completes, pauses at an approval gate, or fails — the engine itself
// handles everything non-blocking (cancellation, resumption) through its
// own durable state.
func (r *Registry) workflowTool(ctx context.Context, raw json.RawMessage, actor string) *rpc.InvokeResponse {
	if r.workflowEngine == nil {
		return errResult(CodeInvalidInput, "workflows are not available in this session")
	}

	var a workflowArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_workflow arguments: " + err.Error())
	}

	switch a.Action {
	case "register":
		if a.Def == "" {
			return invalidInput("def is required")
		}
		def, err := workflow.Parse([]byte(a.Def))
		if err != nil {
			return invalidInput(err.Error())
		}
		if err := r.workflowEngine.Register(def); err != nil {
			return ioErrorResult(err)
		}
		return textResult("registered workflow " + def.Name)

	case "list_defs":
		names, err := r.workflowEngine.ListDefs()
		if err != nil {
			return ioErrorResult(err)
		}
		return textResult(strings.Join(names, "\n"))

	case "get_def":
		if a.Name == "" {
			return invalidInput("name is required")
		}
		def, err := r.workflowEngine.GetDef(a.Name)
		if err != nil {
			return errResult(CodeNotFound, err.Error())
		}
		raw, err := workflow.Marshal(def)
		if err != nil {
			return ioErrorResult(err)
		}
		return textResult(string(raw))

	case "run":
		if a.Name == "" {
			return invalidInput("name is required")
		}
		r.RegisterWorkflowRun(a.Name)
		defer r.UnregisterWorkflowRun(a.Name)
		run, err := r.workflowEngine.Run(ctx, a.Name, a.Args, actor)
		if err != nil {
			return errResult(CodeNotFound, err.Error())
		}
		return runResult(run)

	case "resume":
		if a.Name == "" || a.RunID == "" {
			return invalidInput("name and runId are required")
		}
		run, err := r.workflowEngine.Resume(ctx, a.Name, a.RunID, a.Token, a.Approved, actor)
		if err != nil {
			return errResult(CodeConflict, err.Error())
		}
		return runResult(run)

	case "status":
		if a.Name == "" || a.RunID == "" {
			return invalidInput("name and runId are required")
		}
		run, err := r.workflowEngine.Status(a.Name, a.RunID)
		if err != nil {
			return ioErrorResult(err)
		}
		if run == nil {
			return errResult(CodeNotFound, fmt.Sprintf("no such run: %s", a.RunID))
		}
		return runResult(run)

	case "list":
		if a.Name == "" {
			return invalidInput("name is required")
		}
		runs, err := r.workflowEngine.List(a.Name)
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, run := range runs {
			fmt.Fprintf(&b, "%s\t%s\n", run.RunID, run.Status)
		}
		return textResult(b.String())

	case "cancel":
		if a.Name == "" || a.RunID == "" {
			return invalidInput("name and runId are required")
		}
		if err := r.workflowEngine.Cancel(a.Name, a.RunID); err != nil {
			return errResult(CodeNotFound, err.Error())
		}
		return textResult("cancelled run " + a.RunID)

	default:
		return invalidInput("unknown prizm_workflow action: " + a.Action)
	}
}

func runResult(run *workflow.Run) *rpc.InvokeResponse {
	data, _ := json.Marshal(run)
	text := fmt.Sprintf("run %s: %s", run.RunID, run.Status)
	if run.Status == workflow.StatusAwaitingApproval {
		text += fmt.Sprintf(" (resumeToken=%s)", run.ResumeToken)
	}
	if run.Status == workflow.StatusFailed {
		text += ": " + run.Error
	}
	return structuredResult(text, string(data))
}
