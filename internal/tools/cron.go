package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/types"
)

type cronArgs struct {
	Action       string         `json:"action"`
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Expression   string         `json:"expression"`
	WorkflowName string         `json:"workflowName,omitempty"`
	WorkflowArgs map[string]any `json:"workflowArgs,omitempty"`
	Enabled      bool           `json:"enabled,omitempty"`
}

// cronTool implements prizm_cron{list,read,create,update,delete,pause,
// resume}: recurring triggers bound to a workflow run, kept
// separate from prizm_schedule's one-off calendar items per
// services.CronService. Unavailable (CodeConflict-free, plain IO error)
// if this process never built a CronService, same convention
// workflowTool/terminalTool use for their own optional dependencies.
func (r *Registry) cronTool(raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	var a cronArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_cron arguments: " + err.Error())
	}
	if r.cron == nil {
		return errResult(CodeIOError, "cron scheduling is not available in this process")
	}

	switch a.Action {
	case "list":
		jobs, err := r.cron.List()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, j := range jobs {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\tenabled=%v\n", j.ID, j.Name, j.Expression, j.WorkflowName, j.Enabled)
		}
		return textResult(b.String())

	case "read":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		job, err := r.cron.Get(a.ID)
		if err != nil {
			return cronServiceErr(err)
		}
		return textResult(fmt.Sprintf("%s: %s -> workflow %s (enabled=%v, lastRunAt=%d)",
			job.Name, job.Expression, job.WorkflowName, job.Enabled, job.LastRunAt))

	case "create":
		job, err := r.cron.Create(sessionID, a.Name, a.Expression, a.WorkflowName, a.WorkflowArgs, a.Enabled)
		if err != nil {
			return cronServiceErr(err)
		}
		return textResult("created cron job " + job.ID)

	case "update":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		job, err := r.cron.Update(sessionID, a.ID, func(j *types.CronJob) {
			if a.Name != "" {
				j.Name = a.Name
			}
			if a.Expression != "" {
				j.Expression = a.Expression
			}
			if a.WorkflowName != "" {
				j.WorkflowName = a.WorkflowName
			}
			if a.WorkflowArgs != nil {
				j.WorkflowArgs = a.WorkflowArgs
			}
		})
		if err != nil {
			return cronServiceErr(err)
		}
		return textResult("updated cron job " + job.ID)

	case "pause":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		job, err := r.cron.SetEnabled(sessionID, a.ID, false)
		if err != nil {
			return cronServiceErr(err)
		}
		return textResult("paused cron job " + job.ID)

	case "resume":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		job, err := r.cron.SetEnabled(sessionID, a.ID, true)
		if err != nil {
			return cronServiceErr(err)
		}
		return textResult("resumed cron job " + job.ID)

	case "delete":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		if err := r.cron.Delete(sessionID, a.ID); err != nil {
			return cronServiceErr(err)
		}
		return textResult("deleted cron job " + a.ID)

	default:
		return invalidInput("unknown prizm_cron action: " + a.Action)
	}
}

func cronServiceErr(err error) *rpc.InvokeResponse {
	switch e := err.(type) {
	case *services.ResourceLocked:
		return errResult(CodeLocked, fmt.Sprintf("定时任务已被会话 %s 锁定", e.HolderID))
	case *services.ResourceNotFound:
		return errResult(CodeNotFound, err.Error())
	case *services.InvalidInput:
		return errResult(CodeInvalidInput, err.Error())
	default:
		return ioErrorResult(err)
	}
}
