package tools

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
)

type lockArgs struct {
	Action       string `json:"action"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Reason       string `json:"reason,omitempty"`
}

// lockTool implements prizm_lock{checkout,checkin,claim,set_active,
// release,status}. Locks are never workspace-scoped: the lock manager is
// keyed by scope alone, so this tool ignores the workspace argument
// entirely, as the cron, knowledge, workflow and task tools also do.
func (r *Registry) lockTool(raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	var a lockArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_lock arguments: " + err.Error())
	}
	if a.ResourceType == "" || a.ResourceID == "" {
		return invalidInput("resourceType and resourceId are required")
	}
	scopeID := r.scope.Config.ID

	switch a.Action {
	case "checkout":
		res := r.scope.Locks.Acquire(scopeID, a.ResourceType, a.ResourceID, sessionID, a.Reason)
		if !res.Success {
			return errResult(CodeLocked, fmt.Sprintf("已被会话 %s 锁定", res.Holder.SessionID))
		}
		return textResult(fmt.Sprintf("checked out %s/%s, fenceToken=%d", a.ResourceType, a.ResourceID, res.FenceToken))

	case "checkin":
		r.scope.Locks.Release(scopeID, a.ResourceType, a.ResourceID, sessionID)
		return textResult(fmt.Sprintf("checked in %s/%s", a.ResourceType, a.ResourceID))

	case "claim":
		res := r.scope.Locks.Claim(scopeID, a.ResourceType, a.ResourceID, sessionID, a.Reason)
		return textResult(fmt.Sprintf("claimed %s/%s, fenceToken=%d", a.ResourceType, a.ResourceID, res.FenceToken))

	case "set_active":
		if !r.scope.Locks.Heartbeat(scopeID, a.ResourceType, a.ResourceID, sessionID) {
			return errResult(CodeNotFound, fmt.Sprintf("%s/%s is not held by this session", a.ResourceType, a.ResourceID))
		}
		return textResult(fmt.Sprintf("%s/%s marked active, lease extended", a.ResourceType, a.ResourceID))

	case "release":
		r.scope.Locks.ForceRelease(scopeID, a.ResourceType, a.ResourceID)
		return textResult(fmt.Sprintf("released %s/%s", a.ResourceType, a.ResourceID))

	case "status":
		holder := r.scope.Locks.Get(scopeID, a.ResourceType, a.ResourceID)
		if holder == nil {
			return textResult(fmt.Sprintf("%s/%s is unlocked", a.ResourceType, a.ResourceID))
		}
		acquiredAt := holder.AcquiredAt.Format("2006-01-02T15:04:05Z07:00")
		text := fmt.Sprintf("%s/%s held by %s since %s", a.ResourceType, a.ResourceID, holder.SessionID, acquiredAt)
		data, err := json.Marshal(map[string]any{
			"resourceType": a.ResourceType,
			"resourceId":   a.ResourceID,
			"holderId":     holder.SessionID,
			"fenceToken":   holder.FenceToken,
			"acquiredAt":   acquiredAt,
		})
		if err != nil {
			return textResult(text)
		}
		return structuredResult(text, string(data))

	default:
		return invalidInput("unknown prizm_lock action: " + a.Action)
	}
}
