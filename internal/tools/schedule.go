package tools

import (
	"fmt"
	"strings"
	"time"

	"encoding/json"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/types"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type scheduleArgs struct {
	Action      string `json:"action"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	StartTime   int64  `json:"startTime,omitempty"`
	EndTime     int64  `json:"endTime,omitempty"`
	AllDay      bool   `json:"allDay,omitempty"`
	When        string `json:"when,omitempty"`
	Status      string `json:"status,omitempty"`
}

// scheduleTool implements prizm_schedule{list,read,create,create_from_text,
// update,delete}. Schedule items, like todo lists, use a
// transient per-call lock rather than documents' checkout/checkin
// lifecycle.
func (r *Registry) scheduleTool(wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	var a scheduleArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_schedule arguments: " + err.Error())
	}

	if wsType != "" && wsType != workspace.TypeMain {
		return r.scheduleToolScoped(wsCtx, wsType, a)
	}

	switch a.Action {
	case "list":
		items, err := r.schedules.List()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%d\n", it.ID, it.Title, it.Type, it.StartTime)
		}
		return textResult(b.String())

	case "read":
		item, err := r.schedules.Get(a.ID)
		if err != nil {
			return scheduleServiceErr(err)
		}
		return textResult(fmt.Sprintf("%s (%s) starts %d", item.Title, item.Type, item.StartTime))

	case "create":
		kind, err := parseScheduleType(a.Type)
		if err != nil {
			return invalidInput(err.Error())
		}
		item, err := r.schedules.Create(sessionID, &types.ScheduleItem{
			Title:       a.Title,
			Description: a.Description,
			Type:        kind,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
			AllDay:      a.AllDay,
		})
		if err != nil {
			return scheduleServiceErr(err)
		}
		return textResult("created schedule item " + item.ID)

	case "create_from_text":
		kind, err := parseScheduleType(a.Type)
		if err != nil {
			return invalidInput(err.Error())
		}
		if a.When == "" {
			return invalidInput("when must not be empty")
		}
		item, err := r.schedules.CreateFromText(sessionID, a.Title, a.When, kind)
		if err != nil {
			return scheduleServiceErr(err)
		}
		return textResult(fmt.Sprintf("created schedule item %s for %d", item.ID, item.StartTime))

	case "update":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		item, err := r.schedules.Update(sessionID, a.ID, func(it *types.ScheduleItem) {
			if a.Title != "" {
				it.Title = a.Title
			}
			if a.Description != "" {
				it.Description = a.Description
			}
			if a.StartTime != 0 {
				it.StartTime = a.StartTime
			}
			if a.EndTime != 0 {
				it.EndTime = a.EndTime
			}
			if a.Status != "" {
				it.Status = types.ScheduleStatus(a.Status)
			}
		})
		if err != nil {
			return scheduleServiceErr(err)
		}
		return textResult("updated schedule item " + item.ID)

	case "delete":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		if err := r.schedules.Delete(sessionID, a.ID); err != nil {
			return scheduleServiceErr(err)
		}
		return textResult("deleted schedule item " + a.ID)

	default:
		return invalidInput("unknown prizm_schedule action: " + a.Action)
	}
}

// scheduleToolScoped handles prizm_schedule calls against a session, run,
// workflow, or granted workspace, same private-sandbox rationale as
// documentToolScoped/todoToolScoped.
func (r *Registry) scheduleToolScoped(wsCtx workspace.Context, wsType workspace.Type, a scheduleArgs) *rpc.InvokeResponse {
	md, _, resolvedType, ok := r.storeForWorkspace(wsCtx, ".", wsType)
	if !ok {
		return errResult(CodeOutOfBounds, "workspace is not available for this session")
	}
	label := workspaceLabel(resolvedType)

	switch a.Action {
	case "list":
		items, err := md.ReadAllScheduleItems()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%d\n", it.ID, it.Title, it.Type, it.StartTime)
		}
		return textResult(b.String() + label)

	case "create":
		kind, err := parseScheduleType(a.Type)
		if err != nil {
			return invalidInput(err.Error())
		}
		startTime := a.StartTime
		if a.When != "" {
			startTime, err = services.ParseNaturalTime(a.When, time.Now())
			if err != nil {
				return invalidInput(err.Error())
			}
		}
		item := &types.ScheduleItem{
			ID:          newScopedID(),
			Title:       a.Title,
			Description: a.Description,
			Type:        kind,
			StartTime:   startTime,
			EndTime:     a.EndTime,
			AllDay:      a.AllDay,
			Status:      types.ScheduleUpcoming,
		}
		if _, err := md.WriteScheduleItem(item, ""); err != nil {
			return ioErrorResult(err)
		}
		return textResult("created schedule item " + item.ID + label)

	case "delete":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		if err := md.DeleteScheduleItem(a.ID); err != nil {
			return ioErrorResult(err)
		}
		return textResult("deleted schedule item " + a.ID + label)

	default:
		return invalidInput("unknown prizm_schedule action: " + a.Action)
	}
}

func parseScheduleType(s string) (types.ScheduleItemType, error) {
	if s == "" {
		return types.ScheduleEvent, nil
	}
	switch types.ScheduleItemType(s) {
	case types.ScheduleEvent, types.ScheduleReminder, types.ScheduleDeadline:
		return types.ScheduleItemType(s), nil
	default:
		return "", fmt.Errorf("type must be one of event|reminder|deadline, got %q", s)
	}
}

func scheduleServiceErr(err error) *rpc.InvokeResponse {
	switch e := err.(type) {
	case *services.ResourceLocked:
		return errResult(CodeLocked, fmt.Sprintf("日程已被会话 %s 锁定", e.HolderID))
	case *services.ResourceNotFound:
		return errResult(CodeNotFound, err.Error())
	case *services.InvalidInput:
		return errResult(CodeInvalidInput, err.Error())
	default:
		return ioErrorResult(err)
	}
}
