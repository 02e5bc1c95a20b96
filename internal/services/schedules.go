package services

import (
	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/types"
)

const resourceTypeSchedule = "schedule"

// ScheduleService composes schedule-item CRUD. Like todo lists, schedule
// items use a transient per-call lock rather than the checkout/checkin
// pattern documents use.
type ScheduleService struct {
	scope *scope.Store
}

// NewScheduleService builds a ScheduleService over an open scope.
func NewScheduleService(s *scope.Store) *ScheduleService {
	return &ScheduleService{scope: s}
}

// List returns every schedule item, start time ascending.
func (sv *ScheduleService) List() ([]*types.ScheduleItem, error) {
	return sv.scope.MD.ReadAllScheduleItems()
}

// Get returns the schedule item with the given id.
func (sv *ScheduleService) Get(id string) (*types.ScheduleItem, error) {
	item, err := sv.scope.MD.ReadScheduleItemByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &ResourceNotFound{ResourceType: resourceTypeSchedule, ResourceID: id}
	}
	return item, nil
}

// Create makes a new schedule item.
func (sv *ScheduleService) Create(sessionID string, item *types.ScheduleItem) (*types.ScheduleItem, error) {
	if item.Title == "" {
		return nil, &InvalidInput{Field: "title", Reason: "must not be empty"}
	}
	if item.StartTime == 0 {
		return nil, &InvalidInput{Field: "startTime", Reason: "must be set"}
	}
	item.ID = uuid.NewString()
	if item.Status == "" {
		item.Status = types.ScheduleUpcoming
	}

	relPath, err := sv.scope.MD.WriteScheduleItem(item, "")
	if err != nil {
		sv.audit(sessionID, audit.ActionCreate, item.ID, item.Title, audit.ResultError, err)
		return nil, err
	}
	item.RelativePath = relPath

	sv.scope.Bus.Publish(events.Event{Topic: events.TopicScheduleCreated, Scope: sv.scope.Config.ID, Payload: item})
	sv.audit(sessionID, audit.ActionCreate, item.ID, item.Title, audit.ResultSuccess, nil)
	return item, nil
}

// Update overwrites a schedule item's fields in place.
func (sv *ScheduleService) Update(sessionID, id string, fn func(*types.ScheduleItem)) (*types.ScheduleItem, error) {
	item, err := sv.Get(id)
	if err != nil {
		return nil, err
	}

	var updated *types.ScheduleItem
	err = sv.withLock(sessionID, id, func() error {
		sv.scope.Checkpoints.Capture(sessionID, checkpoint.Key("schedule", id), checkpoint.Payload{
			Action: checkpoint.ActionUpdate,
			Title:  item.Title,
		})

		fn(item)
		if _, err := sv.scope.MD.WriteScheduleItem(item, item.RelativePath); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		sv.audit(sessionID, audit.ActionUpdate, id, item.Title, auditResultFor(err), err)
		return nil, err
	}

	sv.scope.Bus.Publish(events.Event{Topic: events.TopicScheduleUpdated, Scope: sv.scope.Config.ID, Payload: updated})
	sv.audit(sessionID, audit.ActionUpdate, id, updated.Title, audit.ResultSuccess, nil)
	return updated, nil
}

// Delete removes a schedule item.
func (sv *ScheduleService) Delete(sessionID, id string) error {
	item, err := sv.Get(id)
	if err != nil {
		return err
	}

	err = sv.withLock(sessionID, id, func() error {
		sv.scope.Checkpoints.Capture(sessionID, checkpoint.Key("schedule", id), checkpoint.Payload{
			Action: checkpoint.ActionDelete,
			Title:  item.Title,
		})
		return sv.scope.MD.DeleteScheduleItem(id)
	})
	if err != nil {
		sv.audit(sessionID, audit.ActionDelete, id, item.Title, auditResultFor(err), err)
		return err
	}

	sv.scope.Bus.Publish(events.Event{Topic: events.TopicScheduleDeleted, Scope: sv.scope.Config.ID, Payload: item})
	sv.audit(sessionID, audit.ActionDelete, id, item.Title, audit.ResultSuccess, nil)
	return nil
}

func (sv *ScheduleService) withLock(sessionID, id string, fn func() error) error {
	holder := sv.scope.Locks.Get(sv.scope.Config.ID, resourceTypeSchedule, id)
	acquiredHere := holder == nil

	var fenceToken uint64
	if acquiredHere {
		res := sv.scope.Locks.Acquire(sv.scope.Config.ID, resourceTypeSchedule, id, sessionID, "transient")
		if !res.Success {
			return &ResourceLocked{ResourceType: resourceTypeSchedule, ResourceID: id, HolderID: res.Holder.SessionID}
		}
		fenceToken = res.FenceToken
	} else if holder.SessionID != sessionID {
		return &ResourceLocked{ResourceType: resourceTypeSchedule, ResourceID: id, HolderID: holder.SessionID}
	} else {
		fenceToken = holder.FenceToken
	}

	runErr := fn()

	if fenceErr := sv.scope.Locks.CheckFence(sv.scope.Config.ID, resourceTypeSchedule, id, fenceToken); fenceErr != nil && runErr == nil {
		runErr = &ResourceLocked{ResourceType: resourceTypeSchedule, ResourceID: id}
	}

	if acquiredHere {
		sv.scope.Locks.Release(sv.scope.Config.ID, resourceTypeSchedule, id, sessionID)
	}
	return runErr
}

func (sv *ScheduleService) audit(sessionID string, action audit.Action, id, title string, result audit.Result, err error) {
	entry := &audit.Entry{
		SessionID:     sessionID,
		ToolName:      "prizm_schedule",
		Action:        action,
		ResourceType:  resourceTypeSchedule,
		ResourceID:    id,
		ResourceTitle: title,
		Result:        result,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	sv.scope.Audit.Append(entry)
}
