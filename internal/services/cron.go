package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/types"
	"github.com/prizm-dev/prizm/internal/workflow"
	"github.com/robfig/cron/v3"
)

const resourceTypeCronJob = "cron_job"

// CronService composes recurring-trigger CRUD on top of a live
// robfig/cron scheduler. A CronJob fires a workflow run on a standard
// five-field schedule; unlike ScheduleService's one-off calendar items,
// a cron job has no start/end time and keeps firing for as long as it's
// enabled.
type CronService struct {
	scope  *scope.Store
	engine *workflow.Engine

	sched   *cron.Cron
	entries map[string]cron.EntryID // job id -> scheduled entry
}

// NewCronService builds a CronService over an open scope and starts its
// underlying scheduler. engine may be nil in a process that never
// drives workflow runs (mirrors workflow.NewEngine's own nil runner
// allowance); a nil engine's jobs are loaded but never fire.
func NewCronService(s *scope.Store, engine *workflow.Engine) (*CronService, error) {
	c := &CronService{
		scope:   s,
		engine:  engine,
		sched:   cron.New(),
		entries: make(map[string]cron.EntryID),
	}
	jobs, err := s.MD.ReadAllCronJobs()
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Enabled {
			if err := c.schedule(job); err != nil {
				return nil, fmt.Errorf("schedule cron job %s: %w", job.ID, err)
			}
		}
	}
	c.sched.Start()
	return c, nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (c *CronService) Stop() {
	<-c.sched.Stop().Done()
}

// List returns every cron job in the scope.
func (c *CronService) List() ([]*types.CronJob, error) {
	return c.scope.MD.ReadAllCronJobs()
}

// Get returns the cron job with the given id.
func (c *CronService) Get(id string) (*types.CronJob, error) {
	job, err := c.scope.MD.ReadCronJobByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ResourceNotFound{ResourceType: resourceTypeCronJob, ResourceID: id}
	}
	return job, nil
}

// Create registers a new cron job and, if enabled, schedules it.
func (c *CronService) Create(sessionID, name, expression, workflowName string, args map[string]any, enabled bool) (*types.CronJob, error) {
	if name == "" {
		return nil, &InvalidInput{Field: "name", Reason: "must not be empty"}
	}
	if workflowName == "" {
		return nil, &InvalidInput{Field: "workflowName", Reason: "must not be empty"}
	}
	if _, err := cron.ParseStandard(expression); err != nil {
		return nil, &InvalidInput{Field: "expression", Reason: err.Error()}
	}

	now := time.Now().UnixMilli()
	job := &types.CronJob{
		ID:           uuid.NewString(),
		Name:         name,
		Expression:   expression,
		WorkflowName: workflowName,
		WorkflowArgs: args,
		Enabled:      enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	relPath, err := c.scope.MD.WriteCronJob(job, "")
	if err != nil {
		c.audit(sessionID, audit.ActionCreate, job.ID, name, audit.ResultError, err)
		return nil, err
	}
	job.RelativePath = relPath

	if job.Enabled {
		if err := c.schedule(job); err != nil {
			c.audit(sessionID, audit.ActionCreate, job.ID, name, audit.ResultError, err)
			return nil, err
		}
	}

	c.scope.Bus.Publish(events.Event{Topic: events.TopicCronCreated, Scope: c.scope.Config.ID, Payload: job})
	c.audit(sessionID, audit.ActionCreate, job.ID, name, audit.ResultSuccess, nil)
	return job, nil
}

// Update edits a cron job's fields, re-scheduling it if its expression
// or enabled state changes. Cron jobs use the same transient per-call
// lock as todo lists and schedule items.
func (c *CronService) Update(sessionID, id string, fn func(*types.CronJob)) (*types.CronJob, error) {
	job, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	var updated *types.CronJob
	err = c.withLock(sessionID, id, func() error {
		c.scope.Checkpoints.Capture(sessionID, checkpoint.Key("cron_job", id), checkpoint.Payload{
			Action: checkpoint.ActionUpdate,
			Title:  job.Name,
		})

		fn(job)
		job.UpdatedAt = time.Now().UnixMilli()
		if job.Enabled {
			if _, err := cron.ParseStandard(job.Expression); err != nil {
				return &InvalidInput{Field: "expression", Reason: err.Error()}
			}
		}
		if _, err := c.scope.MD.WriteCronJob(job, job.RelativePath); err != nil {
			return err
		}
		c.unschedule(job.ID)
		if job.Enabled {
			if err := c.schedule(job); err != nil {
				return err
			}
		}
		updated = job
		return nil
	})
	if err != nil {
		c.audit(sessionID, audit.ActionUpdate, id, job.Name, auditResultFor(err), err)
		return nil, err
	}

	c.scope.Bus.Publish(events.Event{Topic: events.TopicCronUpdated, Scope: c.scope.Config.ID, Payload: updated})
	c.audit(sessionID, audit.ActionUpdate, id, updated.Name, audit.ResultSuccess, nil)
	return updated, nil
}

// SetEnabled is a convenience wrapper over Update for the tool layer's
// pause/resume actions.
func (c *CronService) SetEnabled(sessionID, id string, enabled bool) (*types.CronJob, error) {
	return c.Update(sessionID, id, func(job *types.CronJob) {
		job.Enabled = enabled
	})
}

// Delete removes a cron job and cancels its schedule.
func (c *CronService) Delete(sessionID, id string) error {
	job, err := c.Get(id)
	if err != nil {
		return err
	}

	err = c.withLock(sessionID, id, func() error {
		c.scope.Checkpoints.Capture(sessionID, checkpoint.Key("cron_job", id), checkpoint.Payload{
			Action: checkpoint.ActionDelete,
			Title:  job.Name,
		})
		c.unschedule(id)
		return c.scope.MD.DeleteCronJob(id)
	})
	if err != nil {
		c.audit(sessionID, audit.ActionDelete, id, job.Name, auditResultFor(err), err)
		return err
	}

	c.scope.Bus.Publish(events.Event{Topic: events.TopicCronDeleted, Scope: c.scope.Config.ID, Payload: job})
	c.audit(sessionID, audit.ActionDelete, id, job.Name, audit.ResultSuccess, nil)
	return nil
}

// schedule adds job to the live scheduler under its own entry id,
// replacing any prior entry for the same job.
func (c *CronService) schedule(job *types.CronJob) error {
	c.unschedule(job.ID)
	entryID, err := c.sched.AddFunc(job.Expression, func() { c.fire(job.ID) })
	if err != nil {
		return err
	}
	c.entries[job.ID] = entryID
	return nil
}

// unschedule cancels job.ID's live entry, if any. A no-op otherwise.
func (c *CronService) unschedule(jobID string) {
	if entryID, ok := c.entries[jobID]; ok {
		c.sched.Remove(entryID)
		delete(c.entries, jobID)
	}
}

// fire runs jobID's bound workflow and records the outcome, invoked on
// the scheduler's own goroutine.
func (c *CronService) fire(jobID string) {
	job, err := c.Get(jobID)
	if err != nil || job == nil {
		return
	}
	if c.engine == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	run, runErr := c.engine.Run(ctx, job.WorkflowName, job.WorkflowArgs, "cron:"+job.Name)

	job.LastRunAt = time.Now().UnixMilli()
	if run != nil {
		job.LastRunID = run.RunID
	}
	if _, err := c.scope.MD.WriteCronJob(job, job.RelativePath); err != nil {
		fmt.Fprintf(auditFallback, "cron job %s: persist last run: %v\n", jobID, err)
	}

	result := audit.ResultSuccess
	if runErr != nil {
		result = audit.ResultError
	}
	c.audit("cron:"+jobID, audit.ActionUpdate, jobID, job.Name, result, runErr)
	c.scope.Bus.Publish(events.Event{Topic: events.TopicCronFired, Scope: c.scope.Config.ID, Payload: job})
}

func (c *CronService) withLock(sessionID, id string, fn func() error) error {
	holder := c.scope.Locks.Get(c.scope.Config.ID, resourceTypeCronJob, id)
	acquiredHere := holder == nil

	var fenceToken uint64
	if acquiredHere {
		res := c.scope.Locks.Acquire(c.scope.Config.ID, resourceTypeCronJob, id, sessionID, "transient")
		if !res.Success {
			return &ResourceLocked{ResourceType: resourceTypeCronJob, ResourceID: id, HolderID: res.Holder.SessionID}
		}
		fenceToken = res.FenceToken
	} else if holder.SessionID != sessionID {
		return &ResourceLocked{ResourceType: resourceTypeCronJob, ResourceID: id, HolderID: holder.SessionID}
	} else {
		fenceToken = holder.FenceToken
	}

	runErr := fn()

	if fenceErr := c.scope.Locks.CheckFence(c.scope.Config.ID, resourceTypeCronJob, id, fenceToken); fenceErr != nil && runErr == nil {
		runErr = &ResourceLocked{ResourceType: resourceTypeCronJob, ResourceID: id}
	}

	if acquiredHere {
		c.scope.Locks.Release(c.scope.Config.ID, resourceTypeCronJob, id, sessionID)
	}
	return runErr
}

func (c *CronService) audit(sessionID string, action audit.Action, id, title string, result audit.Result, err error) {
	entry := &audit.Entry{
		SessionID:     sessionID,
		ToolName:      "prizm_cron",
		Action:        action,
		ResourceType:  resourceTypeCronJob,
		ResourceID:    id,
		ResourceTitle: title,
		Result:        result,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if _, auditErr := c.scope.Audit.Append(entry); auditErr != nil {
		fmt.Fprintf(auditFallback, "audit append failed: %v\n", auditErr)
	}
}
