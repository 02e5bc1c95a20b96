package mdstore

import (
	"sort"

	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllCronJobs returns every cron job in the scope, sorted by
// createdAt ascending.
func (s *Store) ReadAllCronJobs() ([]*types.CronJob, error) {
	files, err := s.scanUserEntities(string(types.TypeCronJob))
	if err != nil {
		return nil, err
	}

	jobs := make([]*types.CronJob, 0, len(files))
	for _, f := range files {
		jobs = append(jobs, cronJobFromParsed(f))
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt < jobs[j].CreatedAt })
	return jobs, nil
}

// ReadCronJobByID returns the cron job with the given id, or nil.
func (s *Store) ReadCronJobByID(id string) (*types.CronJob, error) {
	jobs, err := s.ReadAllCronJobs()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, nil
}

// WriteCronJob persists job. Cron jobs are title-driven user entities
// named after the job name, like documents and schedule items.
func (s *Store) WriteCronJob(job *types.CronJob, relativePath string) (string, error) {
	data := map[string]any{
		"prizm_type": string(types.TypeCronJob),
		"id":         job.ID,
		"title":      job.Name,
		"expression": job.Expression,
		"workflow":   job.WorkflowName,
		"enabled":    job.Enabled,
		"createdAt":  job.CreatedAt,
		"updatedAt":  job.UpdatedAt,
	}
	if len(job.WorkflowArgs) > 0 {
		data["workflowArgs"] = job.WorkflowArgs
	}
	if job.LastRunAt != 0 {
		data["lastRunAt"] = job.LastRunAt
	}
	if job.LastRunID != "" {
		data["lastRunId"] = job.LastRunID
	}

	dir := dirOf(relativePath)
	return s.writeTitledEntity(relativePath, dir, job.Name, data, "")
}

// DeleteCronJob removes the cron job with the given id. Idempotent.
func (s *Store) DeleteCronJob(id string) error {
	jobs, err := s.scanUserEntities(string(types.TypeCronJob))
	if err != nil {
		return err
	}
	for _, f := range jobs {
		if stringField(f.Data, "id") == id {
			return s.deleteByPath(f.RelativePath, false)
		}
	}
	return nil
}

func cronJobFromParsed(f parsedFile) *types.CronJob {
	job := &types.CronJob{
		ID:           stringField(f.Data, "id"),
		Name:         stringField(f.Data, "title"),
		Expression:   stringField(f.Data, "expression"),
		WorkflowName: stringField(f.Data, "workflow"),
		LastRunAt:    int64Field(f.Data, "lastRunAt"),
		LastRunID:    stringField(f.Data, "lastRunId"),
		CreatedAt:    int64Field(f.Data, "createdAt"),
		UpdatedAt:    int64Field(f.Data, "updatedAt"),
		RelativePath: f.RelativePath,
	}
	if enabled, ok := f.Data["enabled"].(bool); ok {
		job.Enabled = enabled
	}
	if args, ok := f.Data["workflowArgs"].(map[string]any); ok {
		job.WorkflowArgs = args
	}
	return job
}
