package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/pathprovider"
)

// Status is a workflow run's lifecycle state.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting-approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// StepStatus is the per-step outcome recorded in a run's StepHistory.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusCancelled StepStatus = "cancelled"
)

// StepRecord is one entry in a run's step history.
type StepRecord struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	Output    string     `json:"output,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartedAt int64      `json:"startedAt"`
	EndedAt   int64      `json:"endedAt,omitempty"`
}

// Run is the durable, resumable state machine record: {runId,
// currentStep, bindings, status, resumeToken?}, written to disk
// after every transition. "Awaiting approval" is just Status plus a
// ResumeToken a client later presents to Resume.
type Run struct {
	RunID        string         `json:"runId"`
	WorkflowName string         `json:"workflowName"`
	CurrentStep  int            `json:"currentStep"`
	Bindings     map[string]any `json:"bindings"`
	Status       Status         `json:"status"`
	ResumeToken  string         `json:"resumeToken,omitempty"`
	StepHistory  []StepRecord   `json:"stepHistory,omitempty"`

	Output         string `json:"output,omitempty"`
	StructuredData string `json:"structuredData,omitempty"`
	Error          string `json:"error,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// saveRun persists r to its RunStateFile via write-temp+rename, the same
// atomic-persistence idiom every other system file in this tree uses.
func saveRun(md *mdstore.Store, r *Run) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	rel := relStateFile(r.WorkflowName, r.RunID)
	return md.WriteSystemFileByPath(rel, append(raw, '\n'))
}

func loadRun(md *mdstore.Store, workflowName, runID string) (*Run, error) {
	fi, err := md.ReadSystemFileByPath(relStateFile(workflowName, runID))
	if err != nil {
		return nil, err
	}
	if fi == nil {
		return nil, nil
	}
	var r Run
	if err := json.Unmarshal([]byte(fi.Content), &r); err != nil {
		return nil, fmt.Errorf("parse run state: %w", err)
	}
	return &r, nil
}

// relStateFile returns the scope-relative (not absolute) path
// corresponding to pathprovider.RunStateFile, since mdstore's Store
// operates on scope-relative paths.
func relStateFile(workflowName, runID string) string {
	return pathprovider.SystemDir + "/workflows/" + workflowName + "/runs/" + runID + ".json"
}

// listRunIDs returns every persisted run id for workflowName.
func listRunIDs(md *mdstore.Store, workflowName string) ([]string, error) {
	rel := pathprovider.SystemDir + "/workflows/" + workflowName + "/runs"
	entries, err := md.ListDirectory(rel, false, true)
	if err != nil {
		if err == mdstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsFile {
			ids = append(ids, trimJSONSuffix(e.Name))
		}
	}
	return ids, nil
}

func trimJSONSuffix(name string) string {
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return name[:len(name)-5]
	}
	return name
}
