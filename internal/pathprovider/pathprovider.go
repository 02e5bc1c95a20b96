// Package pathprovider maps scope roots and identifiers to the absolute
// directory paths of the on-disk layout, and classifies
// relative paths as system or user space.
package pathprovider

import (
	"path/filepath"
	"strings"
)

// SystemDir is the name of the directory holding all system-managed state
// under a scope root.
const SystemDir = ".prizm"

// ScopeFile returns the path to scope.json.
func ScopeFile(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "scope.json")
}

// ClipboardDir returns the path to the clipboard item directory.
func ClipboardDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "clipboard")
}

// ClipboardItemFile returns the path to one clipboard item file.
func ClipboardItemFile(scopeRoot, id string) string {
	return filepath.Join(ClipboardDir(scopeRoot), id+".md")
}

// TokenUsageFile returns the path to the scope-level token usage ledger.
func TokenUsageFile(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "token_usage.md")
}

// AgentSessionsDir returns the path to the agent-sessions directory.
func AgentSessionsDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "agent-sessions")
}

// AgentSessionDir returns the path to one agent session's directory.
func AgentSessionDir(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionsDir(scopeRoot), sessionID)
}

// AgentSessionFile returns the path to a session's session.md.
func AgentSessionFile(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "session.md")
}

// AgentSessionSummaryFile returns the path to a session's summary.md.
func AgentSessionSummaryFile(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "summary.md")
}

// AgentSessionTokenUsageFile returns the path to a session's token_usage.md.
func AgentSessionTokenUsageFile(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "token_usage.md")
}

// AgentSessionActivitiesFile returns the path to a session's activities.json.
func AgentSessionActivitiesFile(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "activities.json")
}

// AgentSessionMemoriesFile returns the path to a session's memories.md.
func AgentSessionMemoriesFile(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "memories.md")
}

// AgentSessionWorkspaceDir returns the path to a session's temp workspace.
func AgentSessionWorkspaceDir(scopeRoot, sessionID string) string {
	return filepath.Join(AgentSessionDir(scopeRoot, sessionID), "workspace")
}

// WorkflowsDir returns the path to the workflows directory.
func WorkflowsDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "workflows")
}

// WorkflowDir returns the path to one workflow's directory.
func WorkflowDir(scopeRoot, workflowID string) string {
	return filepath.Join(WorkflowsDir(scopeRoot), workflowID)
}

// WorkflowWorkspaceDir returns the path to a workflow's persistent
// workspace, shared across all of its runs.
func WorkflowWorkspaceDir(scopeRoot, workflowID string) string {
	return filepath.Join(WorkflowDir(scopeRoot, workflowID), "workspace")
}

// RunWorkspacesDir returns the path to a workflow's run-workspaces directory.
func RunWorkspacesDir(scopeRoot, workflowID string) string {
	return filepath.Join(WorkflowDir(scopeRoot, workflowID), "run-workspaces")
}

// RunWorkspaceDir returns the path to one run's ephemeral workspace.
func RunWorkspaceDir(scopeRoot, workflowID, runID string) string {
	return filepath.Join(RunWorkspacesDir(scopeRoot, workflowID), runID)
}

// WorkflowDefsDir returns the path to the directory of registered
// workflow definition YAML files.
func WorkflowDefsDir(scopeRoot string) string {
	return filepath.Join(WorkflowsDir(scopeRoot), "defs")
}

// WorkflowDefFile returns the path to one registered workflow's
// definition file.
func WorkflowDefFile(scopeRoot, name string) string {
	return filepath.Join(WorkflowDefsDir(scopeRoot), name+".yaml")
}

// RunStateFile returns the path to one run's durable state record,
// stored alongside (but outside) its ephemeral workspace so an agent
// step can never accidentally overwrite its own bookkeeping.
func RunStateFile(scopeRoot, workflowID, runID string) string {
	return filepath.Join(WorkflowDir(scopeRoot, workflowID), "runs", runID+".json")
}

// DocumentVersionsDir returns the path to the document-versions directory.
func DocumentVersionsDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "document-versions")
}

// DocumentVersionFile returns the path to one document's version history
// file.
func DocumentVersionFile(scopeRoot, docID string) string {
	return filepath.Join(DocumentVersionsDir(scopeRoot), docID+".md")
}

// PomodoroDir returns the path to the legacy pomodoro subtree removed by
// migrateToV1.
func PomodoroDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "pomodoro")
}

// HooksDir returns the path to the user-editable hook scripts directory.
func HooksDir(scopeRoot string) string {
	return filepath.Join(scopeRoot, SystemDir, "hooks")
}

// IsSystemPath reports whether a normalized scope-relative path lies under
// the system directory (.prizm) or equals it.
func IsSystemPath(relativePath string) bool {
	clean := filepath.ToSlash(filepath.Clean(relativePath))
	clean = strings.TrimPrefix(clean, "./")
	return clean == SystemDir || strings.HasPrefix(clean, SystemDir+"/")
}
