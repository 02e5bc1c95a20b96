// Package hooks lets an operator attach shell scripts to scope events.
// Hooks are executable scripts in .prizm/hooks/ that run after certain
// events fire on the event bus.
package hooks

import (
	"os"
	"path/filepath"
	"time"
)

// Event names correspond to the EventBus topics a hook may be bound to.
const (
	EventCreate      = "create"
	EventUpdate      = "update"
	EventDelete      = "delete"
	EventLockChanged = "lock-changed"
)

// Hook file names under .prizm/hooks/.
const (
	HookOnCreate      = "on_create"
	HookOnUpdate      = "on_update"
	HookOnDelete      = "on_delete"
	HookOnLockChanged = "on_lock_changed"
)

// Payload is the JSON body piped to a hook's stdin: the event's resource
// identity plus whatever detail the emitting component attached.
type Payload struct {
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Detail       map[string]any `json:"detail,omitempty"`
}

// Runner executes hook scripts for scope events.
type Runner struct {
	hooksDir string
	timeout  time.Duration
}

// NewRunner creates a hook runner rooted at hooksDir (typically
// .prizm/hooks/ under a scope root).
func NewRunner(hooksDir string) *Runner {
	return &Runner{
		hooksDir: hooksDir,
		timeout:  10 * time.Second,
	}
}

// NewRunnerFromScope creates a hook runner for a scope root.
func NewRunnerFromScope(scopeRoot string) *Runner {
	return NewRunner(filepath.Join(scopeRoot, ".prizm", "hooks"))
}

// Run executes a hook if it exists, fire-and-forget: it returns immediately
// and the hook runs in the background. Producers are never blocked by a
// slow or hanging hook.
func (r *Runner) Run(event string, payload Payload) {
	hookName := eventToHook(event)
	if hookName == "" {
		return
	}

	hookPath := filepath.Join(r.hooksDir, hookName)
	if !r.executable(hookPath) {
		return
	}

	go func() {
		_ = r.runHook(hookPath, event, payload)
	}()
}

// RunSync executes a hook synchronously and returns any error. Used by
// tests and by callers (e.g. workflow cancellation) that need to wait for
// completion.
func (r *Runner) RunSync(event string, payload Payload) error {
	hookName := eventToHook(event)
	if hookName == "" {
		return nil
	}

	hookPath := filepath.Join(r.hooksDir, hookName)
	if !r.executable(hookPath) {
		return nil
	}

	return r.runHook(hookPath, event, payload)
}

// HookExists reports whether an executable hook is registered for event.
func (r *Runner) HookExists(event string) bool {
	hookName := eventToHook(event)
	if hookName == "" {
		return false
	}
	return r.executable(filepath.Join(r.hooksDir, hookName))
}

func (r *Runner) executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

func eventToHook(event string) string {
	switch event {
	case EventCreate:
		return HookOnCreate
	case EventUpdate:
		return HookOnUpdate
	case EventDelete:
		return HookOnDelete
	case EventLockChanged:
		return HookOnLockChanged
	default:
		return ""
	}
}
