// Package workspace resolves tool-supplied paths against the
// overlapping workspace views: given a Context and a path/workspace
// argument, resolve to {fileRoot, relativePath, wsType} or reject the
// path as out of bounds.
package workspace

import (
	"path/filepath"
	"strings"
)

// Type names one of the five overlapping workspace views an agent tool
// may address.
type Type string

const (
	TypeMain     Type = "main"
	TypeSession  Type = "session"
	TypeRun      Type = "run"
	TypeWorkflow Type = "workflow"
	TypeGranted  Type = "granted"
)

// Context is the set of roots a single tool invocation may resolve
// against. Any field may be empty if that view isn't active for the
// current call (e.g. RunRoot is empty outside a workflow step).
type Context struct {
	ScopeRoot     string
	SessionRoot   string
	RunRoot       string
	WorkflowRoot  string
	SessionID     string
	GrantedPaths  []string // absolute paths a user has explicitly granted
}

// Resolution is the result of a successful resolve: the root the path
// was matched against, the path relative to that root, and which kind of
// workspace it was.
type Resolution struct {
	FileRoot     string
	RelativePath string
	WSType       Type
}

// Resolve maps rawPath (absolute or relative) plus an optional workspace
// hint to a Resolution, or returns nil if rawPath cannot be located
// inside any allowed root. Callers turn a nil result into an
// OUT_OF_BOUNDS error.
func Resolve(ctx Context, rawPath string, workspaceArg Type) *Resolution {
	if rawPath == "" {
		return nil
	}

	if filepath.IsAbs(rawPath) {
		return resolveAbsolute(ctx, rawPath)
	}
	return resolveRelative(ctx, rawPath, workspaceArg)
}

// resolveAbsolute tries each root in most-specific-wins order:
// run > workflow > session > main > granted.
func resolveAbsolute(ctx Context, rawPath string) *Resolution {
	candidates := []struct {
		root string
		ws   Type
	}{
		{ctx.RunRoot, TypeRun},
		{ctx.WorkflowRoot, TypeWorkflow},
		{ctx.SessionRoot, TypeSession},
		{ctx.ScopeRoot, TypeMain},
	}

	for _, c := range candidates {
		if c.root == "" {
			continue
		}
		if rel, ok := containedRelative(c.root, rawPath); ok {
			return &Resolution{FileRoot: c.root, RelativePath: rel, WSType: c.ws}
		}
	}

	for _, grantedRoot := range ctx.GrantedPaths {
		if rel, ok := containedRelative(grantedRoot, rawPath); ok {
			return &Resolution{FileRoot: grantedRoot, RelativePath: rel, WSType: TypeGranted}
		}
		// A granted path may itself be a single file rather than a
		// directory root. containedRelative above already accepts an
		// exact match, as "." under grantedRoot, so this branch (which
		// maps it to the file's base name under its parent) is not reached.
		if filepath.Clean(rawPath) == filepath.Clean(grantedRoot) {
			return &Resolution{FileRoot: filepath.Dir(grantedRoot), RelativePath: filepath.Base(grantedRoot), WSType: TypeGranted}
		}
	}

	return nil
}

// resolveRelative picks the root named by workspaceArg; if unspecified,
// the run workspace is the default when present — it is how agents
// running inside a workflow step see their own sandbox — otherwise
// main.
func resolveRelative(ctx Context, rawPath string, workspaceArg Type) *Resolution {
	ws := workspaceArg
	if ws == "" {
		if ctx.RunRoot != "" {
			ws = TypeRun
		} else {
			ws = TypeMain
		}
	}

	root := rootFor(ctx, ws)
	if root == "" {
		return nil
	}

	cleaned := filepath.Clean(rawPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return nil
	}

	return &Resolution{FileRoot: root, RelativePath: filepath.ToSlash(cleaned), WSType: ws}
}

func rootFor(ctx Context, ws Type) string {
	switch ws {
	case TypeMain:
		return ctx.ScopeRoot
	case TypeSession:
		return ctx.SessionRoot
	case TypeRun:
		return ctx.RunRoot
	case TypeWorkflow:
		return ctx.WorkflowRoot
	default:
		return ""
	}
}

// containedRelative reports whether abs lies under root, returning the
// slash-form relative path if so. Invariant 3 (prefix-descendant after
// resolve) is enforced by requiring the joined-and-cleaned path to share
// root's prefix.
func containedRelative(root, abs string) (string, bool) {
	root = filepath.Clean(root)
	abs = filepath.Clean(abs)

	if abs == root {
		return ".", true
	}

	rootWithSep := root + string(filepath.Separator)
	if !strings.HasPrefix(abs, rootWithSep) {
		return "", false
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
