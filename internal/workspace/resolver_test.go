package workspace

import "testing"

func TestResolveRelativeDefaultsToMain(t *testing.T) {
	ctx := Context{ScopeRoot: "/scope"}
	r := Resolve(ctx, "notes/a.md", "")
	if r == nil {
		t.Fatal("expected resolution")
	}
	if r.WSType != TypeMain || r.FileRoot != "/scope" || r.RelativePath != "notes/a.md" {
		t.Fatalf("unexpected resolution: %+v", r)
	}
}

func TestResolveRelativeDefaultsToRunWhenPresent(t *testing.T) {
	ctx := Context{ScopeRoot: "/scope", RunRoot: "/scope/.prizm/workflows/wf1/run-workspaces/r1"}
	r := Resolve(ctx, "out.md", "")
	if r == nil || r.WSType != TypeRun {
		t.Fatalf("expected default to run workspace, got %+v", r)
	}
}

func TestResolveRelativeRejectsTraversal(t *testing.T) {
	ctx := Context{ScopeRoot: "/scope"}
	if r := Resolve(ctx, "../etc/passwd", ""); r != nil {
		t.Fatalf("expected traversal rejected, got %+v", r)
	}
	if r := Resolve(ctx, "a/../../etc/passwd", ""); r != nil {
		t.Fatalf("expected nested traversal rejected, got %+v", r)
	}
}

func TestResolveAbsolutePrecedence(t *testing.T) {
	ctx := Context{
		ScopeRoot:   "/scope",
		SessionRoot: "/scope/.prizm/agent-sessions/s1/workspace",
		RunRoot:     "/scope/.prizm/workflows/wf1/run-workspaces/r1",
	}

	r := Resolve(ctx, "/scope/.prizm/workflows/wf1/run-workspaces/r1/out.md", "")
	if r == nil || r.WSType != TypeRun {
		t.Fatalf("expected run to win by specificity, got %+v", r)
	}

	r2 := Resolve(ctx, "/scope/notes/a.md", "")
	if r2 == nil || r2.WSType != TypeMain {
		t.Fatalf("expected main workspace match, got %+v", r2)
	}
}

func TestResolveOutOfBoundsReturnsNil(t *testing.T) {
	ctx := Context{ScopeRoot: "/scope"}
	r := Resolve(ctx, "/etc/passwd", "")
	if r != nil {
		t.Fatalf("expected nil for unrelated absolute path, got %+v", r)
	}
}

func TestResolveGrantedPath(t *testing.T) {
	ctx := Context{ScopeRoot: "/scope", GrantedPaths: []string{"/home/user/external"}}
	r := Resolve(ctx, "/home/user/external/doc.md", "")
	if r == nil || r.WSType != TypeGranted || r.RelativePath != "doc.md" {
		t.Fatalf("expected granted-path resolution, got %+v", r)
	}
}
