package pathprovider

import "testing"

func TestIsSystemPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{".prizm", true},
		{".prizm/scope.json", true},
		{".prizm/agent-sessions/s1/session.md", true},
		{"notes/.prizm/fake.md", false},
		{"Hello.md", false},
		{"./Hello.md", false},
		{"sub/dir/Doc.md", false},
		{".prizmfoo/x", false},
	}
	for _, c := range cases {
		if got := IsSystemPath(c.path); got != c.want {
			t.Errorf("IsSystemPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	root := "/scope"
	if got, want := AgentSessionFile(root, "s1"), "/scope/.prizm/agent-sessions/s1/session.md"; got != want {
		t.Errorf("AgentSessionFile = %q, want %q", got, want)
	}
	if got, want := RunWorkspaceDir(root, "wf1", "run1"), "/scope/.prizm/workflows/wf1/run-workspaces/run1"; got != want {
		t.Errorf("RunWorkspaceDir = %q, want %q", got, want)
	}
	if got, want := DocumentVersionFile(root, "d1"), "/scope/.prizm/document-versions/d1.md"; got != want {
		t.Errorf("DocumentVersionFile = %q, want %q", got, want)
	}
}
