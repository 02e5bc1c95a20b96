package frontmatter

import (
	"strings"
	"testing"
)

func TestParseEmit_RoundTrip(t *testing.T) {
	raw := []byte("---\nid: d1\ntitle: Hello\n---\nbody text\n")
	f := Parse(raw)
	if f.Type() != "" {
		t.Errorf("unexpected prizm_type: %q", f.Type())
	}
	if f.String("id") != "d1" {
		t.Errorf("id = %q, want d1", f.String("id"))
	}
	if f.Body != "body text\n" {
		t.Errorf("body = %q", f.Body)
	}

	out, err := Emit(f.Data, f.Body)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	f2 := Parse(out)
	if f2.String("id") != "d1" || f2.Body != f.Body {
		t.Errorf("round trip mismatch: %+v", f2)
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	raw := []byte("just a plain file\nwith no frontmatter\n")
	f := Parse(raw)
	if len(f.Data) != 0 {
		t.Errorf("expected no data, got %v", f.Data)
	}
	if f.Body != string(raw) {
		t.Errorf("body mismatch")
	}
}

func TestParseUnclosedFrontmatterTreatedAsBody(t *testing.T) {
	raw := []byte("---\nid: d1\nno closing delimiter\n")
	f := Parse(raw)
	if len(f.Data) != 0 {
		t.Errorf("expected no data for unclosed frontmatter, got %v", f.Data)
	}
	if f.Body != string(raw) {
		t.Errorf("expected whole file as body")
	}
}

func TestParseMalformedYAMLTreatedAsBody(t *testing.T) {
	raw := []byte("---\n[not: valid: yaml:\n---\nbody\n")
	f := Parse(raw)
	if len(f.Data) != 0 {
		t.Errorf("expected no data for malformed frontmatter, got %v", f.Data)
	}
	if f.Body != string(raw) {
		t.Errorf("expected whole file preserved as body on parse failure")
	}
}

func TestEmitTrailingNewline(t *testing.T) {
	out, err := Emit(map[string]any{"id": "x"}, "no trailing newline")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.HasSuffix(string(out), "\n") {
		t.Error("expected emitted file to end with newline")
	}
}

func TestEmitStableKeyOrder(t *testing.T) {
	data := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}
	out1, _ := Emit(data, "")
	out2, _ := Emit(data, "")
	if string(out1) != string(out2) {
		t.Error("expected deterministic key ordering across emits")
	}
	idxAlpha := strings.Index(string(out1), "alpha")
	idxZeta := strings.Index(string(out1), "zeta")
	if idxAlpha > idxZeta {
		t.Error("expected alphabetic key ordering")
	}
}

func TestEmitNoFrontmatterWhenNoData(t *testing.T) {
	out, err := Emit(nil, "plain body\n")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if strings.Contains(string(out), "---") {
		t.Errorf("expected no frontmatter delimiter for empty data, got %q", out)
	}
}
