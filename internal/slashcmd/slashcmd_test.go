package slashcmd

import (
	"reflect"
	"testing"
)

func TestParseSlashMessage(t *testing.T) {
	cases := []struct {
		in   string
		want *Parsed
	}{
		{"/help", &Parsed{Name: "help", Args: []string{}}},
		{"/(skill off my-skill)", &Parsed{Name: "skill", Args: []string{"off", "my-skill"}}},
		{"/", nil},
		{"  /HELP", &Parsed{Name: "help", Args: []string{}}},
		{"not a command", nil},
	}
	for _, c := range cases {
		got := ParseSlashMessage(c.in)
		if c.want == nil {
			if got != nil {
				t.Errorf("ParseSlashMessage(%q) = %+v, want nil", c.in, got)
			}
			continue
		}
		if got == nil || got.Name != c.want.Name || !reflect.DeepEqual(got.Args, c.want.Args) {
			t.Errorf("ParseSlashMessage(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestClearUserCommandsPreservesBuiltins(t *testing.T) {
	r := New()
	r.Register(&Command{Name: "help", Builtin: true, Handler: func(args []string) (string, error) { return "help text", nil }})
	r.Register(&Command{Name: "custom", Handler: func(args []string) (string, error) { return "custom", nil }})

	r.ClearUserCommands()

	if r.Lookup("help") == nil {
		t.Fatalf("expected builtin help to survive ClearUserCommands")
	}
	if r.Lookup("custom") != nil {
		t.Fatalf("expected user command custom to be removed")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := New()
	_, err := r.Dispatch(&Parsed{Name: "nope"})
	if err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestAliasLookup(t *testing.T) {
	r := New()
	r.Register(&Command{Name: "help", Aliases: []string{"h", "?"}, Handler: func(args []string) (string, error) { return "ok", nil }})
	if r.Lookup("H") == nil {
		t.Fatalf("expected alias lookup to be case-insensitive")
	}
	if r.Lookup("?") == nil {
		t.Fatalf("expected ? alias to resolve")
	}
}
