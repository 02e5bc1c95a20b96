// Package slashcmd implements the slash-command registry:
// a name/alias → handler map for "/command args…" chat
// messages, with both "/cmd args" and "/(cmd args)" surface forms.
package slashcmd

import (
	"strings"
)

// Handler runs a parsed slash command and returns its textual result.
type Handler func(args []string) (string, error)

// Command is one registered slash command.
type Command struct {
	Name    string
	Aliases []string
	Builtin bool
	Handler Handler
}

// Parsed is the result of parsing one "/..." chat message.
type Parsed struct {
	Name string
	Args []string
}

// Registry is the name/alias → Command map.
type Registry struct {
	commands map[string]*Command // keyed by name, lowercase
	aliases  map[string]string   // alias -> name, lowercase
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds cmd, indexing it by its lowercased name and every alias.
// Re-registering an existing name overwrites it.
func (r *Registry) Register(cmd *Command) {
	name := strings.ToLower(cmd.Name)
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Lookup resolves a command name or alias to its Command, or nil.
func (r *Registry) Lookup(nameOrAlias string) *Command {
	key := strings.ToLower(nameOrAlias)
	if c, ok := r.commands[key]; ok {
		return c
	}
	if name, ok := r.aliases[key]; ok {
		return r.commands[name]
	}
	return nil
}

// List returns every registered command, builtins included.
func (r *Registry) List() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	return out
}

// ClearUserCommands removes every non-builtin command. Builtins
// always survive a clear.
func (r *Registry) ClearUserCommands() {
	for name, c := range r.commands {
		if c.Builtin {
			continue
		}
		delete(r.commands, name)
	}
	for alias, name := range r.aliases {
		if c, ok := r.commands[name]; !ok || !c.Builtin {
			delete(r.aliases, alias)
		}
	}
}

// Dispatch looks up and runs the command named by p, returning an error
// if no such command is registered.
func (r *Registry) Dispatch(p *Parsed) (string, error) {
	cmd := r.Lookup(p.Name)
	if cmd == nil {
		return "", &UnknownCommandError{Name: p.Name}
	}
	return cmd.Handler(p.Args)
}

// UnknownCommandError is returned by Dispatch for an unregistered name.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "unknown slash command: /" + e.Name
}

// ParseSlashMessage parses raw chat text as a slash command. It accepts
// both "/cmd args…" and "/(cmd args…)" forms, lowercases the command
// name, strips leading whitespace, and returns nil for
// anything that isn't a well-formed slash command, including the
// bare "/".
func ParseSlashMessage(raw string) *Parsed {
	s := strings.TrimLeft(raw, " \t")
	if !strings.HasPrefix(s, "/") {
		return nil
	}
	s = s[1:]

	if strings.HasPrefix(s, "(") {
		end := strings.LastIndex(s, ")")
		if end < 0 {
			return nil
		}
		s = s[1:end]
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	fields := strings.Fields(s)
	return &Parsed{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}
}
