// Package workflow implements the workflow engine: a durable,
// resumable multi-step pipeline (agent / approve /
// transform steps) with a per-run workspace, approval gates, resume
// tokens, and cooperative cancellation.
package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// StepType names one of the three kinds of workflow step.
type StepType string

const (
	StepAgent     StepType = "agent"
	StepApprove   StepType = "approve"
	StepTransform StepType = "transform"
)

// RetryConfig governs how many times a failed step is retried before the
// run is marked failed (or, with ContinueOnError, proceeds anyway).
type RetryConfig struct {
	MaxAttempts     int  `yaml:"maxAttempts"`
	BackoffMs       int  `yaml:"backoffMs"`
	ContinueOnError bool `yaml:"continueOnError"`
}

// TransformSpec is a deterministic, no-LLM mapping of step inputs to
// outputs. Exactly one of Module or Template should be set: Module names
// a WASI-compiled .wasm file (relative to the workflow's persistent
// workspace) run sandboxed under wazero, fed the step's bindings as JSON
// on stdin and expected to write JSON to stdout; Template is a
// text/template string rendered directly against the bindings, for
// mappings too small to warrant a compiled module.
type TransformSpec struct {
	Module   string `yaml:"module,omitempty"`
	Template string `yaml:"template,omitempty"`
}

// SessionConfig carries per-step overrides for the background agent
// session an "agent" step spins up.
type SessionConfig struct {
	SystemPrompt string         `yaml:"systemPrompt,omitempty"`
	Toolgroups   []string       `yaml:"toolgroups,omitempty"`
	MaxTurns     int            `yaml:"maxTurns,omitempty"`
	Extra        map[string]any `yaml:"extra,omitempty"`
}

// Step is one entry in a Definition's Steps list. Only the fields
// matching Type are meaningful; Validate rejects a step that lacks a
// field its Type requires. Fields of other step types are not checked.
type Step struct {
	Name string   `yaml:"name"`
	Type StepType `yaml:"type"`

	// agent
	Prompt        string         `yaml:"prompt,omitempty"`
	Model         string         `yaml:"model,omitempty"`
	SessionConfig *SessionConfig `yaml:"sessionConfig,omitempty"`
	TimeoutMs     int            `yaml:"timeoutMs,omitempty"`
	RetryConfig   *RetryConfig   `yaml:"retryConfig,omitempty"`

	// approve
	ApprovePrompt string `yaml:"approvePrompt,omitempty"`

	// transform
	Transform *TransformSpec `yaml:"transform,omitempty"`
}

// Validate checks that a step carries the fields its Type requires. It
// does not reject a step that also sets fields of another step type.
func (s *Step) Validate() error {
	switch s.Type {
	case StepAgent:
		if s.Prompt == "" {
			return fmt.Errorf("step %q: agent step requires prompt", s.Name)
		}
	case StepApprove:
		if s.ApprovePrompt == "" {
			return fmt.Errorf("step %q: approve step requires approvePrompt", s.Name)
		}
	case StepTransform:
		if s.Transform == nil {
			return fmt.Errorf("step %q: transform step requires transform", s.Name)
		}
		if s.Transform.Module == "" && s.Transform.Template == "" {
			return fmt.Errorf("step %q: transform requires module or template", s.Name)
		}
	default:
		return fmt.Errorf("step %q: unknown step type %q", s.Name, s.Type)
	}
	return nil
}

// Trigger names when a workflow may run automatically. Scheduling
// triggers to actual wall-clock events belongs to the caller (the cron
// service, a UI); the engine only records what's declared.
type Trigger struct {
	Type string `yaml:"type"` // "cron" | "event"
	Cron string `yaml:"cron,omitempty"`
	On   string `yaml:"on,omitempty"` // event topic, for "event" triggers
}

// Config carries run-level tunables.
type Config struct {
	DefaultStepTimeoutMs int `yaml:"defaultStepTimeoutMs,omitempty"`
}

// ArgSpec declares one named input a run must (or may) supply.
type ArgSpec struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required,omitempty"`
	Default  string `yaml:"default,omitempty"`
}

// Definition is a declarative workflow, as parsed from its YAML
// document.
type Definition struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Args        []ArgSpec `yaml:"args,omitempty"`
	Outputs     []string  `yaml:"outputs,omitempty"`
	Steps       []Step    `yaml:"steps"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
	Config      *Config   `yaml:"config,omitempty"`
}

// DefaultStepTimeout returns the definition's configured default step
// timeout, or a 10-minute fallback.
func (d *Definition) DefaultStepTimeout() time.Duration {
	if d.Config != nil && d.Config.DefaultStepTimeoutMs > 0 {
		return time.Duration(d.Config.DefaultStepTimeoutMs) * time.Millisecond
	}
	return 10 * time.Minute
}

// Parse decodes raw YAML into a Definition and validates it.
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse workflow definition: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("workflow definition missing name")
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q: at least one step is required", def.Name)
	}
	for i := range def.Steps {
		if def.Steps[i].Name == "" {
			def.Steps[i].Name = fmt.Sprintf("step-%d", i+1)
		}
		if err := def.Steps[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &def, nil
}

// Marshal encodes a Definition back to YAML, for persistence by
// register.
func Marshal(def *Definition) ([]byte, error) {
	return yaml.Marshal(def)
}
