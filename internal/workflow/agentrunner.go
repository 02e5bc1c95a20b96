package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workspace"
)

const (
	defaultAgentModel = "claude-sonnet-4-20250514"
	defaultMaxTurns    = 12
	agentMaxRetries    = 3
	agentInitialBackoff = time.Second
)

// AgentStepResult is what an AgentRunner returns for a completed "agent"
// step: the text and structured_data the step's session reported via its
// prizm_set_result call.
type AgentStepResult struct {
	Output         string
	StructuredData string
}

// AgentRunner drives one "agent" step: spin up a background agent
// session bound to the run workspace, let it call tools through invoker,
// and return once it calls prizm_set_result (or exhausts its turn
// budget/timeout).
type AgentRunner interface {
	RunAgentStep(ctx context.Context, step *Step, bindings map[string]any, wsCtx workspace.Context, sessionID, actor string) (*AgentStepResult, error)
}

// LLMAgentRunner is the default AgentRunner: a small ReAct-style loop
// over the Anthropic Messages API, grounded on the same
// Messages.New(MessageNewParams{Model, MaxTokens, Messages}) call shape
// internal/summarize uses for its own LLM calls. Rather than relying on
// the vendor SDK's native tool-call wire format — only the *shape* of a
// tool-calling loop belongs to the core — the model is instructed to
// emit one fenced ```tool_call``` JSON block per turn; the engine parses
// it, dispatches through invoker, and feeds the tool's text result back
// as the next turn.
type LLMAgentRunner struct {
	client   anthropic.Client
	invoker  rpc.ToolInvoker
	model    string
	maxTurns int

	// RegisterSession/UnregisterSession, when set, bind a tool invoker's
	// notion of "session" to this step's run workspace before the loop
	// starts and release it afterward — the same RegisterSession/
	// UnregisterSession contract internal/tools.Registry exposes to
	// every other kind of agent session. Wired by whoever constructs
	// both the tools.Registry and this runner (internal/tools can't be
	// imported here without an import cycle), left nil in tests.
	RegisterSession   func(sessionID string, wsCtx workspace.Context)
	UnregisterSession func(sessionID string)
}

// NewLLMAgentRunner builds a runner using ANTHROPIC_API_KEY when it is
// set, otherwise apiKey, dispatching tool calls through invoker.
func NewLLMAgentRunner(apiKey string, invoker rpc.ToolInvoker) (*LLMAgentRunner, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY required for agent steps")
	}
	return &LLMAgentRunner{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		invoker:  invoker,
		model:    defaultAgentModel,
		maxTurns: defaultMaxTurns,
	}, nil
}

// SetInvoker binds the tool invoker after construction, for callers that
// build the runner before the registry that must embed it (the registry
// needs an AgentRunner, and the default runner needs the registry as its
// invoker).
func (a *LLMAgentRunner) SetInvoker(invoker rpc.ToolInvoker) {
	a.invoker = invoker
}

const toolCatalogPrompt = `You may call one tool per turn by replying with ONLY a fenced block of the form:
` + "```tool_call\n{\"name\": \"<tool name>\", \"workspace\": \"run\", \"args\": { ... }}\n```" + `
Available tools: prizm_file, prizm_document, prizm_todo, prizm_search, prizm_knowledge, prizm_lock, prizm_schedule.
When your work is complete, call prizm_set_result with {"text": "<summary>", "structured_data": "<optional JSON string>"} to finish this step.`

type toolCallRequest struct {
	Name      string          `json:"name"`
	Workspace string          `json:"workspace,omitempty"`
	Args      json.RawMessage `json:"args"`
}

// RunAgentStep implements AgentRunner.
func (a *LLMAgentRunner) RunAgentStep(ctx context.Context, step *Step, bindings map[string]any, wsCtx workspace.Context, sessionID, actor string) (*AgentStepResult, error) {
	model := step.Model
	if model == "" {
		model = a.model
	}
	maxTurns := a.maxTurns
	if step.SessionConfig != nil && step.SessionConfig.MaxTurns > 0 {
		maxTurns = step.SessionConfig.MaxTurns
	}

	prompt, err := renderPrompt(step.Prompt, bindings)
	if err != nil {
		return nil, err
	}

	if a.RegisterSession != nil {
		a.RegisterSession(sessionID, wsCtx)
		defer a.UnregisterSession(sessionID)
	}

	system := toolCatalogPrompt
	if step.SessionConfig != nil && step.SessionConfig.SystemPrompt != "" {
		system = step.SessionConfig.SystemPrompt + "\n\n" + toolCatalogPrompt
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	for turn := 0; turn < maxTurns; turn++ {
		text, err := a.call(ctx, model, system, messages)
		if err != nil {
			return nil, err
		}
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))

		call, ok := extractToolCall(text)
		if !ok {
			// A turn with no tool call and no prizm_set_result ends the
			// step with whatever text the model produced.
			return &AgentStepResult{Output: text}, nil
		}

		if call.Name == "prizm_set_result" {
			return parseSetResult(call.Args)
		}

		ws := call.Workspace
		if ws == "" {
			ws = string(workspace.TypeRun)
		}
		resp, invokeErr := a.invoker.Invoke(ctx, call.Name, call.Args, ws, sessionID, actor)
		var resultText string
		if invokeErr != nil {
			resultText = "error: " + invokeErr.Error()
		} else {
			resultText = resp.Text
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(resultText)))
	}

	return nil, fmt.Errorf("agent step %q exhausted %d turns without prizm_set_result", step.Name, maxTurns)
}

func renderPrompt(promptTmpl string, bindings map[string]any) (string, error) {
	tmpl, err := template.New("agent-prompt").Parse(promptTmpl)
	if err != nil {
		return "", fmt.Errorf("parse agent prompt: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, bindings); err != nil {
		return "", fmt.Errorf("render agent prompt: %w", err)
	}
	return b.String(), nil
}

func extractToolCall(text string) (*toolCallRequest, bool) {
	const fence = "```tool_call"
	start := strings.Index(text, fence)
	if start < 0 {
		return nil, false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	body := strings.TrimSpace(rest[:end])

	var req toolCallRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, false
	}
	if req.Name == "" {
		return nil, false
	}
	return &req, true
}

func parseSetResult(args json.RawMessage) (*AgentStepResult, error) {
	var payload struct {
		Text           string `json:"text"`
		StructuredData string `json:"structured_data"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil, fmt.Errorf("parse prizm_set_result args: %w", err)
	}
	return &AgentStepResult{Output: payload.Text, StructuredData: payload.StructuredData}, nil
}

func (a *LLMAgentRunner) call(ctx context.Context, model, system string, messages []anthropic.MessageParam) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 2048,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	}

	var lastErr error
	for attempt := 0; attempt <= agentMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := agentInitialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := a.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) == 0 {
				return "", errors.New("unexpected response format: no content blocks")
			}
			content := message.Content[0]
			if content.Type != "text" {
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return content.Text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isAgentRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", agentMaxRetries+1, lastErr)
}

func isAgentRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

