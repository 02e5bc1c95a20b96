// Package summarize calls out to an LLM to produce short summaries of
// documents and agent sessions, compressing them for long-term storage
// and recall.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/types"
)

const (
	defaultModel   = "claude-3-5-haiku-20241022"
	maxRetries     = 3
	initialBackoff = 1 * time.Second
)

// ErrAPIKeyRequired is returned when no API key is available from either
// the explicit argument or the ANTHROPIC_API_KEY environment variable.
var ErrAPIKeyRequired = errors.New("API key required")

// Client wraps the Anthropic API for document and session summarization.
type Client struct {
	client anthropic.Client
	model  anthropic.Model

	documentTemplate *template.Template
	sessionTemplate  *template.Template

	maxRetries     int
	initialBackoff time.Duration

	audit      *audit.Log
	auditActor string
}

// New creates a Client. The environment variable ANTHROPIC_API_KEY takes
// precedence over an explicit apiKey, matching how every other Anthropic
// credential is resolved across this stack. auditLog may be nil, in
// which case calls are not recorded.
func New(apiKey string, auditLog *audit.Log, auditActor string) (*Client, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or pass one explicitly", ErrAPIKeyRequired)
	}

	docTmpl, err := template.New("document").Parse(documentPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse document prompt template: %w", err)
	}
	sessTmpl, err := template.New("session").Parse(sessionPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse session prompt template: %w", err)
	}

	return &Client{
		client:           anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:            defaultModel,
		documentTemplate: docTmpl,
		sessionTemplate:  sessTmpl,
		maxRetries:       maxRetries,
		initialBackoff:   initialBackoff,
		audit:            auditLog,
		auditActor:       auditActor,
	}, nil
}

// SummarizeDocument produces a compressed summary of doc's content,
// stored back by the caller into Document.LLMSummary.
func (c *Client) SummarizeDocument(ctx context.Context, doc *types.Document) (string, error) {
	var buf bytesWriter
	if err := c.documentTemplate.Execute(&buf, documentPromptData{Title: doc.Title, Body: doc.Body}); err != nil {
		return "", fmt.Errorf("render document prompt: %w", err)
	}

	resp, callErr := c.callWithRetry(ctx, string(buf.buf))
	c.recordAudit("document", doc.ID, callErr)
	return resp, callErr
}

// SummarizeSession produces a short recap of an agent session's
// messages, for display in session lists without opening the full
// transcript.
func (c *Client) SummarizeSession(ctx context.Context, sess *types.AgentSession) (string, error) {
	var transcript string
	for _, m := range sess.Messages {
		transcript += fmt.Sprintf("[%s] %s\n", m.Role, m.Content)
	}

	var buf bytesWriter
	if err := c.sessionTemplate.Execute(&buf, sessionPromptData{Transcript: transcript}); err != nil {
		return "", fmt.Errorf("render session prompt: %w", err)
	}

	resp, callErr := c.callWithRetry(ctx, string(buf.buf))
	c.recordAudit("agent_session", sess.ID, callErr)
	return resp, callErr
}

func (c *Client) recordAudit(resourceType, resourceID string, callErr error) {
	if c.audit == nil {
		return
	}
	entry := &audit.Entry{
		SessionID:    c.auditActor,
		ToolName:     "llm_summarize",
		Action:       audit.ActionRead,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Result:       audit.ResultSuccess,
	}
	if callErr != nil {
		entry.Result = audit.ResultError
		entry.ErrorMessage = callErr.Error()
	}
	// Best-effort: a failed audit write must never surface as a
	// summarization failure.
	_, _ = c.audit.Append(entry)
}

func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) == 0 {
				return "", fmt.Errorf("unexpected response format: no content blocks")
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
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
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

type documentPromptData struct {
	Title string
	Body  string
}

type sessionPromptData struct {
	Transcript string
}

type bytesWriter struct {
	buf []byte
}

func (w *bytesWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

const documentPromptTemplate = `You are summarizing a personal knowledge document for quick recall. Compress the content: your output must be significantly shorter than the input while preserving the key facts and conclusions.

**Title:** {{.Title}}

**Content:**
{{.Body}}

Provide a 2-4 sentence summary. Do not restate the title. Be concise and eliminate redundancy.`

const sessionPromptTemplate = `You are summarizing an agent chat session for a session list. Given the transcript below, write one sentence describing what the session accomplished.

**Transcript:**
{{.Transcript}}

Respond with exactly one sentence, no preamble.`
