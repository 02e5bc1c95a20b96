// Package rpc is the framed JSON-over-Unix-socket transport a CLI or
// embedding host uses to drive one scope's daemon: one request per line
// in, one response per line out.
package rpc

import "encoding/json"

// Operation names the daemon understands.
type Operation string

const (
	OpPing      Operation = "ping"
	OpStatus    Operation = "status"
	OpHealth    Operation = "health"
	OpShutdown  Operation = "shutdown"
	OpMetrics   Operation = "metrics"
	OpInvoke    Operation = "invoke" // dispatch a BuiltinToolRegistry tool call
	OpSubscribe Operation = "subscribe"
)

// Request is one line of the wire protocol.
type Request struct {
	Operation Operation       `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Actor     string          `json:"actor,omitempty"`
}

// Response is one line of the wire protocol.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// InvokeArgs carries a single tool invocation.
type InvokeArgs struct {
	ToolName  string          `json:"toolName"`
	Args      json.RawMessage `json:"args"`
	Workspace string          `json:"workspace,omitempty"`
}

// InvokeResponse is the tool-result shape every executor returns.
type InvokeResponse struct {
	Text           string `json:"text"`
	IsError        bool   `json:"isError,omitempty"`
	StructuredData string `json:"structured_data,omitempty"`
}

// StatusResponse reports daemon identity and uptime.
type StatusResponse struct {
	ScopeID       string  `json:"scopeId"`
	ScopeRoot     string  `json:"scopeRoot"`
	PID           int     `json:"pid"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	DataVersion   int     `json:"dataVersion"`
}

// HealthResponse reports whether the daemon can currently serve requests.
type HealthResponse struct {
	Status string  `json:"status"` // "healthy" | "unhealthy"
	Uptime float64 `json:"uptime"`
	Error  string  `json:"error,omitempty"`
}

// MetricsSnapshot reports event-bus and lock-manager counters.
type MetricsSnapshot struct {
	EventsEmitted   int64 `json:"eventsEmitted"`
	EventsDropped   int64 `json:"eventsDropped"`
	ActiveLocks     int   `json:"activeLocks"`
	ActiveSessions  int   `json:"activeSessions"`
	ActiveWorkflows int   `json:"activeWorkflows"`
}

// MutationEvent is a single fan-out event as recorded by the server's
// recent-mutations ring buffer, independent of per-subscriber delivery
// (see internal/events for the subscriber-facing bus).
type MutationEvent struct {
	Topic        string          `json:"topic"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}
