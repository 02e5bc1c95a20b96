// Package types defines the entity schemas persisted under a scope root, as
// frontmatter-tagged Markdown files (see internal/frontmatter,
// internal/mdstore).
package types

// PrizmType names the frontmatter tag every system-recognized entity file
// carries.
type PrizmType string

const (
	TypeDocument      PrizmType = "document"
	TypeTodoList      PrizmType = "todolist"
	TypeClipboardItem PrizmType = "clipboard"
	TypeAgentSession  PrizmType = "agent_session"
	TypeScheduleItem  PrizmType = "schedule"
	TypeCronJob       PrizmType = "cron_job"
	TypeTokenUsage    PrizmType = "token_usage"

	// legacyTypeNote is the pre-migrateToV3 spelling of TypeDocument.
	legacyTypeNote PrizmType = "note"
)

// LegacyNoteType reports the frontmatter tag migrateToV3 rewrites.
func LegacyNoteType() PrizmType { return legacyTypeNote }

// Document is a title-addressed Markdown file with optional tags and an
// LLM-generated summary.
type Document struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	LLMSummary   string   `json:"llmSummary,omitempty" yaml:"llmSummary,omitempty"`
	RelativePath string   `json:"relativePath" yaml:"relativePath"`
	CreatedAt    int64    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt" yaml:"updatedAt"`

	Body string `json:"-" yaml:"-"`
}

// TodoStatus is the lifecycle state of one TodoItem.
type TodoStatus string

const (
	TodoStatusTodo  TodoStatus = "todo"
	TodoStatusDoing TodoStatus = "doing"
	TodoStatusDone  TodoStatus = "done"
)

// TodoItem is one line item inside a TodoList.
type TodoItem struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      TodoStatus `json:"status" yaml:"status"`
	CreatedAt   int64      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   int64      `json:"updatedAt" yaml:"updatedAt"`
}

// TodoList is a titled collection of TodoItems. Its body is always empty.
type TodoList struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Items        []TodoItem `json:"items" yaml:"items"`
	RelativePath string     `json:"relativePath" yaml:"relativePath"`
	CreatedAt    int64      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    int64      `json:"updatedAt" yaml:"updatedAt"`
}

// ClipboardItemType classifies the payload stored in a ClipboardItem's body.
type ClipboardItemType string

const (
	ClipboardText  ClipboardItemType = "text"
	ClipboardImage ClipboardItemType = "image"
	ClipboardFile  ClipboardItemType = "file"
	ClipboardOther ClipboardItemType = "other"
)

// ClipboardItem is an id-addressed payload stored under .prizm/clipboard.
type ClipboardItem struct {
	ID        string            `json:"id" yaml:"id"`
	Type      ClipboardItemType `json:"type" yaml:"type"`
	SourceApp string            `json:"sourceApp,omitempty" yaml:"sourceApp,omitempty"`
	CreatedAt int64             `json:"createdAt" yaml:"createdAt"`

	Body string `json:"-" yaml:"-"`
}

// MessageRole identifies the speaker of one AgentSession message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ToolCall is one tool invocation recorded on an assistant Message.
type ToolCall struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Args   map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Result string         `json:"result,omitempty" yaml:"result,omitempty"`
}

// Usage is a per-message token accounting record.
type Usage struct {
	InputTokens  int `json:"inputTokens" yaml:"inputTokens"`
	OutputTokens int `json:"outputTokens" yaml:"outputTokens"`
	TotalTokens  int `json:"totalTokens" yaml:"totalTokens"`
}

// Message is one turn in an AgentSession's conversation.
type Message struct {
	ID           string       `json:"id" yaml:"id"`
	Role         MessageRole  `json:"role" yaml:"role"`
	Content      string       `json:"content" yaml:"content"`
	CreatedAt    int64        `json:"createdAt" yaml:"createdAt"`
	Model        string       `json:"model,omitempty" yaml:"model,omitempty"`
	ToolCalls    []ToolCall   `json:"toolCalls,omitempty" yaml:"toolCalls,omitempty"`
	Usage        *Usage       `json:"usage,omitempty" yaml:"usage,omitempty"`
	Reasoning    string       `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Parts        []string     `json:"parts,omitempty" yaml:"parts,omitempty"`
	MemoryGrowth int          `json:"memoryGrowth,omitempty" yaml:"memoryGrowth,omitempty"`
}

// AgentSession is a durable conversational state plus its bound temporary
// workspace. The whole message list is embedded in session.md.
type AgentSession struct {
	ID                     string    `json:"id" yaml:"id"`
	Scope                  string    `json:"scope" yaml:"scope"`
	CreatedAt              int64     `json:"createdAt" yaml:"createdAt"`
	UpdatedAt              int64     `json:"updatedAt" yaml:"updatedAt"`
	CompressedThroughRound int       `json:"compressedThroughRound,omitempty" yaml:"compressedThroughRound,omitempty"`
	Messages               []Message `json:"messages" yaml:"messages"`
}

// ScheduleItemType classifies a ScheduleItem's semantics.
type ScheduleItemType string

const (
	ScheduleEvent    ScheduleItemType = "event"
	ScheduleReminder ScheduleItemType = "reminder"
	ScheduleDeadline ScheduleItemType = "deadline"
)

// ScheduleStatus is the lifecycle state of a ScheduleItem.
type ScheduleStatus string

const (
	ScheduleUpcoming  ScheduleStatus = "upcoming"
	ScheduleActive    ScheduleStatus = "active"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// LinkedItem is a back-reference to another entity, resolved by id lookup
// with a not-found fallback rather than a dangling pointer.
type LinkedItem struct {
	Kind string `json:"kind" yaml:"kind"`
	ID   string `json:"id" yaml:"id"`
}

// ScheduleItem is a calendar entry: an event, reminder, or deadline.
type ScheduleItem struct {
	ID          string           `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Type        ScheduleItemType `json:"type" yaml:"type"`
	StartTime   int64            `json:"startTime" yaml:"startTime"`
	EndTime     int64            `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	AllDay      bool             `json:"allDay,omitempty" yaml:"allDay,omitempty"`
	Recurrence  string           `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
	Reminders   []int64          `json:"reminders,omitempty" yaml:"reminders,omitempty"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Status      ScheduleStatus   `json:"status" yaml:"status"`
	LinkedItems []LinkedItem     `json:"linkedItems,omitempty" yaml:"linkedItems,omitempty"`

	RelativePath string `json:"relativePath" yaml:"relativePath"`
}

// CronJob is a recurring trigger: a five-field cron expression bound to a
// workflow run, independent of any ScheduleItem a human reviews on a
// calendar. Distinct from ScheduleItem.Recurrence, which only describes
// how one calendar entry repeats; a CronJob has no start/end time of its
// own and fires for as long as it is Enabled.
type CronJob struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Expression   string         `json:"expression" yaml:"expression"`
	WorkflowName string         `json:"workflowName" yaml:"workflowName"`
	WorkflowArgs map[string]any `json:"workflowArgs,omitempty" yaml:"workflowArgs,omitempty"`
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	LastRunAt    int64          `json:"lastRunAt,omitempty" yaml:"lastRunAt,omitempty"`
	LastRunID    string         `json:"lastRunId,omitempty" yaml:"lastRunId,omitempty"`
	CreatedAt    int64          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    int64          `json:"updatedAt" yaml:"updatedAt"`

	RelativePath string `json:"relativePath" yaml:"relativePath"`
}

// DocumentVersion is one append-only entry in a document's version history.
type DocumentVersion struct {
	Version      int    `json:"version" yaml:"version"`
	Title        string `json:"title" yaml:"title"`
	ContentHash  string `json:"contentHash" yaml:"contentHash"`
	Timestamp    int64  `json:"timestamp" yaml:"timestamp"`
	ChangedBy    string `json:"changedBy,omitempty" yaml:"changedBy,omitempty"`
	ChangeReason string `json:"changeReason,omitempty" yaml:"changeReason,omitempty"`

	Body string `json:"-" yaml:"-"`
}

// UsageScope classifies what a TokenUsageRecord was spent on.
type UsageScope string

const (
	UsageChat                UsageScope = "chat"
	UsageDocumentSummary     UsageScope = "document_summary"
	UsageConversationSummary UsageScope = "conversation_summary"
	UsageMemory              UsageScope = "memory"
)

// TokenUsageRecord is one billing line for an LLM call.
type TokenUsageRecord struct {
	ID           string     `json:"id" yaml:"id"`
	UsageScope   UsageScope `json:"usageScope" yaml:"usageScope"`
	Timestamp    int64      `json:"timestamp" yaml:"timestamp"`
	Model        string     `json:"model" yaml:"model"`
	InputTokens  int        `json:"inputTokens" yaml:"inputTokens"`
	OutputTokens int        `json:"outputTokens" yaml:"outputTokens"`
	TotalTokens  int        `json:"totalTokens" yaml:"totalTokens"`
}
