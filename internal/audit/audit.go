// Package audit writes the append-only per-scope record of agent and tool
// actions.
package audit

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the audit log file name stored under .prizm/.
const FileName = "audit.jsonl"

const idPrefix = "a-"

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultDenied  Result = "denied"
	ResultError   Result = "error"
)

// Action is the CRUD-flavored verb an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	SessionID     string `json:"sessionId,omitempty"`
	ToolName      string `json:"toolName"`
	Action        Action `json:"action"`
	ResourceType  string `json:"resourceType,omitempty"`
	ResourceID    string `json:"resourceId,omitempty"`
	ResourceTitle string `json:"resourceTitle,omitempty"`
	Detail        string `json:"detail,omitempty"`

	Result       Result `json:"result"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Log appends entries for one scope to .prizm/audit.jsonl, rotating the
// underlying file with lumberjack once it grows past a few megabytes so a
// long-lived daemon doesn't accumulate an unbounded trail.
type Log struct {
	path   string
	writer *lumberjack.Logger
}

// Open returns a Log writing to scopeRoot/.prizm/audit.jsonl, creating the
// parent directory if necessary.
func Open(scopeRoot string) (*Log, error) {
	dir := filepath.Join(scopeRoot, ".prizm")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create .prizm dir: %w", err)
	}
	p := filepath.Join(dir, FileName)
	return &Log{
		path: p,
		writer: &lumberjack.Logger{
			Filename:   p,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			Compress:   true,
		},
	}, nil
}

// Path returns the audit log file path.
func (l *Log) Path() string { return l.path }

// Close flushes and closes the underlying rotated log file.
func (l *Log) Close() error {
	return l.writer.Close()
}

// Append writes e as a single JSON line, assigning an id and timestamp if
// absent. Entries are never rewritten or reordered.
func (l *Log) Append(e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if e.ToolName == "" {
		return "", fmt.Errorf("toolName is required")
	}
	if e.Result == "" {
		e.Result = ResultSuccess
	}

	var err error
	if e.ID == "" {
		e.ID, err = newID()
		if err != nil {
			return "", err
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	} else {
		e.Timestamp = e.Timestamp.UTC()
	}

	bw := bufio.NewWriter(l.writer)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("encode audit entry: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flush audit log: %w", err)
	}

	return e.ID, nil
}

func newID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	return idPrefix + hex.EncodeToString(b[:]), nil
}
