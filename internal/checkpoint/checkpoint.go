// Package checkpoint implements the per-session pre-mutation snapshot
// store: a synthetic resource key like
// "[doc:<id>]" maps to a JSON payload captured before a mutation, later
// consumed by a revert operation.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prizm-dev/prizm/internal/types"
)

// Action classifies what kind of mutation a checkpoint was captured
// before.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionModify     Action = "modify"
	ActionCreateList Action = "create_list"
)

// Payload is the pre-mutation snapshot captured for one checkpoint.
type Payload struct {
	Action          Action           `json:"action"`
	VersionBefore   int              `json:"versionBefore,omitempty"`
	ListSnapshot    *types.TodoList  `json:"listSnapshot,omitempty"`
	Title           string           `json:"title,omitempty"`
	RelativePath    string           `json:"relativePath,omitempty"`
	ContentBefore   string           `json:"contentBefore,omitempty"`
	DocumentBefore  *types.Document  `json:"documentBefore,omitempty"`
}

// Key builds the synthetic checkpoint key for an entity kind and id, e.g.
// "[doc:d1]" or "[todo:t1]".
func Key(kind, id string) string {
	return fmt.Sprintf("[%s:%s]", kind, id)
}

// Store is the per-session, in-memory checkpoint map. It is process-wide
// but namespaced by session id, mirroring the lock manager's namespacing
// by scope.
type Store struct {
	mu   sync.Mutex
	data map[string]map[string]Payload // sessionID -> key -> payload
}

// New creates an empty checkpoint store.
func New() *Store {
	return &Store{data: make(map[string]map[string]Payload)}
}

// Capture records p as the pre-mutation snapshot for (sessionID, key),
// overwriting any previous checkpoint at the same key.
func (s *Store) Capture(sessionID, key string, p Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[sessionID]
	if !ok {
		sess = make(map[string]Payload)
		s.data[sessionID] = sess
	}
	sess[key] = p
}

// Get returns the checkpoint at (sessionID, key), or false if absent.
func (s *Store) Get(sessionID, key string) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[sessionID]
	if !ok {
		return Payload{}, false
	}
	p, ok := sess[key]
	return p, ok
}

// Consume returns and removes the checkpoint at (sessionID, key); a
// revert operation is one-shot.
func (s *Store) Consume(sessionID, key string) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[sessionID]
	if !ok {
		return Payload{}, false
	}
	p, ok := sess[key]
	if ok {
		delete(sess, key)
	}
	return p, ok
}

// ClearSession drops every checkpoint held for sessionID, e.g. on session
// teardown.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
}

// MarshalPayload is a convenience for callers that persist a checkpoint
// payload alongside audit detail instead of keeping it purely in memory.
func MarshalPayload(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
