package mdstore

import "encoding/json"

// ReadSessionSummary returns the body of a session's summary.md, or "" if
// absent.
func (s *Store) ReadSessionSummary(sessionID string) (string, error) {
	fi, err := s.ReadSystemFileByPath(relAgentSessionFile(sessionID, "summary.md"))
	if err != nil {
		return "", err
	}
	if fi == nil || fi.IsBinary {
		return "", nil
	}
	return fi.Content, nil
}

// WriteSessionSummary overwrites a session's summary.md.
func (s *Store) WriteSessionSummary(sessionID, summary string) error {
	return s.writeIDKeyedEntity(relAgentSessionFile(sessionID, "summary.md"), nil, summary)
}

// ReadSessionMemories returns the body of a session's memories.md, or "".
func (s *Store) ReadSessionMemories(sessionID string) (string, error) {
	fi, err := s.ReadSystemFileByPath(relAgentSessionFile(sessionID, "memories.md"))
	if err != nil {
		return "", err
	}
	if fi == nil || fi.IsBinary {
		return "", nil
	}
	return fi.Content, nil
}

// WriteSessionMemories overwrites a session's memories.md.
func (s *Store) WriteSessionMemories(sessionID, memories string) error {
	return s.writeIDKeyedEntity(relAgentSessionFile(sessionID, "memories.md"), nil, memories)
}

// Activity is one entry in a session's activities.json feed: a lightweight
// timeline of tool calls and notable events, kept separate from the full
// message transcript so UIs can render a feed without loading session.md.
type Activity struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Timestamp int64          `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// ReadSessionActivities returns the parsed contents of activities.json, or
// nil if absent or unparseable; malformed system files are skipped,
// never mutated by a read.
func (s *Store) ReadSessionActivities(sessionID string) ([]Activity, error) {
	fi, err := s.ReadSystemFileByPath(relAgentSessionFile(sessionID, "activities.json"))
	if err != nil {
		return nil, err
	}
	if fi == nil || fi.IsBinary {
		return nil, nil
	}

	var activities []Activity
	if err := json.Unmarshal([]byte(fi.Content), &activities); err != nil {
		return nil, nil
	}
	return activities, nil
}

// AppendSessionActivity appends one activity to a session's activities.json.
func (s *Store) AppendSessionActivity(sessionID string, a Activity) error {
	activities, err := s.ReadSessionActivities(sessionID)
	if err != nil {
		return err
	}
	activities = append(activities, a)

	raw, err := json.MarshalIndent(activities, "", "  ")
	if err != nil {
		return err
	}
	return s.writeFileByPath(relAgentSessionFile(sessionID, "activities.json"), raw, true)
}
