package mdstore

import (
	"sort"

	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllAgentSessions returns every agent session in the scope, sorted by
// createdAt ascending. Each session is read through ReadAgentSessionByID,
// which tolerates both the legacy per-session-directory layout and the
// current single-file layout.
func (s *Store) ReadAllAgentSessions() ([]*types.AgentSession, error) {
	entries, err := s.ListDirectory(pathprovider.SystemDir+"/agent-sessions", false, true)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	var sessions []*types.AgentSession
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		sess, err := s.ReadAgentSessionByID(e.Name)
		if err != nil || sess == nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt < sessions[j].CreatedAt
	})
	return sessions, nil
}

// ReadAgentSessionByID returns the session with the given id, or nil if
// none exists in either layout.
func (s *Store) ReadAgentSessionByID(id string) (*types.AgentSession, error) {
	fi, err := s.ReadSystemFileByPath(relAgentSessionFile(id, "session.md"))
	if err != nil {
		return nil, err
	}
	if fi != nil && !fi.IsBinary {
		return agentSessionFromParsed(parsedFile{Data: fi.Frontmatter, Body: fi.Content}), nil
	}

	return s.readLegacyAgentSession(id)
}

// WriteAgentSession persists sess as a single session.md, always in the
// current layout. If a legacy per-session-directory layout exists for
// this id, it is removed once the new file is written.
func (s *Store) WriteAgentSession(sess *types.AgentSession) error {
	messages := make([]map[string]any, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		messages = append(messages, messageToMap(m))
	}

	data := map[string]any{
		"prizm_type": string(types.TypeAgentSession),
		"id":         sess.ID,
		"scope":      sess.Scope,
		"createdAt":  sess.CreatedAt,
		"updatedAt":  sess.UpdatedAt,
		"messages":   messages,
	}
	if sess.CompressedThroughRound > 0 {
		data["compressedThroughRound"] = sess.CompressedThroughRound
	}

	if err := s.writeIDKeyedEntity(relAgentSessionFile(sess.ID, "session.md"), data, ""); err != nil {
		return err
	}

	legacyMetaRel := relAgentSessionFile(sess.ID, "meta.md")
	if fi, err := s.ReadSystemFileByPath(legacyMetaRel); err == nil && fi != nil {
		_ = s.deleteByPath(relAgentSessionDir(sess.ID)+"/messages", true)
		_ = s.deleteByPath(legacyMetaRel, true)
	}

	return nil
}

// DeleteAgentSession removes a session's entire directory. Idempotent.
func (s *Store) DeleteAgentSession(id string) error {
	return s.deleteByPath(relAgentSessionDir(id), true)
}

func (s *Store) readLegacyAgentSession(id string) (*types.AgentSession, error) {
	metaFi, err := s.ReadSystemFileByPath(relAgentSessionFile(id, "meta.md"))
	if err != nil {
		return nil, err
	}
	if metaFi == nil || metaFi.IsBinary {
		return nil, nil
	}

	sess := &types.AgentSession{
		ID:        stringField(metaFi.Frontmatter, "id"),
		Scope:     stringField(metaFi.Frontmatter, "scope"),
		CreatedAt: int64Field(metaFi.Frontmatter, "createdAt"),
		UpdatedAt: int64Field(metaFi.Frontmatter, "updatedAt"),
	}
	if sess.ID == "" {
		sess.ID = id
	}

	msgEntries, err := s.ListDirectory(relAgentSessionDir(id)+"/messages", false, true)
	if err != nil {
		if err == ErrNotFound {
			return sess, nil
		}
		return nil, err
	}

	// Legacy message files are named by zero-padded round index, so a
	// lexicographic sort of Name recovers conversation order.
	sort.Slice(msgEntries, func(i, j int) bool { return msgEntries[i].Name < msgEntries[j].Name })

	for _, me := range msgEntries {
		fi, err := s.ReadSystemFileByPath(me.RelativePath)
		if err != nil || fi == nil || fi.IsBinary {
			continue
		}
		sess.Messages = append(sess.Messages, messageFromMap(fi.Frontmatter, fi.Content))
	}
	return sess, nil
}

func messageToMap(m types.Message) map[string]any {
	out := map[string]any{
		"id":        m.ID,
		"role":      string(m.Role),
		"content":   m.Content,
		"createdAt": m.CreatedAt,
	}
	if m.Model != "" {
		out["model"] = m.Model
	}
	if m.Reasoning != "" {
		out["reasoning"] = m.Reasoning
	}
	if m.MemoryGrowth != 0 {
		out["memoryGrowth"] = m.MemoryGrowth
	}
	if len(m.Parts) > 0 {
		out["parts"] = m.Parts
	}
	if len(m.ToolCalls) > 0 {
		calls := make([]map[string]any, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			call := map[string]any{"id": tc.ID, "name": tc.Name}
			if len(tc.Args) > 0 {
				call["args"] = tc.Args
			}
			if tc.Result != "" {
				call["result"] = tc.Result
			}
			calls = append(calls, call)
		}
		out["toolCalls"] = calls
	}
	if m.Usage != nil {
		out["usage"] = map[string]any{
			"inputTokens":  m.Usage.InputTokens,
			"outputTokens": m.Usage.OutputTokens,
			"totalTokens":  m.Usage.TotalTokens,
		}
	}
	return out
}

func messageFromMap(data map[string]any, bodyFallback string) types.Message {
	m := types.Message{
		ID:           stringField(data, "id"),
		Role:         types.MessageRole(stringField(data, "role")),
		Content:      stringField(data, "content"),
		CreatedAt:    int64Field(data, "createdAt"),
		Model:        stringField(data, "model"),
		Reasoning:    stringField(data, "reasoning"),
		MemoryGrowth: int(int64Field(data, "memoryGrowth")),
	}
	if m.Content == "" {
		m.Content = bodyFallback
	}
	if parts, ok := data["parts"].([]any); ok {
		for _, p := range parts {
			if str, ok := p.(string); ok {
				m.Parts = append(m.Parts, str)
			}
		}
	}
	if calls, ok := data["toolCalls"].([]any); ok {
		for _, c := range calls {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			tc := types.ToolCall{
				ID:     stringField(cm, "id"),
				Name:   stringField(cm, "name"),
				Result: stringField(cm, "result"),
			}
			if args, ok := cm["args"].(map[string]any); ok {
				tc.Args = args
			}
			m.ToolCalls = append(m.ToolCalls, tc)
		}
	}
	if u, ok := data["usage"].(map[string]any); ok {
		m.Usage = &types.Usage{
			InputTokens:  int(int64Field(u, "inputTokens")),
			OutputTokens: int(int64Field(u, "outputTokens")),
			TotalTokens:  int(int64Field(u, "totalTokens")),
		}
	}
	return m
}

func agentSessionFromParsed(f parsedFile) *types.AgentSession {
	sess := &types.AgentSession{
		ID:                     stringField(f.Data, "id"),
		Scope:                  stringField(f.Data, "scope"),
		CreatedAt:              int64Field(f.Data, "createdAt"),
		UpdatedAt:              int64Field(f.Data, "updatedAt"),
		CompressedThroughRound: int(int64Field(f.Data, "compressedThroughRound")),
	}
	if msgs, ok := f.Data["messages"].([]any); ok {
		for _, mi := range msgs {
			mm, ok := mi.(map[string]any)
			if !ok {
				continue
			}
			sess.Messages = append(sess.Messages, messageFromMap(mm, ""))
		}
	}
	return sess
}

func relAgentSessionDir(id string) string {
	return pathprovider.SystemDir + "/agent-sessions/" + id
}
