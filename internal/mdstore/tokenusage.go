package mdstore

import (
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/types"
)

// AppendTokenUsage appends one record to the scope-level token usage
// ledger (.prizm/token_usage.md). Records live in a frontmatter list so
// the file stays a single well-formed entity rather than a hand-rolled
// append log.
func (s *Store) AppendTokenUsage(rec *types.TokenUsageRecord) error {
	return s.appendTokenUsageAt("token_usage.md", rec)
}

// ReadTokenUsage returns every record in the scope-level ledger, oldest
// first (insertion order is preserved, not re-sorted).
func (s *Store) ReadTokenUsage() ([]*types.TokenUsageRecord, error) {
	return s.readTokenUsageAt("token_usage.md")
}

// AppendSessionTokenUsage appends one record to a session's own
// token_usage.md.
func (s *Store) AppendSessionTokenUsage(sessionID string, rec *types.TokenUsageRecord) error {
	return s.appendTokenUsageAt(relAgentSessionFile(sessionID, "token_usage.md"), rec)
}

// ReadSessionTokenUsage returns every record in a session's token_usage.md.
func (s *Store) ReadSessionTokenUsage(sessionID string) ([]*types.TokenUsageRecord, error) {
	return s.readTokenUsageAt(relAgentSessionFile(sessionID, "token_usage.md"))
}

func (s *Store) appendTokenUsageAt(relPath string, rec *types.TokenUsageRecord) error {
	recs, err := s.readTokenUsageAt(relPath)
	if err != nil {
		return err
	}
	recs = append(recs, rec)
	return s.writeIDKeyedEntity(relPath, tokenUsageData(recs), "")
}

func (s *Store) readTokenUsageAt(relPath string) ([]*types.TokenUsageRecord, error) {
	fi, err := s.ReadSystemFileByPath(relPath)
	if err != nil {
		return nil, err
	}
	if fi == nil || fi.IsBinary {
		return nil, nil
	}

	raw, _ := fi.Frontmatter["records"].([]any)
	out := make([]*types.TokenUsageRecord, 0, len(raw))
	for _, ri := range raw {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, &types.TokenUsageRecord{
			ID:           stringField(m, "id"),
			UsageScope:   types.UsageScope(stringField(m, "usageScope")),
			Timestamp:    int64Field(m, "timestamp"),
			Model:        stringField(m, "model"),
			InputTokens:  int(int64Field(m, "inputTokens")),
			OutputTokens: int(int64Field(m, "outputTokens")),
			TotalTokens:  int(int64Field(m, "totalTokens")),
		})
	}
	return out, nil
}

func tokenUsageData(recs []*types.TokenUsageRecord) map[string]any {
	records := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		records = append(records, map[string]any{
			"id":           r.ID,
			"usageScope":   string(r.UsageScope),
			"timestamp":    r.Timestamp,
			"model":        r.Model,
			"inputTokens":  r.InputTokens,
			"outputTokens": r.OutputTokens,
			"totalTokens":  r.TotalTokens,
		})
	}
	return map[string]any{
		"prizm_type": string(types.TypeTokenUsage),
		"records":    records,
	}
}

func relAgentSessionFile(sessionID, name string) string {
	return pathprovider.SystemDir + "/agent-sessions/" + sessionID + "/" + name
}
