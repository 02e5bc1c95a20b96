package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/types"
)

type knowledgeArgs struct {
	Action    string `json:"action"`
	ID        string `json:"id,omitempty"`
	Content   string `json:"content,omitempty"`
	ClipType  string `json:"clipType,omitempty"`
	SourceApp string `json:"sourceApp,omitempty"`
}

// knowledgeTool implements prizm_knowledge: the compound family covering
// the scope's ambient knowledge stores — clipboard items, the calling
// session's memories and summary, and the token-usage ledger. These all
// live under .prizm/ and so are only reachable through this tool, never
// through prizm_file.
func (r *Registry) knowledgeTool(raw json.RawMessage, sessionID string) *rpc.InvokeResponse {
	var a knowledgeArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_knowledge arguments: " + err.Error())
	}

	switch a.Action {
	case "clip_add":
		if a.Content == "" {
			return invalidInput("content must not be empty")
		}
		item := &types.ClipboardItem{
			ID:        uuid.NewString(),
			Type:      parseClipType(a.ClipType),
			SourceApp: a.SourceApp,
			CreatedAt: time.Now().UnixMilli(),
			Body:      a.Content,
		}
		if err := r.scope.MD.WriteClipboardItem(item); err != nil {
			return ioErrorResult(err)
		}
		return textResult("clipped " + item.ID)

	case "clip_list":
		items, err := r.scope.MD.ReadAllClipboardItems()
		if err != nil {
			return ioErrorResult(err)
		}
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, "%s\t%s\t%s\n", it.ID, it.Type, firstLine(it.Body))
		}
		if b.Len() == 0 {
			return textResult("clipboard is empty")
		}
		return textResult(b.String())

	case "clip_get":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		item, err := r.scope.MD.ReadClipboardItemByID(a.ID)
		if err != nil {
			return ioErrorResult(err)
		}
		if item == nil {
			return errResult(CodeNotFound, "clipboard item not found: "+a.ID)
		}
		return textResult(item.Body)

	case "clip_delete":
		if a.ID == "" {
			return invalidInput("id is required")
		}
		if err := r.scope.MD.DeleteClipboardItem(a.ID); err != nil {
			return ioErrorResult(err)
		}
		return textResult("deleted clipboard item " + a.ID)

	case "remember":
		if sessionID == "" {
			return invalidInput("remember requires an agent session")
		}
		if a.Content == "" {
			return invalidInput("content must not be empty")
		}
		existing, err := r.scope.MD.ReadSessionMemories(sessionID)
		if err != nil {
			return ioErrorResult(err)
		}
		merged := a.Content
		if existing != "" {
			merged = strings.TrimRight(existing, "\n") + "\n\n" + a.Content
		}
		if err := r.scope.MD.WriteSessionMemories(sessionID, merged); err != nil {
			return ioErrorResult(err)
		}
		return textResult("remembered")

	case "recall":
		if sessionID == "" {
			return invalidInput("recall requires an agent session")
		}
		memories, err := r.scope.MD.ReadSessionMemories(sessionID)
		if err != nil {
			return ioErrorResult(err)
		}
		if memories == "" {
			return textResult("no memories recorded for this session")
		}
		return textResult(memories)

	case "summary":
		if sessionID == "" {
			return invalidInput("summary requires an agent session")
		}
		summary, err := r.scope.MD.ReadSessionSummary(sessionID)
		if err != nil {
			return ioErrorResult(err)
		}
		if summary == "" {
			return textResult("no summary recorded for this session")
		}
		return textResult(summary)

	case "usage":
		recs, err := r.scope.MD.ReadTokenUsage()
		if err != nil {
			return ioErrorResult(err)
		}
		var in, out, total int
		for _, rec := range recs {
			in += rec.InputTokens
			out += rec.OutputTokens
			total += rec.TotalTokens
		}
		return textResult(fmt.Sprintf("%d records, input=%d output=%d total=%d", len(recs), in, out, total))

	default:
		return invalidInput("unknown prizm_knowledge action: " + a.Action)
	}
}

func parseClipType(s string) types.ClipboardItemType {
	switch types.ClipboardItemType(s) {
	case types.ClipboardText, types.ClipboardImage, types.ClipboardFile, types.ClipboardOther:
		return types.ClipboardItemType(s)
	default:
		return types.ClipboardText
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
