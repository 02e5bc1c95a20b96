package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/utils"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type searchArgs struct {
	Action string `json:"action"`
	Query  string `json:"query"`
	Fuzzy  bool   `json:"fuzzy,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type searchHit struct {
	path         string
	score        int
	matchedTitle bool
}

// searchTool implements prizm_search{find}.
// Titles (a file's base name, since user entities are title-driven) are
// matched via utils.MatchEntityTitle; a miss on the title falls back to
// a content grep so a query that only appears in the body still
// surfaces the file.
func (r *Registry) searchTool(wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage) *rpc.InvokeResponse {
	var a searchArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_search arguments: " + err.Error())
	}
	if a.Query == "" {
		return invalidInput("query must not be empty")
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}

	switch a.Action {
	case "", "find":
	default:
		return invalidInput("unknown prizm_search action: " + a.Action)
	}

	if wsType != "" && wsType != workspace.TypeMain {
		return r.searchToolScoped(wsCtx, wsType, a)
	}

	// A full-text index, when the daemon enabled one, answers first; the
	// linear walk below stays as the fallback so a broken or stale index
	// never makes search return errors.
	if !a.Fuzzy && r.scope.Cache.FTSEnabled() {
		if paths, err := r.scope.Cache.SearchFTS(a.Query, a.Limit); err == nil {
			hits := make([]searchHit, 0, len(paths))
			for i, p := range paths {
				title := strings.TrimSuffix(filepath.Base(p), ".md")
				matched, _ := utils.MatchEntityTitle(a.Query, title, false)
				hits = append(hits, searchHit{path: p, score: i, matchedTitle: matched})
			}
			text, structured := renderHits(hits, a.Limit)
			return structuredResult(text, structured)
		}
	}

	entries, err := r.scope.Cache.List()
	if err != nil {
		return ioErrorResult(err)
	}

	var hits []searchHit
	for _, e := range entries {
		title := strings.TrimSuffix(filepath.Base(e.RelativePath), ".md")
		if matched, score := utils.MatchEntityTitle(a.Query, title, a.Fuzzy); matched {
			hits = append(hits, searchHit{path: e.RelativePath, score: score, matchedTitle: true})
			continue
		}
		fi, ferr := r.scope.MD.ReadFileByPath(e.RelativePath)
		if ferr != nil || fi == nil || fi.IsBinary {
			continue
		}
		if strings.Contains(strings.ToLower(fi.Content), strings.ToLower(a.Query)) {
			hits = append(hits, searchHit{path: e.RelativePath, score: 0})
		}
	}
	text, structured := renderHits(hits, a.Limit)
	return structuredResult(text, structured)
}

// searchToolScoped does the same walk against a non-main workspace root.
func (r *Registry) searchToolScoped(wsCtx workspace.Context, wsType workspace.Type, a searchArgs) *rpc.InvokeResponse {
	md, _, resolvedType, ok := r.storeForWorkspace(wsCtx, ".", wsType)
	if !ok {
		return errResult(CodeOutOfBounds, "workspace is not available for this session")
	}

	entries, err := md.ListDirectory(".", true, false)
	if err != nil {
		return mapStoreErr(err)
	}

	var hits []searchHit
	walkFiles(entries, func(e mdstore.DirEntry) {
		if e.IsDir {
			return
		}
		title := strings.TrimSuffix(filepath.Base(e.RelativePath), ".md")
		if matched, score := utils.MatchEntityTitle(a.Query, title, a.Fuzzy); matched {
			hits = append(hits, searchHit{path: e.RelativePath, score: score, matchedTitle: true})
			return
		}
		fi, ferr := md.ReadFileByPath(e.RelativePath)
		if ferr != nil || fi == nil || fi.IsBinary {
			return
		}
		if strings.Contains(strings.ToLower(fi.Content), strings.ToLower(a.Query)) {
			hits = append(hits, searchHit{path: e.RelativePath, score: 0})
		}
	})
	text, structured := renderHits(hits, a.Limit)
	return structuredResult(text+workspaceLabel(resolvedType), structured)
}

// searchHitRow is the structured_data shape a CLI renders as a table
// (ui.NewSearchTable): one row per hit, carrying enough for a client to
// tell a title match from a body grep without re-parsing the text
// rendering.
type searchHitRow struct {
	Path  string `json:"path"`
	Score int    `json:"score"`
	Via   string `json:"via"`
}

func renderHits(hits []searchHit, limit int) (string, string) {
	if len(hits) == 0 {
		return "no matches", `[]`
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score < hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	var b strings.Builder
	rows := make([]searchHitRow, 0, len(hits))
	for _, h := range hits {
		fmt.Fprintln(&b, h.path)
		via := "content"
		if h.matchedTitle {
			via = "title"
		}
		rows = append(rows, searchHitRow{Path: h.path, Score: h.score, Via: via})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return b.String(), `[]`
	}
	return b.String(), string(data)
}
