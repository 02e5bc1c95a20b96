package tools

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/workspace"
)

type fileArgs struct {
	Action    string `json:"action"`
	Path      string `json:"path"`
	ToPath    string `json:"toPath"`
	Content   string `json:"content"`
	Pattern   string `json:"pattern"`
	Recursive bool   `json:"recursive"`
}

// fileTool implements prizm_file{list,read,write,move,delete,grep,glob}.
// Every action resolves its path through internal/workspace first; locks
// are never consulted here, since raw file operations sit below the
// typed document/todo/schedule resources locks protect.
func (r *Registry) fileTool(wsCtx workspace.Context, wsType workspace.Type, raw json.RawMessage) *rpc.InvokeResponse {
	var a fileArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return invalidInput("malformed prizm_file arguments: " + err.Error())
	}

	switch a.Action {
	case "list":
		return r.fileList(wsCtx, wsType, a)
	case "read":
		return r.fileRead(wsCtx, wsType, a)
	case "write":
		return r.fileWrite(wsCtx, wsType, a)
	case "move":
		return r.fileMove(wsCtx, wsType, a)
	case "delete":
		return r.fileDelete(wsCtx, wsType, a)
	case "grep":
		return r.fileGrep(wsCtx, wsType, a)
	case "glob":
		return r.fileGlob(wsCtx, wsType, a)
	default:
		return invalidInput("unknown prizm_file action: " + a.Action)
	}
}

// resolveStore turns a raw path argument into a store + relative path,
// or an OUT_OF_BOUNDS result when it can't be placed inside any allowed
// workspace root.
func (r *Registry) resolveStore(wsCtx workspace.Context, rawPath string, wsType workspace.Type) (*mdstore.Store, string, workspace.Type, *rpc.InvokeResponse) {
	md, rel, resolvedType, ok := r.storeForWorkspace(wsCtx, rawPath, wsType)
	if !ok {
		return nil, "", "", errResult(CodeOutOfBounds, "path is outside any accessible workspace: "+rawPath)
	}
	return md, rel, resolvedType, nil
}

func mapStoreErr(err error) *rpc.InvokeResponse {
	switch {
	case errors.Is(err, mdstore.ErrPermissionSystemPath), errors.Is(err, mdstore.ErrInvalidPath):
		return errResult(CodeOutOfBounds, err.Error())
	case errors.Is(err, mdstore.ErrNotFound):
		return errResult(CodeNotFound, err.Error())
	default:
		var ioErr *mdstore.IOError
		if errors.As(err, &ioErr) {
			return ioErrorResult(ioErr)
		}
		return ioErrorResult(err)
	}
}

func (r *Registry) fileList(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, orDot(a.Path), wsType)
	if errResp != nil {
		return errResp
	}

	entries, err := md.ListDirectory(rel, a.Recursive, false)
	if err != nil {
		return mapStoreErr(err)
	}

	var b strings.Builder
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		b.WriteString(kind + "\t" + e.RelativePath + "\n")
	}
	return textResult(b.String() + workspaceLabel(resolvedType))
}

func (r *Registry) fileRead(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, a.Path, wsType)
	if errResp != nil {
		return errResp
	}

	fi, err := md.ReadFileByPath(rel)
	if err != nil {
		return mapStoreErr(err)
	}
	if fi == nil {
		return errResult(CodeNotFound, "file not found: "+a.Path)
	}
	if fi.IsBinary {
		return textResult("[binary file, " + humanBytes(fi.Size) + "]" + workspaceLabel(resolvedType))
	}
	return textResult(fi.Content + workspaceLabel(resolvedType))
}

func (r *Registry) fileWrite(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, a.Path, wsType)
	if errResp != nil {
		return errResp
	}

	if err := md.WriteFileByPath(rel, []byte(a.Content)); err != nil {
		return mapStoreErr(err)
	}
	return textResult("wrote " + a.Path + workspaceLabel(resolvedType))
}

func (r *Registry) fileMove(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, a.Path, wsType)
	if errResp != nil {
		return errResp
	}
	toMd, toRel, _, errResp2 := r.resolveStore(wsCtx, a.ToPath, wsType)
	if errResp2 != nil {
		return errResp2
	}
	if toMd != md {
		return invalidInput("move destination must be in the same workspace as the source")
	}

	if err := md.MoveFile(rel, toRel); err != nil {
		return mapStoreErr(err)
	}
	return textResult("moved " + a.Path + " to " + a.ToPath + workspaceLabel(resolvedType))
}

// fileDelete always rejects a system path as OUT_OF_BOUNDS and leaves the
// filesystem untouched, regardless of workspace.
func (r *Registry) fileDelete(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, a.Path, wsType)
	if errResp != nil {
		return errResp
	}

	if err := md.DeleteByPath(rel); err != nil {
		return mapStoreErr(err)
	}
	return textResult("deleted " + a.Path + workspaceLabel(resolvedType))
}

func (r *Registry) fileGrep(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	if a.Pattern == "" {
		return invalidInput("grep requires a non-empty pattern")
	}
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return invalidInput("invalid grep pattern: " + err.Error())
	}

	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, orDot(a.Path), wsType)
	if errResp != nil {
		return errResp
	}

	entries, err := md.ListDirectory(rel, true, false)
	if err != nil {
		return mapStoreErr(err)
	}

	var matches []string
	walkFiles(entries, func(e mdstore.DirEntry) {
		if e.IsDir {
			return
		}
		fi, ferr := md.ReadFileByPath(e.RelativePath)
		if ferr != nil || fi == nil || fi.IsBinary {
			return
		}
		for i, line := range strings.Split(fi.Content, "\n") {
			if re.MatchString(line) {
				matches = append(matches, e.RelativePath+":"+strconv.Itoa(i+1)+": "+line)
			}
		}
	})
	sort.Strings(matches)

	if len(matches) == 0 {
		return textResult("no matches" + workspaceLabel(resolvedType))
	}
	return textResult(strings.Join(matches, "\n") + workspaceLabel(resolvedType))
}

func (r *Registry) fileGlob(wsCtx workspace.Context, wsType workspace.Type, a fileArgs) *rpc.InvokeResponse {
	if a.Pattern == "" {
		return invalidInput("glob requires a non-empty pattern")
	}

	md, rel, resolvedType, errResp := r.resolveStore(wsCtx, orDot(a.Path), wsType)
	if errResp != nil {
		return errResp
	}

	entries, err := md.ListDirectory(rel, true, false)
	if err != nil {
		return mapStoreErr(err)
	}

	var matches []string
	walkFiles(entries, func(e mdstore.DirEntry) {
		if e.IsDir {
			return
		}
		if ok, _ := filepath.Match(a.Pattern, filepath.Base(e.RelativePath)); ok {
			matches = append(matches, e.RelativePath)
		}
	})
	sort.Strings(matches)

	if len(matches) == 0 {
		return textResult("no matches" + workspaceLabel(resolvedType))
	}
	return textResult(strings.Join(matches, "\n") + workspaceLabel(resolvedType))
}

func walkFiles(entries []mdstore.DirEntry, fn func(mdstore.DirEntry)) {
	for _, e := range entries {
		fn(e)
		if e.IsDir && len(e.Children) > 0 {
			walkFiles(e.Children, fn)
		}
	}
}

func orDot(path string) string {
	if path == "" {
		return "."
	}
	return path
}

func humanBytes(n int64) string {
	return strconv.FormatInt(n, 10) + " bytes"
}
