package mdstore

import (
	"sort"
)

// parsedFile is one user-space .md file's parsed frontmatter plus its
// location, used by every Layer 1 "read all" contract.
type parsedFile struct {
	RelativePath string
	Data         map[string]any
	Body         string
}

// scanUserEntities walks every user-space .md file under the scope root
// and returns the ones whose prizm_type frontmatter tag equals want.
func (s *Store) scanUserEntities(want string) ([]parsedFile, error) {
	entries, err := s.ListDirectory("", true, false)
	if err != nil {
		return nil, err
	}

	var out []parsedFile
	var walk func([]DirEntry)
	walk = func(list []DirEntry) {
		for _, e := range list {
			if e.IsDir {
				walk(e.Children)
				continue
			}
			if e.PrizmType != want {
				continue
			}
			fi, err := s.ReadFileByPath(e.RelativePath)
			if err != nil || fi == nil || fi.IsBinary {
				continue
			}
			out = append(out, parsedFile{
				RelativePath: e.RelativePath,
				Data:         fi.Frontmatter,
				Body:         fi.Content,
			})
		}
	}
	walk(entries)
	return out, nil
}

// scanSystemEntities is scanUserEntities restricted to one .prizm
// subdirectory (clipboard, agent-sessions, …), for entity families that
// live entirely under the system path.
func (s *Store) scanSystemEntities(systemRelDir string) ([]parsedFile, error) {
	entries, err := s.ListDirectory(systemRelDir, false, true)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	var out []parsedFile
	for _, e := range entries {
		if e.IsDir || e.PrizmType == "" {
			continue
		}
		fi, err := s.ReadSystemFileByPath(e.RelativePath)
		if err != nil || fi == nil || fi.IsBinary {
			continue
		}
		out = append(out, parsedFile{
			RelativePath: e.RelativePath,
			Data:         fi.Frontmatter,
			Body:         fi.Content,
		})
	}
	return out, nil
}

func sortByCreatedAtField(files []parsedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return int64Field(files[i].Data, "createdAt") < int64Field(files[j].Data, "createdAt")
	})
}

// int64Field reads an integer frontmatter field, tolerating the several
// numeric shapes a YAML decode into map[string]any may produce.
func int64Field(data map[string]any, key string) int64 {
	v, ok := data[key]
	if !ok {
		return 0
	}
	return anyToInt64(v)
}

// anyToInt64 coerces one of the numeric shapes a YAML decode into `any`
// may produce to int64.
func anyToInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
