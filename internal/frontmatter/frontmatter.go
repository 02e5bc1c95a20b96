// Package frontmatter parses and emits Markdown files carrying a leading
// YAML-delimited metadata block, preserving the body verbatim.
package frontmatter

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// File is a parsed Markdown document: its frontmatter data and its body.
type File struct {
	Data map[string]any
	Body string
}

// Parse splits raw content into frontmatter data and body. A file that does
// not begin with the delimiter, or whose frontmatter block does not parse
// as YAML, is treated as having no data — the whole file becomes the body.
// Corrupt frontmatter is skipped, never mutated.
func Parse(raw []byte) *File {
	str := string(raw)

	if !strings.HasPrefix(str, delimiter) {
		return &File{Data: map[string]any{}, Body: str}
	}

	rest := str[len(delimiter):]
	idx := strings.Index(rest, "\n"+delimiter)
	if idx == -1 {
		return &File{Data: map[string]any{}, Body: str}
	}

	fmYAML := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+delimiter):], "\n")

	var data map[string]any
	if err := yaml.Unmarshal([]byte(fmYAML), &data); err != nil {
		return &File{Data: map[string]any{}, Body: str}
	}
	if data == nil {
		data = map[string]any{}
	}

	return &File{Data: data, Body: body}
}

// Emit renders data and body back into raw Markdown. Key ordering in the
// emitted YAML is stable (alphabetic, via yaml.v3's map-key sort) and lines
// are never wrapped. The output always ends with a trailing newline.
func Emit(data map[string]any, body string) ([]byte, error) {
	var buf bytes.Buffer

	if len(data) > 0 {
		buf.WriteString(delimiter)
		buf.WriteString("\n")

		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}

		buf.WriteString(delimiter)
		buf.WriteString("\n")
	}

	buf.WriteString(body)

	out := buf.Bytes()
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// Type returns the prizm_type frontmatter value, or "" if absent or not a
// string.
func (f *File) Type() string {
	v, ok := f.Data["prizm_type"]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// String returns a named string field from the frontmatter data, or "" if
// absent or not a string.
func (f *File) String(key string) string {
	v, ok := f.Data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
