package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders a document body for terminal display. Outside a
// TTY (or when the renderer fails) the source is returned verbatim so
// piped output stays clean Markdown.
func RenderMarkdown(src string) string {
	if !IsTerminal() || !ShouldUseColor() {
		return src
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetWidth()),
	)
	if err != nil {
		return src
	}
	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return out
}
