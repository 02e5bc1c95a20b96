package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	TableWarningStyle = lipgloss.NewStyle().
		Foreground(ColorWarn)

	TableSuccessStyle = lipgloss.NewStyle().
		Foreground(ColorPass)

	TableHintStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	TableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// SearchHit is one row of a prizm_search result, mirroring the
// structured_data shape the daemon emits alongside its plain-text
// rendering.
type SearchHit struct {
	Path  string
	Score int
	Via   string // "title" or "content"
}

// NewSearchTable renders prizm_search hits: path, match distance, and
// whether the hit came from the title or a content grep, styling the
// "title" rows to stand out since a title hit is the stronger signal.
func NewSearchTable(width int, hits []SearchHit) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Headers("PATH", "SCORE", "VIA").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col == 2 && hits[row].Via == "title" {
				return TableSuccessStyle
			}
			return lipgloss.NewStyle()
		})
	for _, h := range hits {
		t.Row(h.Path, strconv.Itoa(h.Score), h.Via)
	}
	return t
}

// LockTable renders a single resource lock's status for `prizm lock
// status`, styling the row as a warning when sessionID (the caller's own
// session) isn't the one holding the lock.
func LockTable(width int, resourceType, resourceID, holderSessionID, sessionID string, fenceToken uint64, acquiredAt string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Headers("RESOURCE TYPE", "RESOURCE ID", "HOLDER SESSION", "FENCE", "ACQUIRED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if holderSessionID == sessionID {
				return TableSuccessStyle
			}
			return TableWarningStyle
		})
	t.Row(resourceType, resourceID, holderSessionID, strconv.FormatUint(fenceToken, 10), acquiredAt)
	return t
}
