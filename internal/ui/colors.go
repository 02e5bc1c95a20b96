package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared by table rendering, prompts, and status lines.
var (
	ColorAccent = lipgloss.Color("62")  // purple-blue, headers and emphasis
	ColorWarn   = lipgloss.Color("214") // amber, locked/denied/pending
	ColorPass   = lipgloss.Color("42")  // green, success/ready
	ColorMuted  = lipgloss.Color("240") // gray, borders and hints
)
