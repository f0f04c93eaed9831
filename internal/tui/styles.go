package tui

import "github.com/charmbracelet/lipgloss"

// styles bundles the lipgloss styles used to paint session-manager
// chrome: selection, folder/host rows, the tab bar, the status bar, and
// terminal-search highlighting. Adapted from the teacher's hand-rolled
// ANSI Theme (pkg/manager/theme.go) onto lipgloss, which the teacher's
// own tui_bubble.go already uses for width-aware column rendering.
type styles struct {
	folderRow        lipgloss.Style
	hostRow          lipgloss.Style
	selectedRow      lipgloss.Style
	dimRow           lipgloss.Style
	statusBar        lipgloss.Style
	tabActive        lipgloss.Style
	tabInactive      lipgloss.Style
	tabCloseActive   lipgloss.Style
	tabCloseInactive lipgloss.Style
	tabScrollMark    lipgloss.Style
	separator        lipgloss.Style
	searchMatch      lipgloss.Style
	searchCurrent    lipgloss.Style
	errText          lipgloss.Style
}

func newStyles() styles {
	return styles{
		folderRow:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		hostRow:          lipgloss.NewStyle(),
		selectedRow:      lipgloss.NewStyle().Bold(true).Reverse(true),
		dimRow:           lipgloss.NewStyle().Faint(true),
		statusBar:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236")),
		tabActive:        lipgloss.NewStyle().Bold(true).Underline(true),
		tabInactive:      lipgloss.NewStyle().Faint(true),
		tabCloseActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		tabCloseInactive: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
		tabScrollMark:    lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		separator:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		searchMatch:      lipgloss.NewStyle().Background(lipgloss.Color("58")),
		searchCurrent:    lipgloss.NewStyle().Background(lipgloss.Color("208")).Foreground(lipgloss.Color("0")),
		errText:          lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
