package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/vt"
)

// handleTerminalSearchKey implements spec §4.H.4: independent per-tab
// search state, recomputed on every query edit.
func (m *Model) handleTerminalSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.activeTabPtr()
	if tab == nil {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		tab.searchActive = false
		tab.searchQuery = ""
		tab.matches = nil
		tab.matchIdx = 0
		return m, nil

	case "enter", "down":
		m.advanceMatch(tab, 1)
		return m, nil

	case "up":
		m.advanceMatch(tab, -1)
		return m, nil

	case "backspace":
		if len(tab.searchQuery) > 0 {
			r := []rune(tab.searchQuery)
			tab.searchQuery = string(r[:len(r)-1])
			m.recomputeMatches(tab)
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		tab.searchQuery += string(msg.Runes)
		m.recomputeMatches(tab)
	}
	return m, nil
}

// recomputeMatches re-runs the literal search and resets to the first
// match, scrolling it into view near height/3.
func (m *Model) recomputeMatches(tab *Tab) {
	if tab.sess == nil || tab.searchQuery == "" {
		tab.matches = nil
		tab.matchIdx = 0
		return
	}
	tab.matches = tab.sess.Emulator.SearchLiteral(tab.searchQuery)
	tab.matchIdx = 0
	m.scrollToCurrentMatch(tab)
}

func (m *Model) advanceMatch(tab *Tab, delta int) {
	if len(tab.matches) == 0 {
		return
	}
	tab.matchIdx = ((tab.matchIdx+delta)%len(tab.matches) + len(tab.matches)) % len(tab.matches)
	m.scrollToCurrentMatch(tab)
}

// scrollToCurrentMatch positions the viewport so the current match
// lands near row height/3, per spec.
func (m *Model) scrollToCurrentMatch(tab *Tab) {
	if tab.sess == nil || len(tab.matches) == 0 {
		return
	}
	match := tab.matches[tab.matchIdx]
	rows, _ := m.terminalViewportSize()
	target := rows / 3
	offset := tab.sess.Emulator.ScrollbackLen() - match.AbsRow + target
	if offset < 0 {
		offset = 0
	}
	tab.scrollOffset = offset
	tab.sess.Emulator.SetScrollback(tab.scrollOffset)
}

// currentMatch returns the match under the cursor, if any, for View's
// highlighting pass.
func (t *Tab) currentMatch() (vt.Match, bool) {
	if len(t.matches) == 0 || t.matchIdx < 0 || t.matchIdx >= len(t.matches) {
		return vt.Match{}, false
	}
	return t.matches[t.matchIdx], true
}
