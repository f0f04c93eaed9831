package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/session"
	"github.com/mpecarina/colorssh/internal/vt"
)

const doubleClickWindow = 400 * time.Millisecond

// handleMouse implements spec §4.H.2/§4.H.3's mouse semantics: host-panel
// click/double-click/collapse-toggle, and terminal-view forward-to-child
// vs. local text selection with OSC 52 copy-on-release.
func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	hostPanelWidth := 0
	if m.hostPanelShown {
		hostPanelWidth = m.hostPanelWidth + 1
	}

	if m.hostPanelShown && msg.X < m.hostPanelWidth {
		return m.handleHostPanelMouse(msg)
	}

	localX := msg.X - hostPanelWidth
	localY := msg.Y
	return m.handleTerminalMouse(msg, localX, localY)
}

func (m *Model) handleHostPanelMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.MouseLeft {
		return m, nil
	}
	idx := msg.Y + m.listScroll
	if m.hostSearchMode {
		idx-- // the query edit line occupies row 0 while searching
	}
	if idx < 0 || idx >= len(m.visible) {
		return m, nil
	}

	now := time.Now()
	isDouble := idx == m.selected && now.Sub(m.lastClickAt) < doubleClickWindow
	m.lastClickAt = now
	m.selected = idx
	m.focus = FocusHostPanel

	row2 := m.visible[idx]
	switch row2.kind {
	case rowFolder:
		if m.collapsed[row2.folder.ID] {
			delete(m.collapsed, row2.folder.ID)
		} else {
			m.collapsed[row2.folder.ID] = true
		}
		m.rebuildVisible()
	case rowHost:
		if isDouble {
			m.openTab(m.tree.Hosts[row2.hostIdx])
		}
	}
	return m, nil
}

func (m *Model) handleTerminalMouse(msg tea.MouseMsg, x, y int) (tea.Model, tea.Cmd) {
	if y == 0 {
		return m.handleTabBarMouse(msg, x)
	}

	tab := m.activeTabPtr()
	if tab == nil || tab.sess == nil {
		return m, nil
	}

	screen := tab.sess.Emulator.Screen()
	childWantsMouse := screen.MouseMode != vt.MouseNone
	if childWantsMouse && !msg.Alt {
		m.forwardMouseToChild(tab, screen, msg, x, y)
		return m, nil
	}

	contentY := y - 1 // tab bar occupies row 0
	switch msg.Type {
	case tea.MouseLeft:
		tab.selecting = true
		tab.hasSelection = false
		tab.selAnchorRow, tab.selAnchorCol = contentY, x
		tab.selActiveRow, tab.selActiveCol = contentY, x
	case tea.MouseMotion:
		if tab.selecting {
			tab.selActiveRow, tab.selActiveCol = contentY, x
			tab.hasSelection = true
		}
	case tea.MouseRelease:
		if tab.selecting {
			tab.selecting = false
			if tab.hasSelection {
				m.copyTabSelection(tab)
			}
		}
	case tea.MouseRight:
		if tab.hasSelection {
			m.copyTabSelection(tab)
			tab.hasSelection = false
		}
	}
	return m, nil
}

// handleTabBarMouse routes a click/drag/wheel on the tab-bar row (row 0
// of the terminal strip) to scroll-marker, select, close, or
// drag-reorder, ahead of the terminal text-selection path — spec
// §4.H.1's tab-bar mouse interactions.
func (m *Model) handleTabBarMouse(msg tea.MouseMsg, x int) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseLeft:
		m.handleTabBarClick(x)
	case tea.MouseMotion:
		m.handleTabBarDrag(x)
	case tea.MouseRelease:
		m.tabDragging = false
	case tea.MouseWheelUp:
		m.shiftActiveTab(-1)
	case tea.MouseWheelDown:
		m.shiftActiveTab(1)
	}
	return m, nil
}

func (m *Model) handleTabBarClick(x int) {
	hit := m.tabBarHitTest(x)
	switch hit.kind {
	case tabHitScrollLeft:
		if offset, ok := m.prevTabScrollOffset(m.tabScrollOffset, m.tabBarWidth); ok {
			m.tabScrollOffset = offset
		}
	case tabHitScrollRight:
		if offset, ok := m.nextTabScrollOffset(m.tabScrollOffset, m.tabBarWidth); ok {
			m.tabScrollOffset = offset
		}
	case tabHitClose:
		m.closeTab(hit.idx)
	case tabHitSelect:
		m.activeTab = hit.idx
		m.focus = FocusTerminal
		m.ensureTabVisible()
		// A title click also arms drag-to-reorder: a subsequent
		// MouseMotion over a different tab before release swaps it
		// into that slot, generalizing moveTab's keyboard reorder to
		// the mouse.
		m.tabDragging = true
		m.tabDragIdx = hit.idx
	}
	m.dirty = true
}

func (m *Model) handleTabBarDrag(x int) {
	if !m.tabDragging || len(m.tabs) < 2 {
		return
	}
	hit := m.tabBarHitTest(x)
	if hit.kind != tabHitSelect && hit.kind != tabHitClose {
		return
	}
	if hit.idx == m.tabDragIdx {
		return
	}
	m.tabs[m.tabDragIdx], m.tabs[hit.idx] = m.tabs[hit.idx], m.tabs[m.tabDragIdx]
	m.activeTab = hit.idx
	m.tabDragIdx = hit.idx
	m.ensureTabVisible()
	m.dirty = true
}

func (m *Model) shiftActiveTab(delta int) {
	if len(m.tabs) == 0 {
		return
	}
	newIdx := m.activeTab + delta
	if newIdx < 0 || newIdx >= len(m.tabs) {
		return
	}
	m.activeTab = newIdx
	m.focus = FocusTerminal
	m.ensureTabVisible()
	m.dirty = true
}

func (m *Model) forwardMouseToChild(tab *Tab, screen vt.Screen, msg tea.MouseMsg, x, y int) {
	button := 0
	release := false
	switch msg.Type {
	case tea.MouseLeft:
		button = 0
	case tea.MouseRight:
		button = 2
	case tea.MouseRelease:
		release = true
	case tea.MouseWheelUp:
		button = 64
	case tea.MouseWheelDown:
		button = 65
	case tea.MouseMotion:
		button = 32
	}
	tab.sess.Write(session.EncodeMouse(screen.MouseEncoding, button, x+1, y+1, release))
}
