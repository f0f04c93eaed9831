package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/session"
	"github.com/mpecarina/colorssh/internal/vt"
)

// handleKey is the event loop's dispatch-by-priority entry point, per
// spec §4.I: modal > host-search edit mode > terminal-search (focused
// tab) > tab-key handler (terminal focused & tab exists) > host-panel
// handler.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != ModalNone {
		switch m.modal {
		case ModalQuickConnect:
			return m.handleQuickConnectKey(msg)
		case ModalPassUnlock:
			return m.handlePassUnlockKey(msg)
		}
	}

	if m.hostSearchMode {
		return m.handleHostSearchKey(msg)
	}

	if tab := m.activeTabPtr(); m.focus == FocusTerminal && tab != nil && tab.searchActive {
		return m.handleTerminalSearchKey(msg)
	}

	if m.focus == FocusTerminal && m.activeTabPtr() != nil {
		return m.handleTabKey(msg)
	}

	return m.handleHostPanelKey(msg)
}

// handleHostPanelKey implements spec §4.H.2's host-panel keyboard
// table.
func (m *Model) handleHostPanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.dirty = true
		}
	case "down", "j":
		if m.selected < len(m.visible)-1 {
			m.selected++
			m.dirty = true
		}
	case "pgup":
		m.selected = clampInt(m.selected-10, 0, len(m.visible)-1)
		m.dirty = true
	case "pgdown":
		m.selected = clampInt(m.selected+10, 0, len(m.visible)-1)
		m.dirty = true
	case "home":
		m.selected = 0
		m.dirty = true
	case "end":
		m.selected = len(m.visible) - 1
		m.dirty = true
	case "left":
		if row, ok := m.selectedRow(); ok && row.kind == rowFolder {
			m.collapsed[row.folder.ID] = true
			m.rebuildVisible()
		}
	case "right":
		if row, ok := m.selectedRow(); ok && row.kind == rowFolder {
			delete(m.collapsed, row.folder.ID)
			m.rebuildVisible()
		}
	case "enter":
		m.activateSelectedRow()
	case "ctrl+f", "/":
		m.hostSearchMode = true
		m.hostQueryInput.SetValue(m.hostQuery)
		m.hostQueryInput.Focus()
	case "c":
		if m.hostQuery == "" {
			m.toggleCollapseAll()
		}
	case "ctrl+c":
		if m.hostQuery != "" {
			m.hostQuery = ""
			m.rebuildVisible()
		}
	case "i":
		m.showInfoPane = !m.showInfoPane
	case "q":
		m.quickConnect = newQuickConnectModal()
		m.modal = ModalQuickConnect
	case "ctrl+left":
		m.hostPanelWidth = clampInt(m.hostPanelWidth-2, minHostPanelWidth, maxHostPanelWidth)
	case "ctrl+right":
		m.hostPanelWidth = clampInt(m.hostPanelWidth+2, minHostPanelWidth, maxHostPanelWidth)
	case "ctrl+b":
		m.hostPanelShown = !m.hostPanelShown
		m.resizeActiveTabs()
	case "shift+tab":
		if m.activeTabPtr() != nil {
			m.focus = FocusTerminal
		}
	}
	return m, nil
}

func (m *Model) activateSelectedRow() {
	row, ok := m.selectedRow()
	if !ok {
		return
	}
	switch row.kind {
	case rowFolder:
		if m.collapsed[row.folder.ID] {
			delete(m.collapsed, row.folder.ID)
		} else {
			m.collapsed[row.folder.ID] = true
		}
		m.rebuildVisible()
	case rowHost:
		if row.hostIdx >= 0 && row.hostIdx < len(m.tree.Hosts) {
			m.openTab(m.tree.Hosts[row.hostIdx])
		}
	}
}

func (m *Model) handleHostSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.hostSearchMode = false
		m.hostQueryInput.Blur()
		return m, nil
	case "enter":
		m.hostSearchMode = false
		m.hostQueryInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.hostQueryInput, cmd = m.hostQueryInput.Update(msg)
	m.hostQuery = strings.TrimSpace(m.hostQueryInput.Value())
	m.rebuildVisible()
	return m, cmd
}

// handleTabKey implements spec §4.H.3's terminal-focus keyboard
// table: intercepted keys are handled here; everything else is
// encoded and forwarded to the PTY.
func (m *Model) handleTabKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.activeTabPtr()
	switch msg.String() {
	case "shift+tab":
		m.focus = FocusHostPanel
		return m, nil
	case "alt+left":
		m.prevTab()
		return m, nil
	case "alt+right":
		m.nextTab()
		return m, nil
	case "ctrl+left":
		m.moveTab(-1)
		return m, nil
	case "ctrl+right":
		m.moveTab(1)
		return m, nil
	case "ctrl+w":
		m.closeTab(m.activeTab)
		return m, nil
	case "ctrl+b":
		m.hostPanelShown = !m.hostPanelShown
		m.resizeActiveTabs()
		return m, nil
	case "ctrl+f":
		if tab.sess == nil || tab.sess.Emulator.Screen().MouseMode == vt.MouseNone {
			tab.searchActive = true
		}
		return m, nil
	case "alt+c":
		m.copyTabSelection(tab)
		return m, nil
	case "shift+pgup":
		tab.scrollOffset += 10
		return m, nil
	case "shift+pgdown":
		if tab.scrollOffset > 10 {
			tab.scrollOffset -= 10
		} else {
			tab.scrollOffset = 0
		}
		return m, nil
	case "enter":
		if tab.sess != nil && tab.sess.Exited() {
			m.reconnectTab(m.activeTab)
			return m, nil
		}
	}

	if tab.sess == nil {
		return m, nil
	}
	if encoded := encodeKeyForPTY(msg); len(encoded) > 0 {
		tab.sess.Write(encoded)
	}
	return m, nil
}

// encodeKeyForPTY translates a bubbletea key message into the bytes
// the child process expects, using internal/session's encoder tables.
func encodeKeyForPTY(msg tea.KeyMsg) []byte {
	mods := session.Modifiers{
		Shift: strings.Contains(msg.String(), "shift+"),
		Alt:   strings.Contains(msg.String(), "alt+"),
		Ctrl:  strings.Contains(msg.String(), "ctrl+"),
	}

	if msg.String() == " " {
		return session.EncodeChar(' ', mods.Alt)
	}

	switch msg.Type {
	case tea.KeyUp:
		return session.EncodeNamedKey(session.KeyUp, mods)
	case tea.KeyDown:
		return session.EncodeNamedKey(session.KeyDown, mods)
	case tea.KeyLeft:
		return session.EncodeNamedKey(session.KeyLeft, mods)
	case tea.KeyRight:
		return session.EncodeNamedKey(session.KeyRight, mods)
	case tea.KeyPgUp:
		return session.EncodeNamedKey(session.KeyPageUp, mods)
	case tea.KeyPgDown:
		return session.EncodeNamedKey(session.KeyPageDown, mods)
	case tea.KeyHome:
		return session.EncodeNamedKey(session.KeyHome, mods)
	case tea.KeyEnd:
		return session.EncodeNamedKey(session.KeyEnd, mods)
	case tea.KeyDelete:
		return session.EncodeNamedKey(session.KeyDelete, mods)
	case tea.KeyBackspace:
		return session.EncodeNamedKey(session.KeyBackspace, mods)
	case tea.KeyEnter:
		return session.EncodeNamedKey(session.KeyEnter, mods)
	case tea.KeyTab:
		return session.EncodeNamedKey(session.KeyTab, mods)
	case tea.KeyEsc:
		return session.EncodeNamedKey(session.KeyEsc, mods)
	case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyCtrlA, tea.KeyCtrlE, tea.KeyCtrlU, tea.KeyCtrlK, tea.KeyCtrlL, tea.KeyCtrlR, tea.KeyCtrlW, tea.KeyCtrlQ:
		r := ctrlKeyRune(msg.Type)
		return session.EncodeControl(r)
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			return session.EncodeChar(msg.Runes[0], mods.Alt)
		}
		var out []byte
		for _, r := range msg.Runes {
			out = append(out, session.EncodeChar(r, false)...)
		}
		return out
	}
	return nil
}

func ctrlKeyRune(t tea.KeyType) rune {
	switch t {
	case tea.KeyCtrlA:
		return 'a'
	case tea.KeyCtrlC:
		return 'c'
	case tea.KeyCtrlD:
		return 'd'
	case tea.KeyCtrlE:
		return 'e'
	case tea.KeyCtrlK:
		return 'k'
	case tea.KeyCtrlL:
		return 'l'
	case tea.KeyCtrlR:
		return 'r'
	case tea.KeyCtrlU:
		return 'u'
	case tea.KeyCtrlW:
		return 'w'
	case tea.KeyCtrlQ:
		return 'q'
	}
	return 0
}

func (m *Model) prevTab() {
	if len(m.tabs) == 0 {
		return
	}
	m.activeTab = (m.activeTab - 1 + len(m.tabs)) % len(m.tabs)
	m.ensureTabVisible()
}

func (m *Model) nextTab() {
	if len(m.tabs) == 0 {
		return
	}
	m.activeTab = (m.activeTab + 1) % len(m.tabs)
	m.ensureTabVisible()
}

func (m *Model) moveTab(delta int) {
	if len(m.tabs) < 2 {
		return
	}
	newIdx := clampInt(m.activeTab+delta, 0, len(m.tabs)-1)
	if newIdx == m.activeTab {
		return
	}
	m.tabs[m.activeTab], m.tabs[newIdx] = m.tabs[newIdx], m.tabs[m.activeTab]
	m.activeTab = newIdx
	m.ensureTabVisible()
}

func (m *Model) copyTabSelection(tab *Tab) {
	if tab == nil || tab.sess == nil || !tab.hasSelection {
		return
	}
	// Selection rows are viewport rows; SelectionText takes absolute rows
	// (row 0 = oldest scrollback row), so offset by the viewport's top.
	emu := tab.sess.Emulator
	top := emu.ScrollbackLen() - clampInt(tab.scrollOffset, 0, emu.ScrollbackLen())
	text := emu.SelectionText(top+tab.selAnchorRow, tab.selAnchorCol, top+tab.selActiveRow, tab.selActiveCol)
	if text == "" {
		return
	}
	os.Stdout.Write(session.EncodeOSC52Clipboard(text))
	m.setStatus(fmt.Sprintf("copied %d bytes", len(text)), statusShort)
}
