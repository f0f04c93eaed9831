package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/catalog"
	"github.com/mpecarina/colorssh/internal/pass"
	"github.com/mpecarina/colorssh/internal/session"
	"github.com/mpecarina/colorssh/internal/vt"
)

// passResolvedMsg carries the result of a pass-unlock retry performed
// inside a tea.Cmd; apply mutates the Model on the Update goroutine
// once the (potentially slow, gpg-invoking) resolution completes.
type passResolvedMsg struct {
	apply func(m *Model)
}

// applyCmd wraps a synchronous Model mutation as a tea.Cmd, used for
// the cancel path where there is no blocking work to defer.
func applyCmd(fn func(m *Model)) tea.Cmd {
	return func() tea.Msg { return passResolvedMsg{apply: fn} }
}

// Tab is one terminal-strip tab: a host binding plus (if connected) a
// live PTY session and its own independent terminal-search state.
type Tab struct {
	Title string
	Host  catalog.Host

	sess          *session.Session
	exitedNoticed bool

	lastErr error

	searchActive bool
	searchQuery  string
	matches      []vt.Match
	matchIdx     int
	scrollOffset int

	selecting    bool
	selAnchorRow int
	selAnchorCol int
	selActiveRow int
	selActiveCol int
	hasSelection bool
}

// scrollReset returns the viewport to the live tail, used after a
// clear-screen/clear-scrollback sequence is observed.
func (t *Tab) scrollReset() {
	t.scrollOffset = 0
}

// openTab resolves a password for host and spawns a PTY session,
// appending a new tab and selecting it. If the cache reports a
// failure, it opens the pass-unlock modal instead; the modal's Enter
// handler drives a retry through a tea.Cmd (see passResolvedMsg) so
// the blocking gpg invocation never runs on the Update goroutine.
func (m *Model) openTab(host catalog.Host) {
	result := m.passes.Resolve(host.PassKey)
	if result.Failed {
		m.passUnlock = newPassUnlockModal(host.PassKey, func(password string, cancelled bool) tea.Cmd {
			if cancelled {
				return applyCmd(func(m *Model) { m.finishOpenTab(host, "", pass.FallbackNotice) })
			}
			return func() tea.Msg {
				retry := m.passes.Resolve(host.PassKey)
				notice := ""
				if retry.Failed {
					notice = retry.Fallback.String()
				}
				return passResolvedMsg{apply: func(m *Model) { m.finishOpenTab(host, retry.Password, notice) }}
			}
		})
		m.modal = ModalPassUnlock
		return
	}
	m.finishOpenTab(host, result.Password, "")
}

func (m *Model) finishOpenTab(host catalog.Host, password, notice string) {
	rows, cols := m.terminalViewportSize()
	tab := &Tab{Title: host.Name, Host: host}

	selfPath := m.opts.SelfPath
	history := m.opts.HistoryRows
	if history <= 0 {
		history = 10000
	}

	sess, err := session.Spawn(selfPath, host.Name, host.Name, history, m.opts.ForceLog, m.opts.Profile,
		session.Size{Rows: rows, Cols: cols}, password, notice)
	if err != nil {
		tab.lastErr = err
		m.setStatus(fmt.Sprintf("failed to open %s: %v", host.Name, err), statusShort)
	} else {
		tab.sess = sess
	}

	m.tabs = append(m.tabs, tab)
	m.activeTab = len(m.tabs) - 1
	m.focus = FocusTerminal
	if m.recents != nil {
		m.recents.Touch(host.Name)
	}
	m.dirty = true
}

// reconnectTab re-spawns the session for an exited tab in place,
// preserving its position and title.
func (m *Model) reconnectTab(idx int) {
	if idx < 0 || idx >= len(m.tabs) {
		return
	}
	tab := m.tabs[idx]
	if tab.sess != nil {
		tab.sess.Close()
	}
	result := m.passes.Resolve(tab.Host.PassKey)
	if result.Failed {
		m.passUnlock = newPassUnlockModal(tab.Host.PassKey, func(password string, cancelled bool) tea.Cmd {
			if cancelled {
				return applyCmd(func(m *Model) { m.finishReconnect(idx, "", pass.FallbackNotice) })
			}
			return func() tea.Msg {
				retry := m.passes.Resolve(tab.Host.PassKey)
				notice := ""
				if retry.Failed {
					notice = retry.Fallback.String()
				}
				return passResolvedMsg{apply: func(m *Model) { m.finishReconnect(idx, retry.Password, notice) }}
			}
		})
		m.modal = ModalPassUnlock
		return
	}
	m.finishReconnect(idx, result.Password, "")
}

func (m *Model) finishReconnect(idx int, password, notice string) {
	if idx < 0 || idx >= len(m.tabs) {
		return
	}
	tab := m.tabs[idx]
	rows, cols := m.terminalViewportSize()
	sess, err := session.Spawn(m.opts.SelfPath, tab.Host.Name, tab.Title,
		valueOr(m.opts.HistoryRows, 10000), m.opts.ForceLog, m.opts.Profile, session.Size{Rows: rows, Cols: cols}, password, notice)
	if err != nil {
		tab.lastErr = err
		m.setStatus(fmt.Sprintf("reconnect failed: %v", err), statusShort)
		return
	}
	tab.sess = sess
	tab.exitedNoticed = false
	tab.lastErr = nil
	m.dirty = true
}

func valueOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

// closeTab terminates and removes the tab at idx, selecting a
// neighbor.
func (m *Model) closeTab(idx int) {
	if idx < 0 || idx >= len(m.tabs) {
		return
	}
	if m.tabs[idx].sess != nil {
		m.tabs[idx].sess.Close()
	}
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if m.activeTab >= len(m.tabs) {
		m.activeTab = len(m.tabs) - 1
	}
	if len(m.tabs) == 0 {
		m.focus = FocusHostPanel
	}
	m.dirty = true
}

func (m *Model) activeTabPtr() *Tab {
	if m.activeTab < 0 || m.activeTab >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.activeTab]
}

// resizeActiveTabs pushes the current viewport size to every tab's
// session; a child with no size change is a no-op per session.Resize.
func (m *Model) resizeActiveTabs() {
	rows, cols := m.terminalViewportSize()
	for _, t := range m.tabs {
		if t.sess != nil {
			t.sess.Resize(session.Size{Rows: rows, Cols: cols})
		}
	}
}

// terminalViewportSize computes the terminal strip's content area,
// accounting for the host panel (if shown), the tab bar, the
// separator, and the status bar.
func (m *Model) terminalViewportSize() (rows, cols int) {
	cols = m.width
	if m.hostPanelShown {
		cols -= m.hostPanelWidth + 1
	}
	if cols < 1 {
		cols = 1
	}
	rows = m.height - 3 // tab bar + separator + status bar
	if rows < 1 {
		rows = 1
	}
	return rows, cols
}
