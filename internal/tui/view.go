package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the full screen: host panel (if shown) beside the
// terminal strip, a 1-row separator, then a 1-row status bar, per spec
// §4.H.1.
func (m *Model) View() string {
	if !m.ready {
		return "starting up...\n"
	}
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	bodyHeight := m.height - 2 // separator + status bar
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var left string
	termWidth := m.width
	if m.hostPanelShown {
		left = m.renderHostPanel(bodyHeight)
		termWidth = m.width - m.hostPanelWidth - 1
	}
	right := m.renderTerminalStrip(bodyHeight, termWidth)

	var body string
	if m.hostPanelShown {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, m.sty.separator.Render(strings.Repeat("│", bodyHeight)), right)
	} else {
		body = right
	}

	sep := m.sty.separator.Render(strings.Repeat("─", m.width))
	status := m.renderStatusBar()

	var out strings.Builder
	out.WriteString(body)
	out.WriteString("\n")
	out.WriteString(sep)
	out.WriteString("\n")
	out.WriteString(status)

	if m.modal != ModalNone {
		return overlay(out.String(), m.renderModal(), m.width, m.height)
	}
	return out.String()
}

// renderHostPanel draws the folder/host list, optionally split with the
// info sub-pane (min 4 list rows, min 3 info rows, per spec).
func (m *Model) renderHostPanel(height int) string {
	listHeight := height
	infoHeight := 0
	if m.showInfoPane && height >= 7 {
		infoHeight = height / 3
		if infoHeight < 3 {
			infoHeight = 3
		}
		listHeight = height - infoHeight
		if listHeight < 4 {
			listHeight = 4
			infoHeight = height - listHeight
		}
	}

	list := m.renderHostList(listHeight)
	if infoHeight <= 0 {
		return lipgloss.NewStyle().Width(m.hostPanelWidth).Height(height).MaxWidth(m.hostPanelWidth).Render(list)
	}
	info := m.renderInfoPane(infoHeight)
	combined := list + "\n" + m.sty.separator.Render(strings.Repeat("─", m.hostPanelWidth)) + "\n" + info
	return lipgloss.NewStyle().Width(m.hostPanelWidth).Height(height).MaxWidth(m.hostPanelWidth).Render(combined)
}

func (m *Model) renderHostList(height int) string {
	if m.tree == nil {
		return m.sty.errText.Render("no hosts configured")
	}

	start := 0
	if m.selected >= height {
		start = m.selected - height + 1
	}
	m.listScroll = start
	var lines []string
	for i := start; i < len(m.visible) && len(lines) < height; i++ {
		lines = append(lines, m.renderRow(m.visible[i], i == m.selected))
	}

	if m.hostSearchMode {
		lines = append([]string{"/" + m.hostQueryInput.View()}, lines...)
		if len(lines) > height {
			lines = lines[:height]
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(row visibleRow, selected bool) string {
	indent := strings.Repeat("  ", row.depth)
	var text string
	switch row.kind {
	case rowFolder:
		marker := "v"
		if m.collapsed[row.folder.ID] {
			marker = ">"
		}
		text = fmt.Sprintf("%s%s %s", indent, marker, row.folder.Name)
		if selected {
			return m.sty.selectedRow.Render(text)
		}
		return m.sty.folderRow.Render(text)
	case rowHost:
		h := m.tree.Hosts[row.hostIdx]
		text = fmt.Sprintf("%s  %s", indent, h.Name)
		if selected {
			return m.sty.selectedRow.Render(text)
		}
		return m.sty.hostRow.Render(text)
	}
	return text
}

func (m *Model) renderInfoPane(height int) string {
	row, ok := m.selectedRow()
	if !ok || row.kind != rowHost {
		return m.sty.dimRow.Render("(no host selected)")
	}
	h := m.tree.Hosts[row.hostIdx]
	lines := []string{
		"Name: " + h.Name,
		"Hostname: " + h.Hostname,
	}
	if h.User != "" {
		lines = append(lines, "User: "+h.User)
	}
	if h.Description != "" {
		lines = append(lines, "Desc: "+h.Description)
	}
	if h.ProxyJump != "" {
		lines = append(lines, "ProxyJump: "+h.ProxyJump)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderTerminalStrip draws the tab bar and the active tab's emulator
// content, scaled to width x (height-1) rows.
func (m *Model) renderTerminalStrip(height, width int) string {
	if width < 1 {
		width = 1
	}
	tabBar := m.renderTabBar(width)
	contentHeight := height - 1
	if contentHeight < 1 {
		contentHeight = 1
	}

	tab := m.activeTabPtr()
	if tab == nil {
		empty := lipgloss.NewStyle().Width(width).Height(contentHeight).Render(m.sty.dimRow.Render("no session — press q to connect"))
		return tabBar + "\n" + empty
	}

	content := m.renderTabContent(tab, contentHeight, width)
	return tabBar + "\n" + content
}

// renderTabBar draws the tab strip, scrolling it horizontally and
// showing "◀"/"▶" overflow markers when the tabs don't all fit in
// width, per spec §4.H.1. It remembers width in m.tabBarWidth so the
// next mouse event can hit-test against the same layout.
func (m *Model) renderTabBar(width int) string {
	m.tabBarWidth = width
	if len(m.tabs) == 0 {
		return lipgloss.NewStyle().Width(width).Render("")
	}

	m.tabScrollOffset = m.normalizeTabScrollOffset(m.tabScrollOffset, width)
	_, hasLeft := m.prevTabScrollOffset(m.tabScrollOffset, width)
	leftSlot := 0
	if hasLeft {
		leftSlot = 1
	}
	_, hasRight := m.nextTabScrollOffset(m.tabScrollOffset, width)
	rightSlot := 0
	if hasRight {
		rightSlot = 1
	}
	visibleWidth := width - leftSlot - rightSlot
	if visibleWidth < 0 {
		visibleWidth = 0
	}

	var b strings.Builder
	if hasLeft {
		b.WriteString(m.sty.tabScrollMark.Render("◀"))
	}

	runningStart, firstVisible := 0, 0
	for firstVisible < len(m.tabs) && runningStart+m.tabDisplayWidth(firstVisible) <= m.tabScrollOffset {
		runningStart += m.tabDisplayWidth(firstVisible)
		firstVisible++
	}

	used := 0
	pushClipped := func(text string, style lipgloss.Style) {
		if used >= visibleWidth {
			return
		}
		chunk := truncateDisplayWidth(text, visibleWidth-used)
		if chunk == "" {
			return
		}
		b.WriteString(style.Render(chunk))
		used += lipgloss.Width(chunk)
	}

	for idx := firstVisible; idx < len(m.tabs) && used < visibleWidth; idx++ {
		titleStyle, closeStyle := m.sty.tabInactive, m.sty.tabCloseInactive
		if idx == m.activeTab {
			titleStyle, closeStyle = m.sty.tabActive, m.sty.tabCloseActive
		}
		pushClipped(m.tabs[idx].Title+" ", titleStyle)
		pushClipped("×", closeStyle)
		pushClipped(" ", m.sty.separator)
	}

	if remaining := visibleWidth - used; remaining > 0 {
		b.WriteString(strings.Repeat(" ", remaining))
	}
	if hasRight {
		b.WriteString(m.sty.tabScrollMark.Render("▶"))
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

// truncateDisplayWidth clips s to at most max display columns
// (wide-rune aware), never splitting a multi-byte rune.
func truncateDisplayWidth(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	var b strings.Builder
	width := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if width+rw > max {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	return b.String()
}

func (m *Model) renderTabContent(tab *Tab, height, width int) string {
	if tab.sess == nil {
		msg := "disconnected"
		if tab.lastErr != nil {
			msg = tab.lastErr.Error()
		}
		return lipgloss.NewStyle().Width(width).Height(height).Render(m.sty.errText.Render(msg))
	}

	tab.sess.Emulator.SetScrollback(tab.scrollOffset)
	screen := tab.sess.Emulator.Screen()

	var b strings.Builder
	for r := 0; r < height && r < screen.Rows; r++ {
		var line strings.Builder
		for c := 0; c < width && c < screen.Cols; c++ {
			cell := screen.Cell(r, c)
			ch := cell.Char
			if ch == "" {
				ch = " "
			}
			line.WriteString(m.styledCell(tab, r, c, ch))
		}
		if r < height-1 {
			line.WriteString("\n")
		}
		b.WriteString(line.String())
	}
	if tab.sess.Exited() {
		b.WriteString("\n")
		b.WriteString(m.sty.dimRow.Render("[session ended — Enter to reconnect]"))
	}
	return b.String()
}

// styledCell applies search-match highlighting over a cell's plain
// character; full SGR-attribute-accurate rendering of vt.Cell is left to
// the emulator's own attributes in a future pass.
func (m *Model) styledCell(tab *Tab, row, col int, ch string) string {
	for i, match := range tab.matches {
		if match.AbsRow == row+tab.sess.Emulator.ScrollbackLen()-tab.scrollOffset && col >= match.Col && col < match.Col+match.Len {
			if i == tab.matchIdx {
				return m.sty.searchCurrent.Render(ch)
			}
			return m.sty.searchMatch.Render(ch)
		}
	}
	return ch
}

func (m *Model) renderStatusBar() string {
	text := m.statusText
	if text == "" {
		if tab := m.activeTabPtr(); tab != nil {
			text = tab.Host.Name
			if tab.searchActive {
				text = fmt.Sprintf("search: %s (%d/%d)", tab.searchQuery, m.matchPosition(tab), len(tab.matches))
			}
		} else {
			text = "no active session"
		}
	}
	return m.sty.statusBar.Width(m.width).Render(" " + text)
}

func (m *Model) matchPosition(tab *Tab) int {
	if len(tab.matches) == 0 {
		return 0
	}
	return tab.matchIdx + 1
}

func (m *Model) renderModal() string {
	switch m.modal {
	case ModalQuickConnect:
		return m.quickConnect.view(40)
	case ModalPassUnlock:
		return m.passUnlock.view()
	}
	return ""
}

// overlay centers box over base, simple line/column splicing (no
// alpha-blend — bubbletea TUIs commonly just overwrite a centered
// rectangle for modals).
func overlay(base, box string, width, height int) string {
	boxLines := strings.Split(box, "\n")
	boxW, boxH := 0, len(boxLines)
	for _, l := range boxLines {
		if w := lipgloss.Width(l); w > boxW {
			boxW = w
		}
	}
	baseLines := strings.Split(base, "\n")
	startRow := (height - boxH) / 2
	startCol := (width - boxW) / 2
	if startRow < 0 {
		startRow = 0
	}
	if startCol < 0 {
		startCol = 0
	}
	for i, bl := range boxLines {
		r := startRow + i
		if r < 0 || r >= len(baseLines) {
			continue
		}
		line := baseLines[r]
		runes := []rune(line)
		for len(runes) < startCol+lipgloss.Width(bl) {
			runes = append(runes, ' ')
		}
		prefix := string(runes[:startCol])
		var suffix string
		if startCol+lipgloss.Width(bl) < len(runes) {
			suffix = string(runes[startCol+lipgloss.Width(bl):])
		}
		baseLines[r] = prefix + bl + suffix
	}
	return strings.Join(baseLines, "\n")
}
