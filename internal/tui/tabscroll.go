package tui

import "github.com/charmbracelet/lipgloss"

// tabTitleWidth is a tab's title display width (wide-rune aware).
func (m *Model) tabTitleWidth(idx int) int {
	if idx < 0 || idx >= len(m.tabs) {
		return 0
	}
	return lipgloss.Width(m.tabs[idx].Title)
}

// tabDisplayWidth is a tab's full rendered width in the tab strip:
// "{title} " (title plus trailing space) + "×" + " " (trailing
// separator space).
func (m *Model) tabDisplayWidth(idx int) int {
	if idx < 0 || idx >= len(m.tabs) {
		return 0
	}
	return m.tabTitleWidth(idx) + 3
}

func (m *Model) totalTabWidth() int {
	total := 0
	for i := range m.tabs {
		total += m.tabDisplayWidth(i)
	}
	return total
}

// finalRightTabScrollOffset is the rightmost meaningful scroll offset:
// the last tab-start position reachable before the remaining tabs would
// fit within availableWidth-1 (a column is always reserved for the left
// "◀" marker once the strip is scrolled at all).
func (m *Model) finalRightTabScrollOffset(availableWidth int) int {
	if len(m.tabs) == 0 || availableWidth <= 0 {
		return 0
	}
	total := m.totalTabWidth()
	if total <= availableWidth {
		return 0
	}

	visibleWithLeftMarker := availableWidth - 1
	if visibleWithLeftMarker < 0 {
		visibleWithLeftMarker = 0
	}
	threshold := total - visibleWithLeftMarker

	start, lastStart := 0, 0
	for i := range m.tabs {
		if start >= threshold {
			return start
		}
		lastStart = start
		start += m.tabDisplayWidth(i)
	}
	return lastStart
}

// normalizeTabScrollOffset clamps rawOffset to [0, finalRightOffset] and
// snaps it down to the nearest tab-start boundary, so a tab is never
// split across the left edge of the strip.
func (m *Model) normalizeTabScrollOffset(rawOffset, availableWidth int) int {
	if len(m.tabs) == 0 || availableWidth <= 0 {
		return 0
	}
	finalOffset := m.finalRightTabScrollOffset(availableWidth)
	clamped := clampInt(rawOffset, 0, finalOffset)

	snapped, start := 0, 0
	for i := range m.tabs {
		if start > clamped {
			break
		}
		snapped = start
		start += m.tabDisplayWidth(i)
	}
	return snapped
}

// prevTabScrollOffset returns the tab-start boundary to the left of the
// current normalized offset, or false if already at the left extreme.
func (m *Model) prevTabScrollOffset(rawOffset, availableWidth int) (int, bool) {
	if len(m.tabs) == 0 || availableWidth <= 0 {
		return 0, false
	}
	current := m.normalizeTabScrollOffset(rawOffset, availableWidth)
	if current == 0 {
		return 0, false
	}

	previous, start := 0, 0
	for i := range m.tabs {
		if start >= current {
			break
		}
		previous = start
		start += m.tabDisplayWidth(i)
	}
	return previous, true
}

// nextTabScrollOffset returns the tab-start boundary to the right of the
// current normalized offset, or false if already at the right extreme.
func (m *Model) nextTabScrollOffset(rawOffset, availableWidth int) (int, bool) {
	if len(m.tabs) == 0 || availableWidth <= 0 {
		return 0, false
	}
	total := m.totalTabWidth()
	if total <= availableWidth {
		return 0, false
	}

	current := m.normalizeTabScrollOffset(rawOffset, availableWidth)
	finalOffset := m.finalRightTabScrollOffset(availableWidth)
	if current >= finalOffset {
		return 0, false
	}

	start := 0
	for i := range m.tabs {
		if start > current {
			if start > finalOffset {
				return finalOffset, true
			}
			return start, true
		}
		start += m.tabDisplayWidth(i)
	}
	return finalOffset, true
}

// ensureTabVisible snaps tabScrollOffset so the active tab's full span
// lies within the last-rendered tab bar width. Called after the active
// tab changes via keyboard or mouse.
func (m *Model) ensureTabVisible() {
	if len(m.tabs) == 0 {
		m.tabScrollOffset = 0
		return
	}
	width := m.tabBarWidth
	if width <= 0 {
		return
	}

	start := 0
	for i := 0; i < m.activeTab; i++ {
		start += m.tabDisplayWidth(i)
	}
	end := start + m.tabDisplayWidth(m.activeTab)

	if start < m.tabScrollOffset || end > m.tabScrollOffset+width {
		m.tabScrollOffset = start
	}
}

// tabHitKind identifies what a tab-bar column maps to, per the click
// routing precedence in handleTabBarClick.
type tabHitKind int

const (
	tabHitNone tabHitKind = iota
	tabHitScrollLeft
	tabHitScrollRight
	tabHitClose
	tabHitSelect
)

type tabBarHit struct {
	kind tabHitKind
	idx  int
}

// tabBarHitTest maps a visual column x (0-indexed within the
// last-rendered tab bar) to an overflow marker, a close glyph, a tab
// title, or nothing (scrolled-past padding). It normalizes
// tabScrollOffset as a side effect, matching renderTabBar's own
// normalize-on-every-draw behavior.
func (m *Model) tabBarHitTest(x int) tabBarHit {
	if len(m.tabs) == 0 {
		return tabBarHit{kind: tabHitNone}
	}
	width := m.tabBarWidth
	if width <= 0 {
		return tabBarHit{kind: tabHitNone}
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

	if hasLeft && x == 0 {
		return tabBarHit{kind: tabHitScrollLeft}
	}
	if hasRight && x == width-1 {
		return tabBarHit{kind: tabHitScrollRight}
	}
	if x < leftSlot || x >= leftSlot+visibleWidth {
		return tabBarHit{kind: tabHitNone}
	}
	localX := x - leftSlot

	runningStart, firstVisible := 0, 0
	for firstVisible < len(m.tabs) && runningStart+m.tabDisplayWidth(firstVisible) <= m.tabScrollOffset {
		runningStart += m.tabDisplayWidth(firstVisible)
		firstVisible++
	}

	used := 0
	for idx := firstVisible; idx < len(m.tabs) && used < visibleWidth; idx++ {
		tabWidth := m.tabDisplayWidth(idx)
		visibleEnd := used + tabWidth
		if visibleEnd > visibleWidth {
			visibleEnd = visibleWidth
		}
		if localX < visibleEnd {
			closePos := used + m.tabTitleWidth(idx) + 1
			if closePos < visibleEnd && localX == closePos {
				return tabBarHit{kind: tabHitClose, idx: idx}
			}
			return tabBarHit{kind: tabHitSelect, idx: idx}
		}
		used += tabWidth
	}
	return tabBarHit{kind: tabHitNone}
}
