package tui

import "testing"

// Each 1-rune title here gives tabDisplayWidth == 4 ("x " + "×" + " "),
// making the arithmetic in these tests easy to hand-check.

func TestTabDisplayWidth_TitlePlusThree(t *testing.T) {
	m := modelWithTabs(1)
	if w := m.tabDisplayWidth(0); w != 4 {
		t.Fatalf("expected width 4, got %d", w)
	}
}

func TestFinalRightTabScrollOffset_NoOverflowIsZero(t *testing.T) {
	m := modelWithTabs(3) // total width 12
	if off := m.finalRightTabScrollOffset(20); off != 0 {
		t.Fatalf("expected 0 when everything fits, got %d", off)
	}
}

func TestFinalRightTabScrollOffset_SnapsToLastTabStart(t *testing.T) {
	m := modelWithTabs(5) // tab starts: 0,4,8,12,16; total 20
	// available=10: threshold = 20 - (10-1) = 11; first start >= 11 is 12 (tab 3).
	if off := m.finalRightTabScrollOffset(10); off != 12 {
		t.Fatalf("expected 12, got %d", off)
	}
}

func TestNormalizeTabScrollOffset_ClampsAndSnapsDown(t *testing.T) {
	m := modelWithTabs(5)
	if got := m.normalizeTabScrollOffset(1000, 10); got != 12 {
		t.Fatalf("expected clamp to final offset 12, got %d", got)
	}
	if got := m.normalizeTabScrollOffset(5, 10); got != 4 {
		t.Fatalf("expected snap down to tab-start 4, got %d", got)
	}
}

func TestPrevNextTabScrollOffset_AtExtremesReportFalse(t *testing.T) {
	m := modelWithTabs(5)
	if _, ok := m.prevTabScrollOffset(0, 10); ok {
		t.Fatal("expected no prev offset at the left extreme")
	}
	if _, ok := m.nextTabScrollOffset(12, 10); ok {
		t.Fatal("expected no next offset at the right extreme")
	}
	if next, ok := m.nextTabScrollOffset(0, 10); !ok || next != 4 {
		t.Fatalf("expected next offset 4, got %d, %v", next, ok)
	}
	if prev, ok := m.prevTabScrollOffset(8, 10); !ok || prev != 4 {
		t.Fatalf("expected prev offset 4, got %d, %v", prev, ok)
	}
}

func TestEnsureTabVisible_ScrollsRightWhenActiveTabPastWindow(t *testing.T) {
	m := modelWithTabs(5)
	m.tabBarWidth = 10
	m.activeTab = 4 // starts at 16, width 4: [16,20)
	m.ensureTabVisible()
	if m.tabScrollOffset != 16 {
		t.Fatalf("expected scroll offset to snap to the active tab's start 16, got %d", m.tabScrollOffset)
	}
}

func TestEnsureTabVisible_NoopWhenActiveTabAlreadyVisible(t *testing.T) {
	m := modelWithTabs(5)
	m.tabBarWidth = 10
	m.tabScrollOffset = 0
	m.activeTab = 1 // [4,8), within [0,10)
	m.ensureTabVisible()
	if m.tabScrollOffset != 0 {
		t.Fatalf("expected scroll offset unchanged at 0, got %d", m.tabScrollOffset)
	}
}

func TestTabBarHitTest_SelectsTabUnderColumn(t *testing.T) {
	m := modelWithTabs(3) // widths 4,4,4; total 12 fits in width 12
	m.tabBarWidth = 12
	hit := m.tabBarHitTest(5) // tab 1 spans [4,8)
	if hit.kind != tabHitSelect || hit.idx != 1 {
		t.Fatalf("expected select tab 1, got %+v", hit)
	}
}

func TestTabBarHitTest_ClosePositionIsTitleWidthPlusOne(t *testing.T) {
	m := modelWithTabs(1) // tab 0: "a " then "×" then " " -> close glyph at column 2
	m.tabBarWidth = 4
	hit := m.tabBarHitTest(2)
	if hit.kind != tabHitClose || hit.idx != 0 {
		t.Fatalf("expected close hit on tab 0, got %+v", hit)
	}
}

func TestTabBarHitTest_OverflowMarkersWhenScrolled(t *testing.T) {
	m := modelWithTabs(5) // total width 20
	m.tabBarWidth = 10
	m.tabScrollOffset = 4 // normalized: prev exists (0), next exists
	hit := m.tabBarHitTest(0)
	if hit.kind != tabHitScrollLeft {
		t.Fatalf("expected left scroll marker at column 0, got %+v", hit)
	}
	hit = m.tabBarHitTest(9)
	if hit.kind != tabHitScrollRight {
		t.Fatalf("expected right scroll marker at the last column, got %+v", hit)
	}
}

func TestHandleTabBarClick_CloseClosesTab(t *testing.T) {
	m := modelWithTabs(1)
	m.tabBarWidth = 4
	m.focus = FocusTerminal
	m.handleTabBarClick(2) // the "×" column
	if len(m.tabs) != 0 {
		t.Fatalf("expected tab closed, got %d remaining", len(m.tabs))
	}
}

func TestHandleTabBarClick_TitleSelectsAndArmsDrag(t *testing.T) {
	m := modelWithTabs(3)
	m.tabBarWidth = 12
	m.handleTabBarClick(5) // tab 1's title
	if m.activeTab != 1 {
		t.Fatalf("expected tab 1 selected, got %d", m.activeTab)
	}
	if !m.tabDragging || m.tabDragIdx != 1 {
		t.Fatalf("expected drag armed on tab 1, got dragging=%v idx=%d", m.tabDragging, m.tabDragIdx)
	}
}

func TestHandleTabBarDrag_ReordersToTargetTab(t *testing.T) {
	m := modelWithTabs(3)
	m.tabBarWidth = 12
	m.handleTabBarClick(1) // select+arm drag on tab 0
	m.handleTabBarDrag(9)  // drag onto tab 2's span
	if m.tabs[2].Title != "a" {
		t.Fatalf("expected tab a dragged into slot 2, got %q", m.tabs[2].Title)
	}
	if m.activeTab != 2 {
		t.Fatalf("expected active tab to follow the drag to 2, got %d", m.activeTab)
	}
}

func TestShiftActiveTab_WheelStopsAtExtremes(t *testing.T) {
	m := modelWithTabs(2)
	m.tabBarWidth = 8
	m.shiftActiveTab(-1)
	if m.activeTab != 0 {
		t.Fatalf("expected no wrap below 0, got %d", m.activeTab)
	}
	m.shiftActiveTab(1)
	if m.activeTab != 1 {
		t.Fatalf("expected move to 1, got %d", m.activeTab)
	}
	m.shiftActiveTab(1)
	if m.activeTab != 1 {
		t.Fatalf("expected no wrap past the last tab, got %d", m.activeTab)
	}
}
