package tui

import "testing"

func modelWithTabs(n int) *Model {
	m := newTestModel()
	for i := 0; i < n; i++ {
		m.tabs = append(m.tabs, &Tab{Title: string(rune('a' + i))})
	}
	m.activeTab = 0
	return m
}

func TestNextPrevTab_Wraps(t *testing.T) {
	m := modelWithTabs(3)
	m.nextTab()
	if m.activeTab != 1 {
		t.Fatalf("expected activeTab 1, got %d", m.activeTab)
	}
	m.prevTab()
	m.prevTab()
	if m.activeTab != 2 {
		t.Fatalf("expected wrap to 2, got %d", m.activeTab)
	}
}

func TestMoveTab_SwapsAndFollowsActive(t *testing.T) {
	m := modelWithTabs(3)
	m.activeTab = 0
	m.moveTab(1)
	if m.activeTab != 1 {
		t.Fatalf("expected activeTab to follow the moved tab to 1, got %d", m.activeTab)
	}
	if m.tabs[0].Title != "b" || m.tabs[1].Title != "a" {
		t.Fatalf("expected tabs a/b to swap, got %q/%q", m.tabs[0].Title, m.tabs[1].Title)
	}
}

func TestCloseTab_RemovesTabAndClearsFocusWhenEmpty(t *testing.T) {
	m := modelWithTabs(1)
	m.focus = FocusTerminal
	m.closeTab(0)
	if len(m.tabs) != 0 {
		t.Fatalf("expected tab removed, got %d remaining", len(m.tabs))
	}
	if m.focus != FocusHostPanel {
		t.Fatal("expected focus to return to the host panel once no tabs remain")
	}
}

func TestActiveTabPtr_OutOfRange(t *testing.T) {
	m := modelWithTabs(1)
	m.activeTab = 5
	if m.activeTabPtr() != nil {
		t.Fatal("expected nil for an out-of-range activeTab index")
	}
}
