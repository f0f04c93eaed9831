package tui

import "github.com/mpecarina/colorssh/internal/catalog"

// rowKind distinguishes a folder row (collapsible) from a host row
// (opens a tab).
type rowKind int

const (
	rowFolder rowKind = iota
	rowHost
)

// visibleRow is one row of the host panel's flattened, currently
// displayed list — the projection of (folder tree, collapsed set,
// query) spec §4.H.2 describes.
type visibleRow struct {
	kind     rowKind
	depth    int
	folder   *catalog.Folder
	hostIdx  int // valid when kind == rowHost
	score    int
}

// rebuildVisible recomputes m.visible from the current tree, collapsed
// set, and query, and clamps the selection into range.
func (m *Model) rebuildVisible() {
	m.visible = nil
	if m.tree == nil || m.tree.Root == nil {
		return
	}

	query := m.hostQuery
	var scores map[int]int
	if query != "" && m.index != nil {
		scores = m.index.Search(query)
	}
	if m.recents != nil {
		boosts := m.recents.Boosts()
		if len(boosts) > 0 && scores != nil {
			for i, h := range m.tree.Hosts {
				if b, ok := boosts[h.Name]; ok {
					if s, has := scores[i]; has {
						scores[i] = s + b
					}
				}
			}
		}
	}

	if query == "" {
		m.walkNoQuery(m.tree.Root, 0)
	} else {
		m.walkWithQuery(m.tree.Root, 0, scores)
	}

	if m.selected >= len(m.visible) {
		m.selected = len(m.visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// walkNoQuery emits root's children depth-first; root folder rows
// themselves are never emitted (they correspond to the synthetic
// root), matching spec's explicit rule.
func (m *Model) walkNoQuery(folder *catalog.Folder, depth int) {
	isRoot := depth == 0
	if !isRoot {
		m.visible = append(m.visible, visibleRow{kind: rowFolder, depth: depth - 1, folder: folder})
	}
	if isRoot || !m.collapsed[folder.ID] {
		for _, hostIdx := range folder.HostIndices {
			m.visible = append(m.visible, visibleRow{kind: rowHost, depth: depth, hostIdx: hostIdx})
		}
		for _, child := range folder.Children {
			m.walkNoQuery(child, depth+1)
		}
	}
}

// collectWithQuery returns the rows folder (and its descendants)
// contribute under the query filter, plus whether anything matched.
// Folders with a match are force-expanded; folders without one (and
// all their descendants) are omitted entirely.
func (m *Model) collectWithQuery(folder *catalog.Folder, depth int, scores map[int]int) ([]visibleRow, bool) {
	isRoot := depth == 0
	anyMatch := false

	var rows []visibleRow
	for _, hostIdx := range folder.HostIndices {
		if score, ok := scores[hostIdx]; ok {
			rows = append(rows, visibleRow{kind: rowHost, depth: 0, hostIdx: hostIdx, score: score})
			anyMatch = true
		}
	}
	for _, child := range folder.Children {
		childRows, matched := m.collectWithQuery(child, depth+1, scores)
		if matched {
			anyMatch = true
			rows = append(rows, childRows...)
		}
	}
	if !anyMatch {
		return nil, false
	}
	if isRoot {
		return rows, true
	}
	folderRow := visibleRow{kind: rowFolder, depth: depth - 1, folder: folder}
	for i := range rows {
		rows[i].depth++
	}
	return append([]visibleRow{folderRow}, rows...), true
}

// walkWithQuery is the query-mode entry point feeding m.visible.
func (m *Model) walkWithQuery(folder *catalog.Folder, depth int, scores map[int]int) bool {
	rows, matched := m.collectWithQuery(folder, depth, scores)
	m.visible = append(m.visible, rows...)
	return matched
}

// toggleCollapseAll collapses every folder, or (if all are already
// collapsed) expands every folder — the "c with empty query" behavior.
func (m *Model) toggleCollapseAll() {
	if m.tree == nil || m.tree.Root == nil {
		return
	}
	allCollapsed := true
	var folders []*catalog.Folder
	var collect func(*catalog.Folder)
	collect = func(f *catalog.Folder) {
		for _, c := range f.Children {
			folders = append(folders, c)
			if !m.collapsed[c.ID] {
				allCollapsed = false
			}
			collect(c)
		}
	}
	collect(m.tree.Root)
	for _, f := range folders {
		if allCollapsed {
			delete(m.collapsed, f.ID)
		} else {
			m.collapsed[f.ID] = true
		}
	}
	m.rebuildVisible()
}

func (m *Model) selectedRow() (visibleRow, bool) {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return visibleRow{}, false
	}
	return m.visible[m.selected], true
}
