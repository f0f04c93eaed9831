package tui

import (
	"testing"

	"github.com/mpecarina/colorssh/internal/catalog"
)

// buildTestTree constructs:
//
//	root
//	  alpha.conf (folder)
//	    host: web1
//	    host: web2
//	  beta.conf (folder)
//	    host: db1
func buildTestTree() *catalog.Tree {
	hosts := []catalog.Host{
		{Name: "web1", Hostname: "web1.example.com"},
		{Name: "web2", Hostname: "web2.example.com"},
		{Name: "db1", Hostname: "db1.example.com"},
	}
	alpha := &catalog.Folder{ID: 1, Name: "alpha.conf", HostIndices: []int{0, 1}}
	beta := &catalog.Folder{ID: 2, Name: "beta.conf", HostIndices: []int{2}}
	root := &catalog.Folder{ID: 0, Name: "root", Children: []*catalog.Folder{alpha, beta}}
	return &catalog.Tree{Root: root, Hosts: hosts}
}

func newTestModel() *Model {
	tree := buildTestTree()
	return New(nil, nil, nil, tree, "/tmp/config", Options{})
}

func TestRebuildVisible_NoQueryShowsAllFoldersAndHosts(t *testing.T) {
	m := newTestModel()
	if len(m.visible) != 5 { // 2 folders + 3 hosts
		t.Fatalf("expected 5 visible rows, got %d", len(m.visible))
	}
	if m.visible[0].kind != rowFolder || m.visible[0].folder.Name != "alpha.conf" {
		t.Fatalf("expected first row to be alpha.conf folder, got %+v", m.visible[0])
	}
}

func TestRebuildVisible_CollapsedFolderHidesHosts(t *testing.T) {
	m := newTestModel()
	m.collapsed[catalog.FolderID(1)] = true
	m.rebuildVisible()

	for _, row := range m.visible {
		if row.kind == rowHost && (row.hostIdx == 0 || row.hostIdx == 1) {
			t.Fatalf("expected alpha.conf's hosts hidden while collapsed, found row %+v", row)
		}
	}
}

func TestRebuildVisible_QueryFiltersAndForceExpands(t *testing.T) {
	m := newTestModel()
	m.collapsed[catalog.FolderID(1)] = true // alpha is collapsed...
	m.hostQuery = "web1"
	m.rebuildVisible()

	var sawWeb1, sawWeb2, sawDb1, sawBeta bool
	for _, row := range m.visible {
		switch {
		case row.kind == rowHost && row.hostIdx == 0:
			sawWeb1 = true
		case row.kind == rowHost && row.hostIdx == 1:
			sawWeb2 = true
		case row.kind == rowHost && row.hostIdx == 2:
			sawDb1 = true
		case row.kind == rowFolder && row.folder.Name == "beta.conf":
			sawBeta = true
		}
	}
	if !sawWeb1 {
		t.Fatal("expected web1 to appear under the query, even though its folder is collapsed")
	}
	if sawWeb2 || sawDb1 || sawBeta {
		t.Fatal("expected only web1's match and its ancestor folder to appear")
	}
}

func TestToggleCollapseAll(t *testing.T) {
	m := newTestModel()
	m.toggleCollapseAll()
	if len(m.collapsed) != 2 {
		t.Fatalf("expected both folders collapsed, got %d", len(m.collapsed))
	}
	m.toggleCollapseAll()
	if len(m.collapsed) != 0 {
		t.Fatalf("expected all folders expanded again, got %d remaining collapsed", len(m.collapsed))
	}
}

func TestSelectedRow_OutOfRange(t *testing.T) {
	m := newTestModel()
	m.selected = 9999
	if _, ok := m.selectedRow(); ok {
		t.Fatal("expected selectedRow to report false when selection is out of range")
	}
}
