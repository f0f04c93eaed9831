// Package catalog parses the OpenSSH client configuration include graph into
// a folder-indexed tree of hosts plus a flat, searchable host list.
package catalog

// Host is one parsed Host stanza. Wildcarded aliases ("*", "?") and hosts
// carrying "#_hidden" are never materialized into a Host — they are dropped
// during parsing, not filtered later.
type Host struct {
	Name string

	Hostname      string
	User          string
	Port          int
	IdentityFile  string
	ProxyJump     string
	Description   string
	Profile       string
	PassKey       string
	Hidden        bool
	LocalForward  []string
	RemoteForward []string
	Options       map[string]string

	// Source is the canonical path of the config file this host was declared in.
	Source string
}

func newHost(name string) *Host {
	return &Host{Name: name, Options: map[string]string{}}
}

// FolderID is a stable, discovery-order identifier for a config file node.
type FolderID int

// Folder is one config-file node in the include tree.
type Folder struct {
	ID       FolderID
	Name     string // basename of the file
	Path     string // canonical path
	Children []*Folder
	// HostIndices reference Tree.Hosts, sorted case-insensitively by host name
	// with a stable (index-order) tiebreak.
	HostIndices []int
}

// Tree is the parsed result: a folder tree plus the flat host list that
// folder HostIndices reference into.
type Tree struct {
	Root  *Folder
	Hosts []Host
}
