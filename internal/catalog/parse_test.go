package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_DropsWildcardAndHiddenHosts(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "config", `
Host prod-db-1
    HostName 10.0.0.1

Host *
    User ec2-user

Host secret-box
#_hidden true
    HostName 10.0.0.9
`)

	tree, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, h := range tree.Hosts {
		if h.Name == "*" || h.Name == "?" {
			t.Fatalf("wildcard host leaked into tree: %+v", h)
		}
		if h.Hidden {
			t.Fatalf("hidden host leaked into tree: %+v", h)
		}
	}
	if len(tree.Hosts) != 1 || tree.Hosts[0].Name != "prod-db-1" {
		t.Fatalf("expected only prod-db-1, got %+v", tree.Hosts)
	}
}

func TestLoad_Directives(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "config", `
Host db1 db2
#_Desc primary database pair
#_Profile ops
#_pass db-key
    HostName 10.0.0.5
    User admin
    Port 2222
`)
	tree, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tree.Hosts) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(tree.Hosts))
	}
	for _, h := range tree.Hosts {
		if h.Description != "primary database pair" {
			t.Fatalf("description not inherited: %+v", h)
		}
		if h.Profile != "ops" {
			t.Fatalf("profile not inherited: %+v", h)
		}
		if h.PassKey != "db-key" {
			t.Fatalf("pass key not inherited: %+v", h)
		}
		if h.Port != 2222 {
			t.Fatalf("port not set: %+v", h)
		}
	}
}

func TestLoad_InvalidPassKeyClearsIt(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "config", `
Host weird
#_pass not valid!
    HostName 10.0.0.5
`)
	tree, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tree.Hosts[0].PassKey != "" {
		t.Fatalf("expected invalid pass key to be cleared, got %q", tree.Hosts[0].PassKey)
	}
}

func TestLoad_IncludeExpansionOrder(t *testing.T) {
	dir := t.TempDir()
	confD := filepath.Join(dir, "conf.d")
	if err := os.MkdirAll(confD, 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, confD, "20-b.conf", "Host b\n    HostName 10.0.0.2\n")
	writeFile(t, confD, "10-a.conf", "Host a\n    HostName 10.0.0.1\n")
	root := writeFile(t, dir, "config", "Host root\n    HostName 127.0.0.1\nInclude conf.d/*.conf\n")

	tree, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var names []string
	for _, h := range tree.Hosts {
		names = append(names, h.Name)
	}
	want := []string{"root", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestLoad_IncludeCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	if err := os.WriteFile(a, []byte("Host a\n    HostName 1.1.1.1\nInclude b.conf\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("Host b\n    HostName 2.2.2.2\nInclude a.conf\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tree, err := Load(a)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tree.Hosts) != 2 {
		t.Fatalf("expected each file parsed exactly once, got hosts=%+v", tree.Hosts)
	}
}

func TestIndex_SearchStrictThenFuzzy(t *testing.T) {
	hosts := []Host{{Name: "database"}, {Name: "dba-stage"}}
	idx := NewIndex(hosts)

	strict := idx.Search("data")
	if _, ok := strict[0]; !ok || len(strict) != 1 {
		t.Fatalf("expected only host 0 for 'data', got %+v", strict)
	}

	fuzzy := idx.Search("dsg")
	if _, ok := fuzzy[1]; !ok || len(fuzzy) != 1 {
		t.Fatalf("expected only host 1 for fuzzy 'dsg', got %+v", fuzzy)
	}
}
