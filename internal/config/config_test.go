package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ".csh-config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

const sampleConfig = `settings:
  ssh_logging: true
  remove_secrets:
    - "password=\\S+"

interactive_settings:
  history_buffer: 2000
  host_tree_uncollapsed: true
  info_view: true
  host_view_size: 25
  info_view_size: 6

palette:
  red: "#ff0000"
  green: "#00ff00"

rules:
  - regex: "\\bERROR\\b"
    color: red
    description: error keyword
  - regex: "("
    color: green
`

func TestNew_LoadsExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	store, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := store.Get()
	if !cfg.Settings.SSHLogging {
		t.Fatalf("expected ssh_logging true")
	}
	if cfg.InteractiveSettings.HistoryBuffer != 2000 {
		t.Fatalf("expected history_buffer 2000, got %d", cfg.InteractiveSettings.HistoryBuffer)
	}
	if cfg.Metadata.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", cfg.Metadata.Version)
	}
}

func TestLoadFile_InvalidRuleIsDroppedNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	// Two rules declared, one with an unbalanced paren — only the valid one compiles.
	if len(cfg.Metadata.CompiledRules) != 1 {
		t.Fatalf("expected 1 compiled rule (invalid one dropped), got %d", len(cfg.Metadata.CompiledRules))
	}
	if !cfg.Metadata.CompiledRules[0].Regex.MatchString("ERROR") {
		t.Fatalf("expected surviving rule to match ERROR")
	}
}

func TestHexToANSI(t *testing.T) {
	fg := HexToANSI("#ff0000", FG)
	if fg != "\x1b[38;2;255;0;0m" {
		t.Fatalf("unexpected fg sequence: %q", fg)
	}
	bg := HexToANSI("#00ff00", BG)
	if bg != "\x1b[48;2;0;255;0m" {
		t.Fatalf("unexpected bg sequence: %q", bg)
	}
	if HexToANSI("not-a-color", FG) != "" {
		t.Fatalf("expected invalid hex to yield empty string")
	}
}

func TestReload_PreservesSessionNameAndBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	store, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store.SetSessionName("prod-db-1")

	updated := sampleConfig + "\n  # retriggers parse, no semantic change\n"
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	cfg := store.Get()
	if cfg.Metadata.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", cfg.Metadata.Version)
	}
	if cfg.Metadata.SessionName != "prod-db-1" {
		t.Fatalf("expected session name preserved across reload, got %q", cfg.Metadata.SessionName)
	}
}

func TestReload_KeepsPreviousConfigOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	store, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := store.Reload(); err == nil {
		t.Fatalf("expected reload error on malformed yaml")
	}

	cfg := store.Get()
	if cfg.Metadata.Version != 1 {
		t.Fatalf("expected previous config retained, version still 1, got %d", cfg.Metadata.Version)
	}
}

func TestResolvePath_SearchOrderPrefersCSHDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cshDir := filepath.Join(home, ".csh")
	if err := os.MkdirAll(cshDir, 0o700); err != nil {
		t.Fatal(err)
	}
	preferred := filepath.Join(cshDir, ".csh-config.yaml")
	if err := os.WriteFile(preferred, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	fallback := filepath.Join(home, ".csh-config.yaml")
	if err := os.WriteFile(fallback, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolvePath("")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if resolved != preferred {
		t.Fatalf("expected %s to be preferred over %s, got %s", preferred, fallback, resolved)
	}
}
