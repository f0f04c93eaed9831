// Package config loads and hot-reloads the color-ssh YAML configuration:
// the highlight rule set, palette, and interactive/non-interactive
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
	"go.uber.org/zap"
)

// ErrConfigNotFound is returned when no configuration file exists anywhere
// in the search path and a template could not be materialized.
var ErrConfigNotFound = errors.New("config: not found")

// Rule is one highlight rule as declared in YAML.
type Rule struct {
	Regex       string `yaml:"regex"`
	Color       string `yaml:"color"`
	Description string `yaml:"description,omitempty"`
	BGColor     string `yaml:"bg_color,omitempty"`
}

// Settings holds non-interactive behavior shared by both modes.
type Settings struct {
	SSHLogging    bool     `yaml:"ssh_logging"`
	RemoveSecrets []string `yaml:"remove_secrets,omitempty"`
}

// InteractiveSettings holds TUI-only behavior.
type InteractiveSettings struct {
	HistoryBuffer      int  `yaml:"history_buffer"`
	HostTreeUncollapsed bool `yaml:"host_tree_uncollapsed"`
	InfoView           bool `yaml:"info_view"`
	HostViewSize       int  `yaml:"host_view_size"`
	InfoViewSize       int  `yaml:"info_view_size"`
}

// CompiledRule is a Rule with its pattern compiled and its palette color
// pre-expanded into an ANSI SGR string.
type CompiledRule struct {
	Regex *regexp.Regexp
	Style string // concatenated fg (+bg) ANSI SGR sequence
}

// Metadata tracks the store's provenance and hot-reload bookkeeping.
type Metadata struct {
	Version              uint64
	ConfigPath           string
	SessionName          string
	CompiledRules        []CompiledRule
	CompiledSecretRules  []*regexp.Regexp
}

// Config is the full parsed + compiled configuration document.
type Config struct {
	Settings            Settings            `yaml:"settings"`
	InteractiveSettings InteractiveSettings `yaml:"interactive_settings"`
	Palette             map[string]string   `yaml:"palette"`
	Rules               []Rule              `yaml:"rules"`

	Metadata Metadata `yaml:"-"`
}

// rawDoc is used to reject unknown top-level/interactive fields: yaml.v3
// with KnownFields(true) on a matching struct does that natively.
type rawDoc struct {
	Settings            Settings            `yaml:"settings"`
	InteractiveSettings InteractiveSettings `yaml:"interactive_settings"`
	Palette             map[string]string   `yaml:"palette"`
	Rules               []Rule              `yaml:"rules"`
}

// Store is the hot-reloadable, reader/writer-locked holder of a Config.
// Observers call Get() and compare Metadata.Version to detect invalidation.
type Store struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *zap.Logger

	watcher *fsnotify.Watcher
	debounce time.Duration

	reloadCount atomic.Uint64
}

// New loads the configuration (searching the standard locations when path
// is empty, materializing a template if nothing exists) and returns a Store.
func New(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loadFile(resolved)
	if err != nil {
		return nil, err
	}
	cfg.Metadata.Version = 1
	cfg.Metadata.ConfigPath = resolved
	return &Store{cfg: cfg, logger: logger, debounce: 500 * time.Millisecond}, nil
}

// Get returns a read-only snapshot pointer. Callers must not mutate it.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the currently loaded config file path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Metadata.ConfigPath
}

// Reload re-parses the config file from disk. On success it swaps the
// store's config and increments Metadata.Version; on failure the previous
// config is retained untouched and the error is returned for logging.
func (s *Store) Reload() error {
	s.mu.RLock()
	path := s.cfg.Metadata.ConfigPath
	prevSession := s.cfg.Metadata.SessionName
	prevVersion := s.cfg.Metadata.Version
	s.mu.RUnlock()

	next, err := loadFile(path)
	if err != nil {
		return fmt.Errorf("config: reload: %w", err)
	}
	next.Metadata.ConfigPath = path
	next.Metadata.SessionName = prevSession
	next.Metadata.Version = prevVersion + 1

	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()

	s.reloadCount.Add(1)
	s.logger.Info("config reloaded", zap.Uint64("version", next.Metadata.Version))
	return nil
}

// SetSessionName stamps the session name used for the SSH log filename; it
// survives future reloads (the reloader preserves it explicitly).
func (s *Store) SetSessionName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Metadata.SessionName = name
}

// Watch starts a debounced fsnotify watch on the config file's directory
// and calls Reload on changes to the file itself, coalescing bursts within
// the ~500ms window spec.md describes. It runs until ctx-like stop() is
// invoked via the returned function.
func (s *Store) Watch() (stop func(), err error) {
	path := s.Path()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	s.watcher = watcher

	done := make(chan struct{})
	go func() {
		var timer *time.Timer
		pending := false
		reloadNow := func() {
			if err := s.Reload(); err != nil {
				s.logger.Warn("config reload failed, retaining previous config", zap.Error(err))
			}
			pending = false
		}
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				pending = true
				timer = time.AfterFunc(s.debounce, reloadNow)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watcher error", zap.Error(werr))
			case <-done:
				if timer != nil {
					timer.Stop()
				}
				_ = pending
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// ProfilePath resolves a `-P <profile>` selection to an explicit config
// path, matching the naming discoverProfiles (interactive quick-connect)
// expects: "default" is the plain .csh-config.yaml, anything else is
// "<profile>.csh-config.yaml" in the same directory.
func ProfilePath(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve profile %q: %w", profile, err)
	}
	dir := filepath.Join(home, ".csh")
	if profile == "" || profile == "default" {
		return filepath.Join(dir, ".csh-config.yaml"), nil
	}
	return filepath.Join(dir, profile+".csh-config.yaml"), nil
}

func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		return expandTilde(explicit), nil
	}
	home, _ := os.UserHomeDir()
	candidates := []string{}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".csh", ".csh-config.yaml"))
		candidates = append(candidates, filepath.Join(home, ".csh-config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".csh-config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	if home == "" {
		return "", ErrConfigNotFound
	}
	return materializeTemplate(home)
}

func expandTilde(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				return home
			}
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func materializeTemplate(home string) (string, error) {
	dir := filepath.Join(home, ".csh")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, ".csh-config.yaml")
	if err := os.WriteFile(path, []byte(defaultTemplate), 0o600); err != nil {
		return "", fmt.Errorf("config: write template %s: %w", dir, err)
	}
	return path, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var raw rawDoc
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{
		Settings:            raw.Settings,
		InteractiveSettings: raw.InteractiveSettings,
		Palette:             raw.Palette,
		Rules:               raw.Rules,
	}
	expandPalette(cfg)
	cfg.Metadata.CompiledRules = compileRules(cfg)
	cfg.Metadata.CompiledSecretRules = compileSecretPatterns(cfg)
	return cfg, nil
}

// expandPalette rewrites each palette entry from "#rrggbb" to its ANSI
// foreground SGR string in place; an invalid hex value becomes the empty
// string (the caller's responsibility to elide, per spec.md).
func expandPalette(cfg *Config) {
	for name, hex := range cfg.Palette {
		cfg.Palette[name] = HexToANSI(hex, FG)
	}
}

// Channel selects whether HexToANSI produces a foreground or background SGR.
type Channel int

const (
	FG Channel = iota
	BG
)

// HexToANSI converts "#rrggbb" into a 24-bit ANSI SGR escape sequence for
// the requested channel. An invalid hex code yields "".
func HexToANSI(hex string, ch Channel) string {
	if len(hex) != 7 || hex[0] != '#' {
		return ""
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return ""
	}
	code := 38
	if ch == BG {
		code = 48
	}
	return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", code, r, g, b)
}

func compileRules(cfg *Config) []CompiledRule {
	out := make([]CompiledRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		clean := strings.ReplaceAll(r.Regex, "\n", "")
		clean = strings.TrimSpace(clean)
		re, err := regexp.Compile(clean)
		if err != nil {
			continue // invalid patterns are dropped, not fatal; the drop is not logged
		}
		style := cfg.Palette[r.Color]
		if r.BGColor != "" {
			style += HexToANSI(r.BGColor, BG)
		}
		out = append(out, CompiledRule{Regex: re, Style: style})
	}
	return out
}

func compileSecretPatterns(cfg *Config) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(cfg.Settings.RemoveSecrets))
	for _, p := range cfg.Settings.RemoveSecrets {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}

const defaultTemplate = `settings:
  ssh_logging: false
  remove_secrets: []

interactive_settings:
  history_buffer: 5000
  host_tree_uncollapsed: false
  info_view: true
  host_view_size: 30
  info_view_size: 8

palette:
  red: "#ff5555"
  green: "#50fa7b"
  yellow: "#f1fa8c"
  cyan: "#8be9fd"

rules:
  - regex: "\\b(error|failed|fatal)\\b"
    color: red
    description: error keywords
  - regex: "\\b(warning|warn)\\b"
    color: yellow
  - regex: "\\b(ok|success|passed)\\b"
    color: green
`
