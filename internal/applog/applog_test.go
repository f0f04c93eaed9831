package applog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit_CreatesLogFileUnderCSHLogs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	logger, sync, err := Init(true)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sync()

	logger.Debug("hello from test")
	sync()

	want := filepath.Join(home, ".csh", "logs", "debug.log")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected log file at %s: %v", want, err)
	}
}

func TestLogPath_FixedLayout(t *testing.T) {
	t.Setenv("HOME", "/home/test-user")
	path, err := logPath()
	if err != nil {
		t.Fatalf("logPath: %v", err)
	}
	want := "/home/test-user/.csh/logs/debug.log"
	if path != want {
		t.Fatalf("got %q, want %q", path, want)
	}
}
