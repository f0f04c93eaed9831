//go:build windows
// +build windows

package main

import "os"

// startPTYResizeWatcher is a no-op on Windows: SIGWINCH doesn't exist
// there, and referencing it would fail a Windows build. Initial PTY
// sizing still happens once in runHighlighted; live resize propagation
// is skipped.
func startPTYResizeWatcher(_ *os.File) {
}
