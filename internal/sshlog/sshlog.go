// Package sshlog runs the single background worker that writes the
// per-session SSH transcript log: line-buffered, ANSI-stripped, secret
// redacted, and flushed on a size/time policy rather than per write.
package sshlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mpecarina/colorssh/internal/config"
)

const (
	flushSizeThreshold = 64 * 1024
	flushTimeThreshold = 100 * time.Millisecond
)

var ansiEscapeRe = regexp.MustCompile(`\x1B\[[0-9;]*[mK]|\x1B\][0-9];.*?(\x07|\x1B\\)`)

// Worker owns one per-session log file and a bounded command channel.
// Exactly one goroutine (Run) ever touches the file handle or buffer.
type Worker struct {
	sessionName string
	commands    chan command

	store *config.Store

	cachedVersion uint64
	secretRules   []*regexp.Regexp

	done chan struct{}
}

type commandKind int

const (
	cmdChunk commandKind = iota
	cmdFlush
)

type command struct {
	kind  commandKind
	chunk string
	ack   chan struct{}
}

// New returns a worker for sessionName, backed by store for secret-pattern
// reloads. The worker goroutine is started by Run; callers should invoke
// go worker.Run().
func New(sessionName string, store *config.Store) *Worker {
	return &Worker{
		sessionName: sessionName,
		commands:    make(chan command, 256),
		store:       store,
		done:        make(chan struct{}),
	}
}

// Chunk enqueues a raw byte chunk (may contain partial lines, ANSI
// sequences, anything read straight off the PTY) for logging.
func (w *Worker) Chunk(s string) {
	select {
	case w.commands <- command{kind: cmdChunk, chunk: s}:
	case <-w.done:
	}
}

// Flush forces the worker to write any partial trailing line and flush
// its buffered writer to the file (no fsync), blocking until
// acknowledged.
func (w *Worker) Flush() {
	ack := make(chan struct{})
	select {
	case w.commands <- command{kind: cmdFlush, ack: ack}:
		<-ack
	case <-w.done:
	}
}

// Close stops the worker after it drains any already-queued commands.
func (w *Worker) Close() {
	close(w.commands)
}

// Run processes commands until the channel is closed. Call it in its own
// goroutine.
func (w *Worker) Run() {
	defer close(w.done)

	var accumulator strings.Builder
	var file *os.File
	var writer *bufio.Writer
	var currentDate string

	bytesSinceFlush := 0
	lastFlush := time.Now()

	ensureFile := func() error {
		date := time.Now().Format("2006-01-02")
		if file != nil && date == currentDate {
			return nil
		}
		if file != nil {
			writer.Flush()
			file.Close()
		}
		path, err := LogPath(w.sessionName, date)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		file, writer, currentDate = f, bufio.NewWriter(f), date
		return nil
	}

	maybeFlush := func(force bool) {
		if writer == nil {
			return
		}
		if force || bytesSinceFlush >= flushSizeThreshold || time.Since(lastFlush) >= flushTimeThreshold {
			writer.Flush()
			bytesSinceFlush = 0
			lastFlush = time.Now()
		}
	}

	writeLine := func(line string) {
		clean := sanitizeLine(line)
		clean = w.redact(clean)
		if clean == "" {
			return
		}
		if err := ensureFile(); err != nil {
			return
		}
		n, _ := fmt.Fprintf(writer, "%s %s\n", timestamp(), clean)
		bytesSinceFlush += n
	}

	for cmd := range w.commands {
		switch cmd.kind {
		case cmdChunk:
			accumulator.WriteString(cmd.chunk)
			buffered := accumulator.String()
			for {
				idx := strings.IndexByte(buffered, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimSuffix(buffered[:idx], "\r")
				writeLine(line)
				buffered = buffered[idx+1:]
			}
			accumulator.Reset()
			accumulator.WriteString(buffered)
			maybeFlush(false)
		case cmdFlush:
			if accumulator.Len() > 0 {
				writeLine(accumulator.String())
				accumulator.Reset()
			}
			maybeFlush(true)
			if cmd.ack != nil {
				close(cmd.ack)
			}
		}
	}

	if writer != nil {
		writer.Flush()
	}
	if file != nil {
		file.Close()
	}
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}

// sanitizeLine strips ANSI escape sequences and drops any character that
// is not alphanumeric, ASCII punctuation, or ASCII whitespace (excluding
// the line terminators already consumed by line splitting).
func sanitizeLine(line string) string {
	clean := ansiEscapeRe.ReplaceAllString(line, "")
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		if r == '\n' || r == '\r' {
			continue
		}
		if isAlphanumericOrPunctOrSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isAlphanumericOrPunctOrSpace(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ' || r == '\t':
		return true
	case r > 0x20 && r < 0x7F:
		return true // ASCII punctuation range
	default:
		return false
	}
}

// redact reloads secret patterns from the config store only when its
// version has changed since the last reload, then applies each pattern
// in turn, replacing matches with "[REDACTED]".
func (w *Worker) redact(line string) string {
	if w.store == nil {
		return line
	}
	cfg := w.store.Get()
	if cfg.Metadata.Version != w.cachedVersion {
		w.secretRules = cfg.Metadata.CompiledSecretRules
		w.cachedVersion = cfg.Metadata.Version
	}
	for _, re := range w.secretRules {
		line = re.ReplaceAllString(line, "[REDACTED]")
	}
	return line
}

// SanitizeSessionName replaces any character outside [A-Za-z0-9._-] with
// "_"; a name that is purely "." or ".." becomes "session" so the
// resulting filename can never escape the logs directory.
func SanitizeSessionName(name string) string {
	if name == "." || name == ".." {
		return "session"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

// LogPath returns the fixed per-session-per-day log path:
// $HOME/.csh/logs/ssh_sessions/<date>/<sanitized_session_name>.log.
func LogPath(sessionName, date string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".csh", "logs", "ssh_sessions", date, SanitizeSessionName(sessionName)+".log"), nil
}
