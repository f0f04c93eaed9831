// Package session spawns and supervises one PTY-backed SSH session: it
// owns the child process, the reader loop that feeds the terminal
// emulator and answers out-of-band terminal queries, and the keyboard
// and mouse encoders that translate UI input into bytes for the PTY.
package session

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/mpecarina/colorssh/internal/vt"
)

// Size is a terminal viewport size in character cells.
type Size struct {
	Rows, Cols int
}

// Session is one PTY-backed child process plus its terminal emulator and
// reader goroutine.
type Session struct {
	ID uuid.UUID

	Host       string
	TabTitle   string
	forceLog   bool

	mu          sync.Mutex
	cmd         *exec.Cmd
	ptmx        *os.File
	lastSize    Size
	exited      atomic.Bool
	clearPending atomic.Bool

	renderEpoch atomic.Uint64

	Emulator *vt.Emulator

	writerMu sync.Mutex // guards ptmx writes from UI keystrokes/mouse/paste and reader-loop query replies

	oscBuf bytes.Buffer // partial OSC 52 sequence across read boundaries, reader-goroutine-local

	// OnOuterWrite is invoked with bytes the reader loop decides must be
	// forwarded verbatim to the outer process's stdout (OSC 52 clipboard
	// sequences). May be nil.
	OnOuterWrite func([]byte)
}

const maxOSCBuffer = 100 * 1024

// Spawn opens a PTY, builds and starts the child command, and attaches
// the reader loop. If fallbackNotice is non-empty it is injected into the
// emulator before Spawn returns so the UI shows why auto-login was
// skipped.
func Spawn(selfPath, host, tabTitle string, history int, forceLog bool, profile string, size Size, passPassword, fallbackNotice string) (*Session, error) {
	s := &Session{
		ID:       uuid.New(),
		Host:     host,
		TabTitle: tabTitle,
		forceLog: forceLog,
		lastSize: size,
	}
	s.Emulator = vt.New(size.Rows, size.Cols, history, writerFunc(s.writeToPTY))

	name, args, env := buildCommand(selfPath, host, profile, forceLog, passPassword)
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Env = append(cmd.Env, "COSSH_SESSION_NAME="+tabTitle, "COSSH_SKIP_PASS_RESOLVE=1")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(size.Rows), Cols: uint16(size.Cols)})
	if err != nil {
		return nil, fmt.Errorf("session: spawn %s: %w", host, err)
	}

	s.cmd = cmd
	s.ptmx = ptmx

	if fallbackNotice != "" {
		s.Emulator.Process([]byte("\r\n[color-ssh] " + fallbackNotice + "\r\n"))
	}

	go s.readLoop()
	return s, nil
}

// writerFunc adapts a func([]byte) into an io.Writer for vt.New.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// Write sends bytes to the child's PTY, guarded by the same mutex that
// serializes reader-loop query replies against UI-driven keystrokes,
// mouse reports, and pastes.
func (s *Session) Write(p []byte) (int, error) {
	return s.writeToPTY(p)
}

func (s *Session) writeToPTY(p []byte) (int, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	if s.ptmx == nil {
		return 0, io.ErrClosedPipe
	}
	return s.ptmx.Write(p)
}

// buildCommand returns argv/env per spec §4.E: sshpass -e <self> [-l]
// <target> [-P profile] when a password was resolved, <self> with the
// same flags otherwise. <self> is the path to this same binary, which
// re-invokes itself in non-interactive mode, becoming the highlighting
// SSH wrapper.
func buildCommand(selfPath, host, profile string, forceLog bool, password string) (name string, args []string, env []string) {
	selfArgs := make([]string, 0, 4)
	if forceLog {
		selfArgs = append(selfArgs, "-l")
	}
	selfArgs = append(selfArgs, host)
	if profile != "" {
		selfArgs = append(selfArgs, "-P", profile)
	}

	if password != "" {
		return "sshpass", append([]string{"-e", selfPath}, selfArgs...), []string{"SSHPASS=" + password}
	}
	return selfPath, selfArgs, nil
}

// Exited reports whether the child process has terminated (reader loop
// hit EOF).
func (s *Session) Exited() bool { return s.exited.Load() }

// RenderEpoch returns the monotonically increasing counter bumped every
// time Process or Resize mutates emulator state.
func (s *Session) RenderEpoch() uint64 { return s.renderEpoch.Load() }

// ClearPending reports (and clears) whether the reader loop observed a
// clear-screen / clear-scrollback sequence since the last check.
func (s *Session) ClearPending() bool { return s.clearPending.Swap(false) }

// Resize updates the PTY and emulator size if it differs from the last
// applied size; a no-op otherwise.
func (s *Session) Resize(size Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size == s.lastSize {
		return nil
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(size.Rows), Cols: uint16(size.Cols)}); err != nil {
		return fmt.Errorf("session: resize %s: %w", s.Host, err)
	}
	s.Emulator.SetSize(size.Rows, size.Cols)
	s.lastSize = size
	s.renderEpoch.Add(1)
	return nil
}

// Close releases the PTY file descriptor and waits for the child.
func (s *Session) Close() error {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	err := ptmx.Close()
	_ = s.cmd.Wait()
	return err
}

// readLoop reads up to 8KiB per iteration, scans for terminal-capability
// query sequences and OSC 52 clipboard writes, tracks clear-screen
// detection, and advances the emulator, bumping renderEpoch per read.
func (s *Session) readLoop() {
	buf := make([]byte, 8*1024)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			s.respondToQueries(chunk)
			forward := s.scanOSC52(chunk)
			if len(forward) > 0 && s.OnOuterWrite != nil {
				s.OnOuterWrite(forward)
			}
			if bytes.Contains(chunk, []byte("\x1b[2J")) || bytes.Contains(chunk, []byte("\x1b[3J")) {
				s.clearPending.Store(true)
			}
			s.Emulator.Process(chunk)
			s.renderEpoch.Add(1)
		}
		if err != nil {
			s.exited.Store(true)
			return
		}
	}
}

var (
	da1Query = []byte("\x1b[c")
	da1Alt   = []byte("\x1b[0c")
	da2Query = []byte("\x1b[>c")
	dsrQuery = []byte("\x1b[5n")
	cprQuery = []byte("\x1b[6n")
)

// respondToQueries scans chunk for the fixed DA1/DA2/DSR/CPR query table
// and writes the matching static responses directly to the PTY.
func (s *Session) respondToQueries(chunk []byte) {
	for _, resp := range queryResponses(chunk) {
		s.writeToPTY(resp)
	}
}

// queryResponses is the pure detection half of respondToQueries: given a
// raw chunk, it returns the static response bytes for every terminal
// capability query found, per spec §4.E's table.
func queryResponses(chunk []byte) [][]byte {
	var out [][]byte
	if bytes.Contains(chunk, da2Query) {
		out = append(out, []byte("\x1b[>41;279;0c"))
	}
	if bytes.Contains(chunk, da1Query) || bytes.Contains(chunk, da1Alt) {
		out = append(out, []byte("\x1b[?62;1;2;6;9;15;22c"))
	}
	if bytes.Contains(chunk, dsrQuery) {
		out = append(out, []byte("\x1b[0n"))
	}
	if bytes.Contains(chunk, cprQuery) {
		out = append(out, []byte("\x1b[1;1R"))
	}
	return out
}

var oscStart = []byte("\x1b]52;")

// scanOSC52 extracts complete OSC 52 sequences from chunk (handling a
// sequence split across a read boundary via s.oscBuf) and returns them
// concatenated, unchanged, for verbatim forwarding to outer stdout.
func (s *Session) scanOSC52(chunk []byte) []byte {
	var forward bytes.Buffer

	data := chunk
	if s.oscBuf.Len() > 0 {
		data = append(s.oscBuf.Bytes(), chunk...)
		s.oscBuf.Reset()
	}

	for {
		start := bytes.Index(data, oscStart)
		if start < 0 {
			break
		}
		rest := data[start:]
		end, terminatorLen := findOSCTerminator(rest)
		if end < 0 {
			if len(rest) <= maxOSCBuffer {
				s.oscBuf.Write(rest)
			}
			return forward.Bytes()
		}
		forward.Write(rest[:end+terminatorLen])
		data = rest[end+terminatorLen:]
	}
	return forward.Bytes()
}

// findOSCTerminator returns the index of a BEL or ST (ESC \) terminator
// within seq and the terminator's byte length, or (-1, 0) if absent.
func findOSCTerminator(seq []byte) (int, int) {
	if i := bytes.IndexByte(seq, 0x07); i >= 0 {
		return i, 1
	}
	if i := bytes.Index(seq, []byte("\x1b\\")); i >= 0 {
		return i, 2
	}
	return -1, 0
}

// --- Keyboard/mouse encoding (UI -> PTY) ---

// Modifiers bundles the modifier keys held during a key or mouse event.
type Modifiers struct {
	Shift, Alt, Ctrl bool
}

func (m Modifiers) csiParam() int {
	p := 1
	if m.Shift {
		p++
	}
	if m.Alt {
		p += 2
	}
	if m.Ctrl {
		p += 4
	}
	return p
}

// EncodeChar encodes a printable rune for the PTY, prepending ESC if alt
// is held.
func EncodeChar(r rune, alt bool) []byte {
	b := []byte(string(r))
	if alt {
		return append([]byte{0x1B}, b...)
	}
	return b
}

// EncodeControl encodes a control character (e.g. Ctrl-A..Z) per spec's
// fixed mapping table.
func EncodeControl(r rune) []byte {
	switch {
	case r >= 'a' && r <= 'z':
		return []byte{byte(r - 'a' + 1)}
	case r >= 'A' && r <= 'Z':
		return []byte{byte(r - 'A' + 1)}
	case r == '[':
		return []byte{27}
	case r == '\\':
		return []byte{28}
	case r == ']':
		return []byte{29}
	case r == '^':
		return []byte{30}
	case r == '_':
		return []byte{31}
	case r == '?':
		return []byte{127}
	case r == '@' || r == ' ':
		return []byte{0}
	default:
		return nil
	}
}

// Named key identifiers for EncodeNamedKey.
type Key int

const (
	KeyEnter Key = iota
	KeyBackspace
	KeyTab
	KeyEsc
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyInsert
)

// EncodeNamedKey encodes Enter/Backspace/Tab/Esc/arrows/Home/End/PageUp/
// PageDown/Delete/Insert, applying the CSI-modifier-parameter form when
// any modifier is held.
func EncodeNamedKey(key Key, mods Modifiers) []byte {
	switch key {
	case KeyEnter:
		return []byte("\r")
	case KeyBackspace:
		return []byte{0x7F}
	case KeyTab:
		return []byte("\t")
	case KeyEsc:
		return []byte{0x1B}
	}

	hasMods := mods.Shift || mods.Alt || mods.Ctrl
	finalByte, tilde := namedKeyCode(key)

	if tilde {
		if hasMods {
			return []byte(fmt.Sprintf("\x1b[%d;%d~", finalByte, mods.csiParam()))
		}
		return []byte(fmt.Sprintf("\x1b[%d~", finalByte))
	}

	if hasMods {
		return []byte(fmt.Sprintf("\x1b[1;%d%c", mods.csiParam(), rune(finalByte)))
	}
	return []byte(fmt.Sprintf("\x1b[%c", rune(finalByte)))
}

// namedKeyCode returns the CSI final byte (or numeric code for the
// "~"-terminated family) and whether this key uses the "~" form.
func namedKeyCode(key Key) (code int, tilde bool) {
	switch key {
	case KeyUp:
		return 'A', false
	case KeyDown:
		return 'B', false
	case KeyRight:
		return 'C', false
	case KeyLeft:
		return 'D', false
	case KeyHome:
		return 'H', false
	case KeyEnd:
		return 'F', false
	case KeyPageUp:
		return 5, true
	case KeyPageDown:
		return 6, true
	case KeyDelete:
		return 3, true
	case KeyInsert:
		return 2, true
	default:
		return 0, false
	}
}

// WrapBracketedPaste wraps text in bracketed-paste markers; callers
// should only do this when the emulator reports bracketed paste enabled.
func WrapBracketedPaste(text string) []byte {
	return []byte("\x1b[200~" + text + "\x1b[201~")
}

// EncodeMouse encodes a mouse event per the emulator-reported encoding.
// button follows the X10/SGR button-number convention (0/1/2 = left/
// middle/right, 64/65 = scroll up/down); release is ignored for X10
// encoding's press-only button byte per spec.
func EncodeMouse(encoding vt.MouseEncoding, button, col, row int, release bool) []byte {
	switch encoding {
	case vt.EncodingSGR:
		final := byte('M')
		if release {
			final = 'm'
		}
		return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", button, col, row, final))
	default:
		cb := button + 32
		c := clampCoord(col) + 32
		r := clampCoord(row) + 32
		return []byte{0x1B, '[', 'M', byte(cb), byte(c), byte(r)}
	}
}

func clampCoord(n int) int {
	if n > 223 {
		return 223
	}
	if n < 0 {
		return 0
	}
	return n
}

// EncodeOSC52Clipboard builds the OSC 52 sequence for a local selection
// copy, for UI code that writes directly to outer stdout.
func EncodeOSC52Clipboard(text string) []byte {
	return []byte(fmt.Sprintf("\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString([]byte(text))))
}

// SelfPath returns the path this process should re-invoke for non-
// interactive child sessions, per spec.md's "<self>" convention.
func SelfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0], nil
	}
	return exe, nil
}

// ParsePassthroughFlag reports whether args contains any of -G/-V/-Q/-O,
// which select direct stdio-inherited passthrough mode instead of the
// highlighting wrapper, per spec §6.
func ParsePassthroughFlag(args []string) bool {
	for _, a := range args {
		if a == "-G" || a == "-V" || a == "-Q" || a == "-O" {
			return true
		}
		if len(a) > 1 && a[0] == '-' && !strings.HasPrefix(a, "--") {
			for _, c := range a[1:] {
				if c == 'G' || c == 'V' || c == 'Q' || c == 'O' {
					return true
				}
			}
		}
	}
	return false
}
