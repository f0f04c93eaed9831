// Package vt implements a VT220-class terminal emulator with scrollback,
// serving as the screen-state backend for each PTY session's tab. It is
// not a wrapper around an external terminal-emulation library: none of
// the example repos in this project's lineage expose a cell-level,
// mouse-mode-aware emulator API, so the state machine here is hand-built,
// modeled on the same Mutex-guarded, single-writer architecture those
// repos use around their own (more limited) VT wrappers.
package vt

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// MouseMode is the mouse-tracking protocol the child application has
// requested via private CSI mode sequences.
type MouseMode int

const (
	MouseNone MouseMode = iota
	MousePress
	MouseButtonMotion
	MouseAnyMotion
)

// MouseEncoding selects how mouse events should be formatted for the PTY.
type MouseEncoding int

const (
	EncodingDefault MouseEncoding = iota
	EncodingSGR
)

// Cell is one character cell's full rendering state.
type Cell struct {
	Char      string // one rune; each printable input byte fills one cell
	Fg        int32  // packed color: -1 default, 0-255 indexed, or 0x1000000|rgb
	Bg        int32
	Bold      bool
	Italic    bool
	Underline bool
	Inverse   bool
}

const defaultColor int32 = -1

func blankCell() Cell {
	return Cell{Char: " ", Fg: defaultColor, Bg: defaultColor}
}

// row is one line of the screen or scrollback buffer.
type row []Cell

func newRow(cols int) row {
	r := make(row, cols)
	for i := range r {
		r[i] = blankCell()
	}
	return r
}

// Screen is a read-only snapshot view into the emulator for rendering.
type Screen struct {
	Rows          int
	Cols          int
	CursorRow     int
	CursorCol     int
	CursorVisible bool
	MouseMode     MouseMode
	MouseEncoding MouseEncoding
	BracketedPaste bool

	grid []row // exactly Rows long; view already accounts for scrollback offset
}

// Cell returns the cell at (row, col), or a blank cell if out of range.
func (s Screen) Cell(r, c int) Cell {
	if r < 0 || r >= len(s.grid) || c < 0 || c >= s.Cols {
		return blankCell()
	}
	if c >= len(s.grid[r]) {
		return blankCell()
	}
	return s.grid[r][c]
}

// Emulator is a VT220-class terminal state machine with scrollback and a
// writer handle back to the PTY for OSC 10/11 color query responses.
type Emulator struct {
	mu sync.Mutex

	rows, cols int
	history    int

	grid       []row // live screen, Rows long
	scrollback []row // oldest-first ring, up to history long
	scrollOff  int   // rows back from live; 0 == live view

	cursorRow, cursorCol int
	cursorVisible        bool
	savedCursorRow        int
	savedCursorCol        int

	curFg, curBg int32
	bold, italic, underline, inverse bool

	altScreen    bool
	altSaved     []row
	altCursorRow int
	altCursorCol int

	mouseMode     MouseMode
	mouseEncoding MouseEncoding
	bracketPaste  bool

	parser parserState

	writer io.Writer // PTY write end, for OSC 10/11 color-query replies
}

// New creates an emulator with the given viewport size and scrollback
// capacity (in rows). writer may be nil if out-of-band query replies are
// not needed (e.g. in tests).
func New(rows, cols, history int, writer io.Writer) *Emulator {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	e := &Emulator{
		rows: rows, cols: cols, history: history,
		curFg: defaultColor, curBg: defaultColor,
		cursorVisible: true,
		writer:        writer,
	}
	e.grid = make([]row, rows)
	for i := range e.grid {
		e.grid[i] = newRow(cols)
	}
	return e
}

// SetSize resizes the viewport, preserving content where possible: rows
// added at the bottom are blank; when shrinking, rows are removed from the
// top and pushed into scrollback; columns added are blank-padded, columns removed are
// truncated (not pushed to scrollback, matching VT220 column resize).
func (e *Emulator) SetSize(rows, cols int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == e.rows && cols == e.cols {
		return
	}

	if cols != e.cols {
		for i, r := range e.grid {
			e.grid[i] = resizeRow(r, cols)
		}
	}

	switch {
	case rows < e.rows:
		overflow := e.grid[:len(e.grid)-rows]
		e.pushScrollback(overflow)
		e.grid = e.grid[len(e.grid)-rows:]
	case rows > e.rows:
		extra := make([]row, rows-e.rows)
		for i := range extra {
			extra[i] = newRow(cols)
		}
		e.grid = append(e.grid, extra...)
	}

	e.rows, e.cols = rows, cols
	if e.cursorRow >= rows {
		e.cursorRow = rows - 1
	}
	if e.cursorCol >= cols {
		e.cursorCol = cols - 1
	}
}

func resizeRow(r row, cols int) row {
	if len(r) == cols {
		return r
	}
	out := make(row, cols)
	for i := range out {
		if i < len(r) {
			out[i] = r[i]
		} else {
			out[i] = blankCell()
		}
	}
	return out
}

func (e *Emulator) pushScrollback(rows []row) {
	if e.history <= 0 {
		return
	}
	e.scrollback = append(e.scrollback, rows...)
	if over := len(e.scrollback) - e.history; over > 0 {
		e.scrollback = e.scrollback[over:]
	}
}

// SetScrollback sets how many rows back from live the view shows; clamps
// to [0, current scrollback length].
func (e *Emulator) SetScrollback(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n > len(e.scrollback) {
		n = len(e.scrollback)
	}
	e.scrollOff = n
}

// ScrollbackLen returns how many rows of history are currently retained,
// for callers (terminal search) that need to map an absolute row back
// into a SetScrollback offset.
func (e *Emulator) ScrollbackLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.scrollback)
}

// Screen returns a read-only view reflecting the current scrollback
// offset.
func (e *Emulator) Screen() Screen {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Screen{
		Rows: e.rows, Cols: e.cols,
		CursorVisible:  e.cursorVisible && e.scrollOff == 0,
		MouseMode:      e.mouseMode,
		MouseEncoding:  e.mouseEncoding,
		BracketedPaste: e.bracketPaste,
	}
	if e.scrollOff == 0 {
		s.grid = e.grid
		s.CursorRow, s.CursorCol = e.cursorRow, e.cursorCol
		return s
	}

	combined := append(append([]row{}, e.scrollback...), e.grid...)
	start := len(combined) - e.rows - e.scrollOff
	if start < 0 {
		start = 0
	}
	end := start + e.rows
	if end > len(combined) {
		end = len(combined)
	}
	s.grid = combined[start:end]
	return s
}

// Close is a no-op retained for API symmetry with other resource-owning
// facades in this codebase; the emulator holds no OS resources itself.
func (e *Emulator) Close() error { return nil }

// Process advances the state machine with raw bytes read from the PTY.
func (e *Emulator) Process(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range data {
		e.step(b)
	}
}

func (e *Emulator) step(b byte) {
	switch e.parser.mode {
	case parserGround:
		e.groundByte(b)
	case parserEscape:
		e.escapeByte(b)
	case parserCSI:
		e.csiByte(b)
	case parserOSC:
		e.oscByte(b)
	}
}

type parserMode int

const (
	parserGround parserMode = iota
	parserEscape
	parserCSI
	parserOSC
)

type parserState struct {
	mode   parserMode
	params []string
	cur    strings.Builder
	priv   bool // '?' prefix seen
	osc    strings.Builder
}

func (e *Emulator) groundByte(b byte) {
	switch b {
	case 0x1B:
		e.parser = parserState{mode: parserEscape}
	case '\r':
		e.cursorCol = 0
	case '\n':
		e.lineFeed()
	case '\b':
		if e.cursorCol > 0 {
			e.cursorCol--
		}
	case '\t':
		next := (e.cursorCol/8 + 1) * 8
		if next >= e.cols {
			next = e.cols - 1
		}
		e.cursorCol = next
	case 0x07: // BEL, ignored at this layer
	default:
		if b >= 0x20 {
			e.putChar(string(rune(b)))
		}
	}
}

func (e *Emulator) escapeByte(b byte) {
	switch b {
	case '[':
		e.parser = parserState{mode: parserCSI}
	case ']':
		e.parser = parserState{mode: parserOSC}
	case 'M': // reverse index
		e.reverseLineFeed()
		e.parser = parserState{mode: parserGround}
	case '7':
		e.savedCursorRow, e.savedCursorCol = e.cursorRow, e.cursorCol
		e.parser = parserState{mode: parserGround}
	case '8':
		e.cursorRow, e.cursorCol = e.savedCursorRow, e.savedCursorCol
		e.parser = parserState{mode: parserGround}
	default:
		e.parser = parserState{mode: parserGround}
	}
}

func (e *Emulator) csiByte(b byte) {
	switch {
	case b == '?' && e.parser.cur.Len() == 0 && len(e.parser.params) == 0:
		e.parser.priv = true
	case b >= '0' && b <= '9':
		e.parser.cur.WriteByte(b)
	case b == ';':
		e.parser.params = append(e.parser.params, e.parser.cur.String())
		e.parser.cur.Reset()
	case b >= 0x40 && b <= 0x7E:
		e.parser.params = append(e.parser.params, e.parser.cur.String())
		e.handleCSI(b, e.parser.params, e.parser.priv)
		e.parser = parserState{mode: parserGround}
	default:
		// Unrecognized intermediate byte; ignore and keep collecting.
	}
}

func (e *Emulator) oscByte(b byte) {
	if b == 0x07 || (b == '\\' && e.parser.osc.Len() > 0 && e.parser.osc.String()[e.parser.osc.Len()-1] == 0x1B) {
		e.handleOSC(strings.TrimSuffix(e.parser.osc.String(), "\x1B"))
		e.parser = parserState{mode: parserGround}
		return
	}
	e.parser.osc.WriteByte(b)
}

func param(params []string, i, def int) int {
	if i >= len(params) || params[i] == "" {
		return def
	}
	n, err := strconv.Atoi(params[i])
	if err != nil {
		return def
	}
	return n
}

func (e *Emulator) handleCSI(final byte, params []string, priv bool) {
	if priv {
		e.handlePrivateMode(final, params)
		return
	}
	switch final {
	case 'A':
		e.cursorRow = max0(e.cursorRow - param(params, 0, 1))
	case 'B':
		e.cursorRow = min(e.rows-1, e.cursorRow+param(params, 0, 1))
	case 'C':
		e.cursorCol = min(e.cols-1, e.cursorCol+param(params, 0, 1))
	case 'D':
		e.cursorCol = max0(e.cursorCol - param(params, 0, 1))
	case 'H', 'f':
		e.cursorRow = clamp(param(params, 0, 1)-1, 0, e.rows-1)
		e.cursorCol = clamp(param(params, 1, 1)-1, 0, e.cols-1)
	case 'J':
		e.eraseDisplay(param(params, 0, 0))
	case 'K':
		e.eraseLine(param(params, 0, 0))
	case 'm':
		e.applySGR(params)
	case 'n':
		// Device status reports (DSR/CPR) are answered by the session's
		// reader-loop scan, not here, per the query-responder table.
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (e *Emulator) handlePrivateMode(final byte, params []string) {
	set := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, p := range params {
		switch p {
		case "1000":
			e.mouseMode = modeIf(set, MousePress)
		case "1002":
			e.mouseMode = modeIf(set, MouseButtonMotion)
		case "1003":
			e.mouseMode = modeIf(set, MouseAnyMotion)
		case "1006":
			if set {
				e.mouseEncoding = EncodingSGR
			} else {
				e.mouseEncoding = EncodingDefault
			}
		case "2004":
			e.bracketPaste = set
		case "25":
			e.cursorVisible = set
		case "1049", "47", "1047":
			e.toggleAltScreen(set)
		}
	}
}

func modeIf(set bool, mode MouseMode) MouseMode {
	if set {
		return mode
	}
	return MouseNone
}

func (e *Emulator) toggleAltScreen(enable bool) {
	if enable == e.altScreen {
		return
	}
	if enable {
		e.altSaved = e.grid
		e.altCursorRow, e.altCursorCol = e.cursorRow, e.cursorCol
		e.grid = make([]row, e.rows)
		for i := range e.grid {
			e.grid[i] = newRow(e.cols)
		}
		e.cursorRow, e.cursorCol = 0, 0
		e.altScreen = true
	} else {
		e.grid = e.altSaved
		e.cursorRow, e.cursorCol = e.altCursorRow, e.altCursorCol
		e.altSaved = nil
		e.altScreen = false
	}
}

func (e *Emulator) eraseDisplay(mode int) {
	switch mode {
	case 0:
		e.eraseLine(0)
		for r := e.cursorRow + 1; r < e.rows; r++ {
			e.grid[r] = newRow(e.cols)
		}
	case 1:
		e.eraseLine(1)
		for r := 0; r < e.cursorRow; r++ {
			e.grid[r] = newRow(e.cols)
		}
	case 2, 3:
		if mode == 3 {
			e.scrollback = nil
		}
		for r := range e.grid {
			e.grid[r] = newRow(e.cols)
		}
	}
}

func (e *Emulator) eraseLine(mode int) {
	switch mode {
	case 0:
		for c := e.cursorCol; c < e.cols; c++ {
			e.grid[e.cursorRow][c] = blankCell()
		}
	case 1:
		for c := 0; c <= e.cursorCol && c < e.cols; c++ {
			e.grid[e.cursorRow][c] = blankCell()
		}
	case 2:
		e.grid[e.cursorRow] = newRow(e.cols)
	}
}

func (e *Emulator) applySGR(params []string) {
	if len(params) == 0 || (len(params) == 1 && params[0] == "") {
		e.resetAttrs()
		return
	}
	for i := 0; i < len(params); i++ {
		n := param(params, i, 0)
		switch {
		case n == 0:
			e.resetAttrs()
		case n == 1:
			e.bold = true
		case n == 3:
			e.italic = true
		case n == 4:
			e.underline = true
		case n == 7:
			e.inverse = true
		case n == 22:
			e.bold = false
		case n == 23:
			e.italic = false
		case n == 24:
			e.underline = false
		case n == 27:
			e.inverse = false
		case n == 39:
			e.curFg = defaultColor
		case n == 49:
			e.curBg = defaultColor
		case n >= 30 && n <= 37:
			e.curFg = int32(n - 30)
		case n >= 40 && n <= 47:
			e.curBg = int32(n - 40)
		case n >= 90 && n <= 97:
			e.curFg = int32(n - 90 + 8)
		case n >= 100 && n <= 107:
			e.curBg = int32(n - 100 + 8)
		case n == 38 || n == 48:
			consumed, color := parseExtendedColor(params, i)
			if consumed == 0 {
				continue
			}
			if n == 38 {
				e.curFg = color
			} else {
				e.curBg = color
			}
			i += consumed
		}
	}
}

// parseExtendedColor parses a 38/48 ";5;n" (indexed) or ";2;r;g;b" (24-bit)
// sequence starting at params[i+1]; returns how many extra params were
// consumed and the packed color value.
func parseExtendedColor(params []string, i int) (int, int32) {
	if i+1 >= len(params) {
		return 0, defaultColor
	}
	switch params[i+1] {
	case "5":
		if i+2 >= len(params) {
			return 0, defaultColor
		}
		idx := param(params, i+2, 0)
		return 2, int32(idx)
	case "2":
		if i+4 >= len(params) {
			return 0, defaultColor
		}
		r := param(params, i+2, 0)
		g := param(params, i+3, 0)
		b := param(params, i+4, 0)
		return 4, 0x1000000 | int32(r)<<16 | int32(g)<<8 | int32(b)
	}
	return 0, defaultColor
}

func (e *Emulator) resetAttrs() {
	e.curFg, e.curBg = defaultColor, defaultColor
	e.bold, e.italic, e.underline, e.inverse = false, false, false, false
}

func (e *Emulator) putChar(ch string) {
	if e.cursorCol >= e.cols {
		e.cursorCol = 0
		e.lineFeed()
	}
	e.grid[e.cursorRow][e.cursorCol] = Cell{
		Char: ch, Fg: e.curFg, Bg: e.curBg,
		Bold: e.bold, Italic: e.italic, Underline: e.underline, Inverse: e.inverse,
	}
	e.cursorCol++
}

func (e *Emulator) lineFeed() {
	if e.cursorRow < e.rows-1 {
		e.cursorRow++
		return
	}
	if !e.altScreen {
		e.pushScrollback(e.grid[:1])
	}
	copy(e.grid, e.grid[1:])
	e.grid[e.rows-1] = newRow(e.cols)
}

func (e *Emulator) reverseLineFeed() {
	if e.cursorRow > 0 {
		e.cursorRow--
		return
	}
	copy(e.grid[1:], e.grid[:e.rows-1])
	e.grid[0] = newRow(e.cols)
}

// handleOSC answers OSC 10/11 ("report current foreground/background
// color") queries directly, since they depend on palette state the
// emulator itself owns. OSC 52 (clipboard write) is left to the session's
// reader-loop scan, which forwards it to the outer terminal verbatim
// before bytes ever reach Process.
func (e *Emulator) handleOSC(body string) {
	if e.writer == nil {
		return
	}
	switch {
	case strings.HasPrefix(body, "10;?"):
		io_writeString(e.writer, "\x1b]10;rgb:ffff/ffff/ffff\x07")
	case strings.HasPrefix(body, "11;?"):
		io_writeString(e.writer, "\x1b]11;rgb:0000/0000/0000\x07")
	}
}

func io_writeString(w io.Writer, s string) {
	_, _ = w.Write([]byte(s))
}

// SelectionText materializes the text between two absolute (row, col)
// points (row indices are absolute into scrollback+live, row 0 = oldest
// scrollback row), trimming trailing spaces per row and joining with \n.
func (e *Emulator) SelectionText(startRow, startCol, endRow, endCol int) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	combined := append(append([]row{}, e.scrollback...), e.grid...)
	if startRow > endRow || (startRow == endRow && startCol > endCol) {
		startRow, startCol, endRow, endCol = endRow, endCol, startRow, startCol
	}
	startRow = clamp(startRow, 0, len(combined)-1)
	endRow = clamp(endRow, 0, len(combined)-1)

	var lines []string
	for r := startRow; r <= endRow; r++ {
		line := combined[r]
		from, to := 0, len(line)
		if r == startRow {
			from = clamp(startCol, 0, len(line))
		}
		if r == endRow {
			to = clamp(endCol+1, 0, len(line))
		}
		if from > to {
			from = to
		}
		var b strings.Builder
		for _, c := range line[from:to] {
			b.WriteString(c.Char)
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n")
}

// Match is one literal search hit: absolute row, starting column, and
// match length in runes.
type Match struct {
	AbsRow int
	Col    int
	Len    int
}

// SearchLiteral performs a literal search over the entire buffer
// (scrollback + live), case-insensitive for ASCII letters only.
func (e *Emulator) SearchLiteral(query string) []Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	if query == "" {
		return nil
	}
	qRunes := []rune(strings.ToLower(query))
	qLen := len(qRunes)

	combined := append(append([]row{}, e.scrollback...), e.grid...)
	var matches []Match
	for r, line := range combined {
		lower := make([]rune, len(line))
		for i, c := range line {
			rn := ' '
			if c.Char != "" {
				rn = []rune(c.Char)[0]
			}
			lower[i] = toLowerRune(rn)
		}
		for col := 0; col+qLen <= len(lower); col++ {
			if runesEqual(lower[col:col+qLen], qRunes) {
				matches = append(matches, Match{AbsRow: r, Col: col, Len: qLen})
			}
		}
	}
	return matches
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// EncodeOSC52 builds the OSC 52 clipboard-write sequence
// ESC]52;c;<base64>BEL. The UI's selection copy does not call it; it
// writes the same bytes via session.EncodeOSC52Clipboard.
func EncodeOSC52(text string) string {
	return fmt.Sprintf("\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString([]byte(text)))
}
