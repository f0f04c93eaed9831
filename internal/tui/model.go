// Package tui implements the interactive session manager: a host tree
// on the left, a tab strip of live PTY sessions on the right, and the
// modals/search overlays spec.md §4.H describes. It is built the way
// the teacher's pkg/manager/tui_bubble.go is built — a single
// bubbletea model dispatching by priority in Update — generalized from
// tmux-pane orchestration to owning PTY sessions and emulators
// directly.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/catalog"
	"github.com/mpecarina/colorssh/internal/config"
	"github.com/mpecarina/colorssh/internal/pass"
	"github.com/mpecarina/colorssh/internal/recents"
)

// Focus identifies which half of the split view receives keyboard
// input when no modal or search overlay is active.
type Focus int

const (
	FocusHostPanel Focus = iota
	FocusTerminal
)

// Modal identifies the currently open modal, if any.
type Modal int

const (
	ModalNone Modal = iota
	ModalQuickConnect
	ModalPassUnlock
)

const (
	minHostPanelWidth = 15
	maxHostPanelWidth = 80
	defaultHostWidth  = 30

	heartbeat   = 250 * time.Millisecond
	statusShort = 2500 * time.Millisecond
)

// Options configures a Model at startup; it mirrors the CLI flags that
// affect interactive mode (spec §6).
type Options struct {
	SelfPath    string
	ForceLog    bool
	Profile     string
	HistoryRows int
}

// Model is the root bubbletea model for the whole application.
type Model struct {
	cfg     *config.Store
	passes  *pass.Cache
	recents *recents.Store
	opts    Options

	tree       *catalog.Tree
	index      *catalog.Index
	rootPath   string
	collapsed  map[catalog.FolderID]bool
	visible    []visibleRow
	selected   int
	listScroll int

	hostSearchMode  bool
	hostQuery       string
	hostQueryInput  textinput.Model

	showInfoPane   bool
	hostPanelWidth int
	hostPanelShown bool
	infoSplit      int // rows given to the list sub-pane

	tabs      []*Tab
	activeTab int

	tabScrollOffset int // left edge of the visible tab strip, in display columns
	tabBarWidth     int // width of the last-rendered tab bar, for mouse hit-testing
	tabDragging     bool
	tabDragIdx      int

	focus Focus
	modal Modal

	quickConnect quickConnectModal
	passUnlock   passUnlockModal

	sty styles

	width, height  int
	ready          bool
	dirty          bool
	lastRenderSum  uint64

	statusText  string
	statusUntil time.Time
	lastClickAt time.Time

	quitting bool
}

// New constructs the model. cfg/passes/recents must already be
// initialized; tree may be nil if the SSH config failed to parse (the
// host panel then renders an error state instead of a crash).
func New(cfg *config.Store, passes *pass.Cache, rec *recents.Store, tree *catalog.Tree, rootPath string, opts Options) *Model {
	m := &Model{
		cfg:            cfg,
		passes:         passes,
		recents:        rec,
		opts:           opts,
		tree:           tree,
		rootPath:       rootPath,
		collapsed:      make(map[catalog.FolderID]bool),
		hostPanelWidth: defaultHostWidth,
		hostPanelShown: true,
		infoSplit:      0,
		focus:          FocusHostPanel,
		sty:            newStyles(),
	}
	if tree != nil {
		m.index = catalog.NewIndex(tree.Hosts)
	}
	if cfg != nil {
		if cfgVal := cfg.Get(); cfgVal != nil {
			m.showInfoPane = cfgVal.InteractiveSettings.InfoView
			if cfgVal.InteractiveSettings.HostViewSize > 0 {
				m.hostPanelWidth = clampInt(cfgVal.InteractiveSettings.HostViewSize, minHostPanelWidth, maxHostPanelWidth)
			}
		}
	}
	m.hostQueryInput = textinput.New()
	m.hostQueryInput.Placeholder = "search hosts"
	m.rebuildVisible()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.EnableMouseAllMotion, tickCmd())
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(heartbeat, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type statusMsg struct {
	text string
	dur  time.Duration
}

func (m *Model) setStatus(text string, dur time.Duration) {
	m.statusText = text
	m.statusUntil = time.Now().Add(dur)
	m.dirty = true
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.clampHostPanelWidth()
		m.resizeActiveTabs()
		m.dirty = true
		return m, nil

	case tickMsg:
		if m.checkRenderEpochs() {
			m.dirty = true
		}
		if m.statusText != "" && time.Now().After(m.statusUntil) {
			m.statusText = ""
			m.dirty = true
		}
		return m, tickCmd()

	case statusMsg:
		m.setStatus(msg.text, msg.dur)
		return m, nil

	case passResolvedMsg:
		msg.apply(m)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

// checkRenderEpochs sums every live session's render epoch; a change
// since the last check means some tab has new output to paint. This is
// the sum-of-render-epochs comparator spec §4.H.6 describes.
func (m *Model) checkRenderEpochs() bool {
	var sum uint64
	for _, t := range m.tabs {
		if t.sess != nil {
			sum += t.sess.RenderEpoch()
			if t.sess.ClearPending() {
				t.scrollReset()
			}
			if t.sess.Exited() && !t.exitedNoticed {
				t.exitedNoticed = true
				m.setStatus(fmt.Sprintf("%s: session ended", t.Title), statusShort)
			}
		}
	}
	changed := sum != m.lastRenderSum
	m.lastRenderSum = sum
	return changed
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (m *Model) clampHostPanelWidth() {
	maxAllowed := m.width - 20
	if maxAllowed < minHostPanelWidth {
		maxAllowed = minHostPanelWidth
	}
	hi := maxHostPanelWidth
	if hi > maxAllowed {
		hi = maxAllowed
	}
	m.hostPanelWidth = clampInt(m.hostPanelWidth, minHostPanelWidth, hi)
}
