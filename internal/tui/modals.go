package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/catalog"
)

// quickConnectField identifies one of the quick-connect modal's cyclic
// tab-order fields, per spec §4.H.5.
type quickConnectField int

const (
	qcFieldUser quickConnectField = iota
	qcFieldHost
	qcFieldProfile
	qcFieldSSHLogging
	qcFieldConnect
	qcFieldCount
)

type quickConnectModal struct {
	active bool

	userInput textinput.Model
	hostInput textinput.Model

	profiles    []string
	profileSel  int
	sshLogging  bool

	field quickConnectField
	err   string
}

func newQuickConnectModal() quickConnectModal {
	ui := textinput.New()
	ui.Prompt = "User: "
	ui.Placeholder = "optional"
	ui.CharLimit = 128

	hi := textinput.New()
	hi.Prompt = "Host: "
	hi.Placeholder = "hostname or alias"
	hi.CharLimit = 256
	hi.Focus()

	return quickConnectModal{
		active:    true,
		userInput: ui,
		hostInput: hi,
		profiles:  discoverProfiles(),
		field:     qcFieldUser,
	}
}

// discoverProfiles lists config profiles found in $HOME/.csh: the base
// .csh-config.yaml maps to "default"; any <name>.csh-config.yaml
// contributes <name>; sorted case-insensitively with default pinned
// first. Files named *.cossh-config.yaml are not listed.
func discoverProfiles() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return []string{"default"}
	}
	dir := filepath.Join(home, ".csh")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{"default"}
	}
	var named []string
	hasDefault := false
	for _, e := range entries {
		name := e.Name()
		if name == ".csh-config.yaml" {
			hasDefault = true
			continue
		}
		if strings.HasSuffix(name, ".csh-config.yaml") {
			named = append(named, strings.TrimSuffix(name, ".csh-config.yaml"))
		}
	}
	sort.Slice(named, func(i, j int) bool { return strings.ToLower(named[i]) < strings.ToLower(named[j]) })
	if !hasDefault && len(named) == 0 {
		return []string{"default"}
	}
	return append([]string{"default"}, named...)
}

// advanceField moves focus to the next/previous field in cyclic order.
func (qc *quickConnectModal) advanceField(forward bool) {
	qc.userInput.Blur()
	qc.hostInput.Blur()
	if forward {
		qc.field = (qc.field + 1) % qcFieldCount
	} else {
		qc.field = (qc.field - 1 + qcFieldCount) % qcFieldCount
	}
	switch qc.field {
	case qcFieldUser:
		qc.userInput.Focus()
	case qcFieldHost:
		qc.hostInput.Focus()
	}
}

func (m *Model) handleQuickConnectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	qc := &m.quickConnect
	switch msg.String() {
	case "esc":
		m.modal = ModalNone
		return m, nil
	case "tab":
		qc.advanceField(true)
		return m, nil
	case "shift+tab":
		qc.advanceField(false)
		return m, nil
	case "left":
		if qc.field == qcFieldProfile && qc.profileSel > 0 {
			qc.profileSel--
		}
		return m, nil
	case "right":
		if qc.field == qcFieldProfile && qc.profileSel < len(qc.profiles)-1 {
			qc.profileSel++
		}
		return m, nil
	case " ":
		if qc.field == qcFieldSSHLogging {
			qc.sshLogging = !qc.sshLogging
			return m, nil
		}
	case "enter":
		if qc.field == qcFieldConnect {
			return m.submitQuickConnect()
		}
		qc.advanceField(true)
		return m, nil
	}

	var cmd tea.Cmd
	switch qc.field {
	case qcFieldUser:
		qc.userInput, cmd = qc.userInput.Update(msg)
	case qcFieldHost:
		qc.hostInput, cmd = qc.hostInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) submitQuickConnect() (tea.Model, tea.Cmd) {
	qc := &m.quickConnect
	hostName := strings.TrimSpace(qc.hostInput.Value())
	if hostName == "" {
		qc.err = "host is required"
		return m, nil
	}
	host := catalog.Host{
		Name: hostName,
		User: strings.TrimSpace(qc.userInput.Value()),
	}
	if idx := m.findHostByName(hostName); idx >= 0 {
		host = m.tree.Hosts[idx]
	}
	m.modal = ModalNone
	m.openTab(host)
	return m, nil
}

func (m *Model) findHostByName(name string) int {
	if m.tree == nil {
		return -1
	}
	for i, h := range m.tree.Hosts {
		if h.Name == name {
			return i
		}
	}
	return -1
}

func (qc quickConnectModal) view(width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quick Connect\n\n")
	b.WriteString(qc.userInput.View())
	b.WriteString("\n")
	b.WriteString(qc.hostInput.View())
	b.WriteString("\n")

	profileLine := "Profile: "
	if len(qc.profiles) > 0 {
		profileLine += qc.profiles[qc.profileSel]
	}
	if qc.field == qcFieldProfile {
		profileLine = "> " + profileLine
	}
	b.WriteString(profileLine + "\n")

	logLine := "[ ] SSH logging"
	if qc.sshLogging {
		logLine = "[x] SSH logging"
	}
	if qc.field == qcFieldSSHLogging {
		logLine = "> " + logLine
	}
	b.WriteString(logLine + "\n\n")

	connectLine := "  Connect  "
	if qc.field == qcFieldConnect {
		connectLine = "[ Connect ]"
	}
	b.WriteString(connectLine)
	if qc.err != "" {
		b.WriteString("\n\n" + qc.err)
	}
	return b.String()
}

// passUnlockModal is opened when a pass key fails to resolve. Enter
// closes it and runs one more resolution through internal/pass off the
// Update goroutine (gpg-agent/pinentry asks for the passphrase itself,
// and internal/pass may run gpg up to 3 times); the text typed here is
// not passed to gpg. A failed retry, like Esc, resumes the deferred
// action with no password and a fallback notice. The modal is not
// reopened after a failed retry, so its counter always shows attempt 1
// of maxUnlockAttempts.
type passUnlockModal struct {
	active  bool
	passKey string
	attempt int
	input   textinput.Model
	resume  func(password string, cancelled bool) tea.Cmd
}

const maxUnlockAttempts = 3

func newPassUnlockModal(passKey string, resume func(string, bool) tea.Cmd) passUnlockModal {
	in := textinput.New()
	in.Prompt = "Passphrase: "
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '*'
	in.Focus()
	return passUnlockModal{active: true, passKey: passKey, input: in, resume: resume}
}

func (m *Model) handlePassUnlockKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pu := &m.passUnlock
	switch msg.String() {
	case "esc":
		m.modal = ModalNone
		return m, pu.resume("", true)
	case "enter":
		pu.attempt++
		m.modal = ModalNone
		return m, pu.resume(pu.input.Value(), false)
	}
	var cmd tea.Cmd
	pu.input, cmd = pu.input.Update(msg)
	return m, cmd
}

func (pu passUnlockModal) view() string {
	return fmt.Sprintf("Unlock pass key %q (attempt %d/%d)\n\n%s", pu.passKey, pu.attempt+1, maxUnlockAttempts, pu.input.View())
}
