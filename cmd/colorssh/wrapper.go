package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/mpecarina/colorssh/internal/applog"
	"github.com/mpecarina/colorssh/internal/catalog"
	"github.com/mpecarina/colorssh/internal/config"
	"github.com/mpecarina/colorssh/internal/highlight"
	"github.com/mpecarina/colorssh/internal/pass"
	"github.com/mpecarina/colorssh/internal/session"
	"github.com/mpecarina/colorssh/internal/sshlog"
)

// runWrapper is the non-interactive entry point: either a bare stdio
// passthrough (spec.md §6's -G/-V/-Q/-O detection) or the highlighting
// wrapper that PTY-wraps the real ssh binary.
func runWrapper(flags cliFlags, args []string) error {
	if session.ParsePassthroughFlag(args) {
		return runPassthrough(args)
	}
	return runHighlighted(flags, args)
}

// runPassthrough inherits stdio directly: no highlighting, no
// transcript logging, used for ssh invocations like -G/-V that print a
// single line and exit, where a PTY wrapper would only get in the way.
func runPassthrough(args []string) error {
	cmd := exec.Command("ssh", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	os.Exit(clampExitCode(exitCodeFromErr(err)))
	return nil
}

// runHighlighted PTY-wraps a real ssh invocation, grounded on the
// teacher's runConnectSubcommand: a local PTY gives ssh a real
// terminal, size is seeded and kept in sync with our own controlling
// terminal, and the child's output is mirrored to our stdout through
// the highlight engine and the ssh log worker before being written out.
func runHighlighted(flags cliFlags, args []string) error {
	logger, syncLog, err := applog.Init(flags.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "colorssh: debug log init failed: %v\n", err)
	}
	defer syncLog()

	cfgPath := ""
	if flags.profile != "" {
		if p, err := config.ProfilePath(flags.profile); err == nil {
			cfgPath = p
		}
	}
	var cfg *config.Config
	cfgStore, cfgErr := config.New(cfgPath, logger)
	if cfgErr == nil {
		cfg = cfgStore.Get()
	}

	dest := destinationFromArgs(args)
	sessionName := strings.TrimSpace(os.Getenv("COSSH_SESSION_NAME"))
	if sessionName == "" {
		sessionName = dest
	}
	if cfgStore != nil {
		cfgStore.SetSessionName(sessionName)
	}

	loggingEnabled := flags.logging
	if !flags.testMode && cfg != nil {
		loggingEnabled = loggingEnabled || cfg.Settings.SSHLogging
	}
	var logWorker *sshlog.Worker
	if loggingEnabled {
		logWorker = sshlog.New(sessionName, cfgStore)
		go logWorker.Run()
		defer func() {
			logWorker.Flush()
			logWorker.Close()
		}()
	}

	password, havePassword := resolvePassForDestination(dest)

	cmd := exec.Command("ssh", args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("wrapper: pty start: %w", err)
	}
	defer ptmx.Close()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		if cols, rows, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil && rows > 0 && cols > 0 {
			_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
		}
	}
	startPTYResizeWatcher(ptmx)

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		if oldState, sErr := term.MakeRaw(fd); sErr == nil {
			defer func() { _ = term.Restore(fd, oldState) }()
		}
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()

	var rules []config.CompiledRule
	var ruleSet *regexp.Regexp
	if cfg != nil {
		rules = cfg.Metadata.CompiledRules
		ruleSet = highlight.BuildRuleSet(rules)
	}
	state := &highlight.ColorState{}

	promptRe := regexp.MustCompile(`(?i)(password|passcode|pass phrase|passphrase)\s*:?\s*$`)
	seenPrompt := false
	deadline := time.Now().Add(30 * time.Second)
	var tail strings.Builder
	const maxTail = 2048

	buf := make([]byte, 8*1024)
	for {
		n, rerr := ptmx.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if logWorker != nil {
				logWorker.Chunk(chunk)
			}
			os.Stdout.WriteString(highlight.ProcessChunk(chunk, rules, ruleSet, state))

			if havePassword && !seenPrompt && time.Now().Before(deadline) {
				seenPrompt = feedPasswordIfPrompted(ptmx, &tail, chunk, promptRe, password, maxTail)
			}
		}
		if rerr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	os.Exit(clampExitCode(exitCodeFromErr(waitErr)))
	return nil
}

// feedPasswordIfPrompted maintains a rolling tail of ssh's output and,
// on spotting a password-style prompt, writes password once. Grounded
// on the teacher's expect-like detection in runConnectSubcommand.
func feedPasswordIfPrompted(ptmx io.Writer, tail *strings.Builder, chunk string, promptRe *regexp.Regexp, password string, maxTail int) bool {
	for i := 0; i < len(chunk); i++ {
		b := chunk[i]
		if b == 0 {
			continue
		}
		if b == '\r' {
			tail.WriteByte('\n')
		} else {
			tail.WriteByte(b)
		}
		if tail.Len() > maxTail {
			s := tail.String()
			tail.Reset()
			tail.WriteString(s[len(s)-maxTail:])
		}
	}

	s := tail.String()
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 && idx+1 < len(s) {
		s = s[idx+1:]
	}
	s = strings.TrimSpace(s)
	if !promptRe.MatchString(s) {
		return false
	}
	_, _ = ptmx.Write([]byte(password))
	_, _ = ptmx.Write([]byte("\r"))
	return true
}

// destinationFromArgs finds the first non-flag token in an ssh argv,
// skipping the value that follows any of the flags known to take one.
func destinationFromArgs(args []string) string {
	takesValue := map[string]bool{
		"-l": true, "-p": true, "-i": true, "-o": true, "-F": true,
		"-c": true, "-D": true, "-L": true, "-R": true, "-W": true,
		"-w": true, "-E": true, "-e": true, "-J": true, "-Q": true,
		"-b": true, "-m": true, "-B": true,
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if takesValue[a] {
			i++
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		return a
	}
	return ""
}

// resolvePassForDestination looks up dest as a host name in the default
// SSH config tree and resolves its #_pass key, for direct CLI
// invocations that bypass the TUI (which otherwise resolves passes
// itself and drives auto-login via sshpass -e). Skipped entirely when
// COSSH_SKIP_PASS_RESOLVE=1: that means this process is itself the
// child session.Spawn re-invoked, and any auto-login has already been
// arranged by the parent via sshpass/SSHPASS.
func resolvePassForDestination(dest string) (password string, ok bool) {
	if dest == "" || os.Getenv("COSSH_SKIP_PASS_RESOLVE") == "1" {
		return "", false
	}
	rootPath, err := catalog.DefaultPath()
	if err != nil {
		return "", false
	}
	tree, err := catalog.Load(rootPath)
	if err != nil {
		return "", false
	}
	for _, h := range tree.Hosts {
		if h.Name != dest || h.PassKey == "" {
			continue
		}
		result := pass.NewCache().Resolve(h.PassKey)
		if result.Failed || result.Disabled {
			return "", false
		}
		return result.Password, true
	}
	return "", false
}

// exitCodeFromErr unwraps a child process's real exit status, per
// spec.md §6; a non-exit error (e.g. the binary itself could not be
// started) is reported as 1.
func exitCodeFromErr(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if status, ok := ee.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	return 1
}
