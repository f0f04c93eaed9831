// Command colorssh is an interactive SSH session manager: run with no
// arguments it opens the host-tree TUI (internal/tui); run with SSH-style
// positional arguments it becomes the non-interactive highlighting SSH
// wrapper that internal/session re-invokes itself as.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cliFlags mirrors spec.md §6's flag table; profile/logging also feed
// session.Spawn via tui.Options so interactive tabs inherit them.
type cliFlags struct {
	debug    bool
	logging  bool
	testMode bool
	profile  string
	addPass  string
}

// parseOwnFlags extracts colorssh's own -d/-l/-t/-P/--add-pass tokens
// from argv and returns them alongside whatever remains, which is
// treated verbatim as SSH arguments. This is deliberately a manual scan
// rather than cobra/pflag parsing: -l and -t are also real ssh flags,
// so letting a general-purpose flag parser loose on the full argv would
// swallow tokens meant for the wrapped ssh invocation. Each own flag is
// taken from its first occurrence only; a repeat passes through to ssh.
func parseOwnFlags(argv []string) (cliFlags, []string) {
	var f cliFlags
	rest := make([]string, 0, len(argv))
	seen := make(map[string]bool)
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		if seen[a] {
			rest = append(rest, a)
			continue
		}
		seen[a] = true
		switch a {
		case "-d":
			f.debug = true
		case "-l":
			f.logging = true
		case "-t":
			f.testMode = true
		case "-P":
			if i+1 < len(argv) {
				f.profile = argv[i+1]
				i++
			}
		case "--add-pass":
			if i+1 < len(argv) {
				f.addPass = argv[i+1]
				i++
			}
		default:
			rest = append(rest, argv[i])
		}
	}
	return f, rest
}

func main() {
	root := &cobra.Command{
		Use:                "colorssh [-d] [-l] [-t] [-P profile] [--add-pass key] [ssh-args...]",
		Short:              "color-ssh: a highlighting SSH wrapper and session manager",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, rest := parseOwnFlags(args)
			if flags.addPass != "" {
				return runAddPass(flags.addPass)
			}
			if len(rest) == 0 {
				return runInteractive(flags)
			}
			return runWrapper(flags, rest)
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "colorssh: %v\n", err)
		os.Exit(1)
	}
}

// clampExitCode enforces spec.md §6's "child's exit code clamped to
// 0..=255, else 1".
func clampExitCode(code int) int {
	if code < 0 || code > 255 {
		return 1
	}
	return code
}
