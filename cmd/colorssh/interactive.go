package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpecarina/colorssh/internal/applog"
	"github.com/mpecarina/colorssh/internal/catalog"
	"github.com/mpecarina/colorssh/internal/config"
	"github.com/mpecarina/colorssh/internal/pass"
	"github.com/mpecarina/colorssh/internal/recents"
	"github.com/mpecarina/colorssh/internal/session"
	"github.com/mpecarina/colorssh/internal/tui"
)

// runInteractive wires up the config store, host catalog, pass cache,
// and recents store, then drives the bubbletea program, per spec.md
// §6's "invoked when no positional args are supplied".
func runInteractive(flags cliFlags) error {
	logger, syncLog, err := applog.Init(flags.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "colorssh: debug log init failed: %v\n", err)
	}
	defer syncLog()

	cfgPath := ""
	if flags.profile != "" {
		p, err := config.ProfilePath(flags.profile)
		if err != nil {
			return fmt.Errorf("resolve profile: %w", err)
		}
		cfgPath = p
	}
	cfgStore, err := config.New(cfgPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stopWatch, err := cfgStore.Watch()
	if err == nil {
		defer stopWatch()
	}

	rootPath, err := catalog.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolve ssh config path: %w", err)
	}
	tree, treeErr := catalog.Load(rootPath)
	if treeErr != nil {
		logger.Warn("host catalog failed to load; host panel will show an error state")
		tree = nil
	}

	recStore, err := recents.OpenDefault()
	if err != nil {
		logger.Warn("recents store unavailable; recency boost disabled")
		recStore = nil
	}
	defer recStore.Close()

	selfPath, err := session.SelfPath()
	if err != nil {
		return fmt.Errorf("resolve self path: %w", err)
	}

	history := cfgStore.Get().InteractiveSettings.HistoryBuffer
	opts := tui.Options{
		SelfPath:    selfPath,
		ForceLog:    flags.logging,
		Profile:     flags.profile,
		HistoryRows: history,
	}

	model := tui.New(cfgStore, pass.NewCache(), recStore, tree, rootPath, opts)
	p := tea.NewProgram(model, tea.WithMouseAllMotion())
	_, err = p.Run()
	return err
}
