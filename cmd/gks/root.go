package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gksapp/gks/internal/adapter"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
	"github.com/gksapp/gks/internal/search"
	"github.com/gksapp/gks/internal/tui"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "gks",
		Short:         "Hymns, songs and quiz questions in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newSongsCommand(ctx))
	rootCmd.AddCommand(newHymnsCommand(ctx))
	rootCmd.AddCommand(newQuizCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func runTUI(ctx *commandContext) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode needs a terminal; see `gks --help` for list commands")
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Logging.File), adapter.LogToStderr) {
		return errors.New("logging.file=stderr would draw over the interface; set a log file path")
	}
	logger := ctx.log()
	logger.Info("starting gks", "version", Version, "mode", cfg.Remote.Mode)

	collections, closeCollections, err := ctx.openCollections()
	if err != nil {
		return err
	}
	defer closeCollections()

	catalogSvc, err := ctx.catalogService()
	if err != nil {
		return err
	}
	factory, err := ctx.playerFactory()
	if err != nil {
		return err
	}

	player := playback.NewController(collections, factory, logger)
	defer player.Close()

	model := tui.NewModel(tui.Options{
		Catalog:    catalogSvc,
		Player:     player,
		Quiz:       quiz.NewCursor(collections, cfg.Quiz.PageSize, logger),
		SearchMode: search.ParseMode(cfg.Search.Mode),
		Logger:     logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		m.Shutdown()
	}
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gks %s\n", Version)
		},
	}
}
