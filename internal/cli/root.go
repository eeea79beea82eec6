// Package cli wires configuration, logging and the remote client into the
// todo commands and the interactive TUI.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada-remote/internal/config"
	"github.com/Makepad-fr/tada-remote/internal/remote"
	"github.com/Makepad-fr/tada-remote/internal/store"
	"github.com/Makepad-fr/tada-remote/internal/store/jsonstore"
	"github.com/Makepad-fr/tada-remote/internal/transfer"
	"github.com/Makepad-fr/tada-remote/internal/tui"
	"github.com/Makepad-fr/tada-remote/internal/ui"
	"github.com/Makepad-fr/tada-remote/internal/util"
)

// App carries the resolved settings shared by every command.
type App struct {
	ConfigPath string
	Server     string
	Theme      string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	client   *remote.Client
	store    *store.Store
}

// NewRootCmd builds the `todo` command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Todo client for a remote todo store (CLI + TUI)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo add "Buy milk"
  todo ls --status pending
  todo done 2
  todo export --dir ~/Downloads
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.teardown()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", util.EnvOrDefault("TADA_CONFIG", config.Path()), "Path to config file")
	cmd.PersistentFlags().StringVar(&app.Server, "server", util.EnvOrDefault("TADA_SERVER", ""), "Remote store base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.Theme, "theme", util.EnvOrDefault("TADA_THEME", ""), "Output theme ("+strings.Join(ui.Themes, "|")+")")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		ui.Fail(stderr, message(err))
		return 1
	}
	return 0
}

// setup resolves config with precedence flag > env > file > default.
func (a *App) setup() error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.Server != "" {
		cfg.Server = a.Server
	}
	if a.Theme != "" {
		cfg.Theme = a.Theme
	}
	strategy, err := store.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	a.cfg = cfg

	ui.SetTheme(cfg.Theme)
	if ui.Current().Name == "mono" {
		ui.SetColorForcing(false, true)
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	a.logger, a.closeLog = openLog(cfg)
	a.client = remote.New(cfg.Server, remote.WithTimeout(cfg.Timeout), remote.WithLogger(a.logger))
	a.store = store.New(a.client, store.WithLogger(a.logger), store.WithStrategy(strategy))
	a.logger.Debug("configured", "server", cfg.Server, "strategy", string(strategy), "config", a.ConfigPath)
	return nil
}

func (a *App) teardown() error {
	if a.closeLog != nil {
		return a.closeLog()
	}
	return nil
}

// openLog sends slog output to cfg.LogFile. The terminal belongs to the
// TUI, so an unusable log file silences logging instead of failing.
func openLog(cfg *config.Config) (*slog.Logger, func() error) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.LogFile == "" {
		return discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return discard, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return discard, nil
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level()}))
	return logger, f.Close
}

func (a *App) transfer() *transfer.Controller {
	return transfer.New(a.client, a.logger)
}

func runTUI(ctx context.Context, a *App) error {
	statePath, err := jsonstore.DefaultPath()
	if err != nil {
		return fmt.Errorf("state path: %w", err)
	}
	st, err := jsonstore.Load(statePath)
	if err != nil {
		a.logger.Warn("load tui state", "path", statePath, "error", err)
	}
	return tui.Run(ctx, tui.Deps{
		Store:       a.store,
		Transfer:    a.transfer(),
		Logger:      a.logger,
		DownloadDir: a.cfg.DownloadDir,
		State:       st,
		StatePath:   statePath,
	})
}
