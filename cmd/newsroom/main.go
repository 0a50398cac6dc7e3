// cmd/newsroom/main.go
//
// This is the entry point for the newsroom CLI.
// Running `newsroom` with no subcommand opens the editorial desk TUI;
// the subcommands cover sign-in and quick lookups without the TUI.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/newsroom/internal/backend"
	"github.com/kingrea/newsroom/internal/config"
	"github.com/kingrea/newsroom/internal/identity"
	"github.com/kingrea/newsroom/internal/logbook"
	"github.com/kingrea/newsroom/internal/logging"
	"github.com/kingrea/newsroom/internal/tui"
)

var (
	homeFlag string
	verbose  bool

	cfg    *config.Config
	logger *zap.Logger
	desk   *logbook.Logbook
)

var rootCmd = &cobra.Command{
	Use:   "newsroom",
	Short: "Editorial desk for drafting, editing and publishing stories",
	Long: `newsroom is a terminal editorial desk.

Writers brief the generation backend, edit drafts in a rich-text editor and
save them; editors also move stories through Draft, In Review and Approved.

Run without arguments to open the desk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home, err := config.ResolveHome(homeFlag)
		if err != nil {
			return err
		}
		if err := config.InitHomeDir(home); err != nil {
			return err
		}
		cfg, err = config.Load(home)
		if err != nil {
			return err
		}
		level := cfg.Settings.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(cfg.LogsDir(), level)
		if err != nil {
			return err
		}
		desk, err = logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
		if err != nil {
			logger.Warn("logbook unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDesk()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "newsroom home directory (default: $NEWSROOM_HOME or ~/.newsroom)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	loginCmd.Flags().StringVarP(&loginProvider, "provider", "p", "github", "OAuth provider: github or google")
	articlesCmd.AddCommand(articlesListCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(articlesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBackend() *backend.Client {
	return backend.NewClient(cfg.Settings.Backend.URL,
		backend.WithTimeout(cfg.BackendTimeout()),
		backend.WithLogger(logger),
	)
}

func newIdentity() *identity.Client {
	return identity.NewClient(identity.SettingsFromConfig(cfg), identity.WithLogger(logger))
}

// runDesk opens the TUI and blocks until the user quits.
func runDesk() error {
	auth := newIdentity()
	defer auth.Close()
	if err := auth.Watch(); err != nil {
		logger.Warn("session watch unavailable", zap.Error(err))
	}
	if !cfg.IdentityConfigured() {
		desk.Warn("Identity provider not configured; set identity.url and identity.anon_key in %s", cfg.ConfigPath())
	}

	api := newBackend()
	app := tui.NewApp(cfg, api, auth,
		tui.WithLogbook(desk),
		tui.WithLogger(logger),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())
	detach := app.Attach(p.Send)
	defer detach()

	logger.Info("desk opened", zap.String("home", cfg.HomeDir), zap.String("backend", api.BaseURL()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run desk: %w", err)
	}
	return nil
}
