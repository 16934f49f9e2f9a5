package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tmdb-finder-cli/config"
	"tmdb-finder-cli/logging"
	"tmdb-finder-cli/tui"
)

// session carries the resolved app between the persistent hooks and the
// command bodies.
type session struct {
	configPath string
	debug      bool
	app        *app
}

func NewRootCmd() *cobra.Command {
	s := &session{}
	cmd := &cobra.Command{
		Use:   "tmdb-finder",
		Short: "Browse and search The Movie Database from the terminal",
		Long: `tmdb-finder is a terminal client for The Movie Database.

Run it without arguments for the interactive browser, or use the subcommands
for one-shot searches, home sections and wishlist management.

The API key is read from TMDB_API_KEY (a .env file in the working directory is
loaded first) or from tmdb.api_key in the config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return s.open(cmd != cmd.Root())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return s.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(tui.New(s.app.tuiOptions()), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&s.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/tmdb-finder-cli/config.yaml)")
	cmd.PersistentFlags().BoolVar(&s.debug, "debug", false, "log at debug level")

	cmd.AddCommand(newSearchCmd(s))
	cmd.AddCommand(newDiscoverCmd(s))
	cmd.AddCommand(newHomeCmd(s))
	cmd.AddCommand(newWishlistCmd(s))
	cmd.AddCommand(newHistoryCmd(s))
	cmd.AddCommand(newFiltersCmd(s))
	cmd.AddCommand(newSettingsCmd(s))
	cmd.AddCommand(newVerifyCmd(s))
	cmd.AddCommand(newConfigCmd(s))

	return cmd
}

func (s *session) resolvePath() error {
	if s.configPath != "" {
		return nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	s.configPath = path
	return nil
}

func (s *session) open(oneShot bool) error {
	if err := s.resolvePath(); err != nil {
		return err
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so only one-shot commands echo logs.
	log, err := logging.New(cfg.Logging, logging.Options{Stderr: oneShot && s.debug, Debug: s.debug})
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		_ = log.Sync()
		return err
	}
	s.app = a
	return nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}
