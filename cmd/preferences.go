package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderHistory(cmd.OutOrStdout(), s.app.prefs.History())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every recent search",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.app.prefs.ClearHistory()
			fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared.")
		},
	})
	return cmd
}

func newFiltersCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Show recently used filter combinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderFilters(cmd.OutOrStdout(), s.app.prefs.RecentFilters())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every recent filter combination",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.app.prefs.ClearRecentFilters()
			fmt.Fprintln(cmd.OutOrStdout(), "Recent filters cleared.")
		},
	})
	return cmd
}

func newSettingsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the search restored on the next start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderSettings(cmd.OutOrStdout(), s.app.prefs.LoadLastUsedSettings())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Reset the last used search to the defaults",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.app.prefs.ClearLastUsedSettings()
			fmt.Fprintln(cmd.OutOrStdout(), "Last used settings cleared.")
		},
	})
	return cmd
}
