package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tmdb-finder-cli/config"
)

func newVerifyCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the configured TMDB API key is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := s.app.client.VerifyAPIKey(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("TMDB rejected the API key")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key is valid.")
			return nil
		},
	}
}

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
		// Works without a loadable config, so skip opening the app.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.resolvePath()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), s.configPath)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(s.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", s.configPath)
			}
			if err := config.DefaultConfig().Save(s.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", s.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
