package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
)

func newHomeCmd(s *session) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the home sections: popular, now playing, top rated, upcoming, trending and genre rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := homeSections(cmd.Context(), s.app, refresh)
			if len(sections) == 0 && err != nil {
				return err
			}
			renderSections(cmd.OutOrStdout(), sections)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "some sections failed to load: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached sections")
	return cmd
}

// homeSections serves sections from the cache while fresh, then refetches.
// A failed refetch falls back to the stale cache.
func homeSections(ctx context.Context, a *app, refresh bool) ([]service.Section, error) {
	sections, stale, err := store.LoadOrFetch(a.cache, store.SectionsCacheName(a.cfg.TMDB.Language), store.SectionsCacheTTL, refresh, func() ([]service.Section, error) {
		return a.client.Sections(ctx, service.DefaultSections(), a.cfg.Browse.SectionLimit)
	})
	if stale {
		a.log.Warn("serving stale sections", zap.Error(err))
		return sections, nil
	}
	return sections, err
}
