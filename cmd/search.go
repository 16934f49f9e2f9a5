package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"tmdb-finder-cli/model"
)

func newSearchCmd(s *session) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search movies by title",
		Long: `Search movies by title and print one page of results.

TMDB ignores the discover filters for text searches, so only --page and
--view affect the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			state, err := flags.state(model.DefaultQueryState(now), now)
			if err != nil {
				return err
			}
			state.Query = strings.Join(args, " ")
			s.app.prefs.RecordSearch(state.Query)
			return runQuery(cmd.Context(), s.app, state, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

func newDiscoverCmd(s *session) *cobra.Command {
	var (
		flags queryFlags
		last  bool
		pick  bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse movies by genre, rating, release year and sort order",
		Example: `  tmdb-finder discover --genre comedy --rating 7 --year 2010-2019
  tmdb-finder discover --last --page 2
  tmdb-finder discover --pick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			base := model.DefaultQueryState(now)
			if last {
				base = base.WithSettings(s.app.prefs.LoadLastUsedSettings())
				base.Query = ""
			}
			state, err := flags.state(base, now)
			if err != nil {
				return err
			}
			if pick {
				id, err := genrePicker()
				if err != nil {
					return err
				}
				if !state.HasGenre(id) {
					state = state.ToggleGenre(id)
					state.Page = flags.page
				}
			}
			if flags.filtered(cmd) || pick {
				s.app.prefs.RecordFilterPreset(state.Preset())
			}
			return runQuery(cmd.Context(), s.app, state, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&last, "last", false, "start from the last used filters")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a genre interactively")
	return cmd
}

// runQuery loads one page for state and prints it. A successful first page
// becomes the last used search.
func runQuery(ctx context.Context, a *app, state model.QueryState, out io.Writer) error {
	outcome := a.newLoader().Load(ctx, state)
	if outcome.Err != nil {
		if msg := outcome.Kind.Message(); msg != "" {
			return fmt.Errorf("%s: %w", strings.TrimSuffix(msg, "."), outcome.Err)
		}
		return outcome.Err
	}
	if state.Page == 1 {
		a.prefs.SaveLastUsedSettings(state.Settings())
	}
	renderResults(out, state, outcome.Result, a.builder.PageSize(state.View), a.wishlist.IsMember)
	return nil
}

// genrePicker asks for one genre with a searchable prompt.
func genrePicker() (int, error) {
	genres := model.Genres()
	prompt := promptui.Select{
		Label: "Genre",
		Items: genres,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   "▸ {{ .Name | cyan }}",
			Inactive: "  {{ .Name }}",
			Selected: "Genre: {{ .Name | green }}",
		},
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(genres[index].Name), strings.ToLower(strings.TrimSpace(input)))
		},
	}
	i, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return 0, errors.New("genre selection cancelled")
		}
		return 0, fmt.Errorf("genre prompt failed: %w", err)
	}
	return genres[i].ID, nil
}
