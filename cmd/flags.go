package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"tmdb-finder-cli/model"
)

// queryFlags are the filter flags shared by search and discover.
type queryFlags struct {
	genres []string
	rating string
	year   string
	sort   string
	page   int
	view   string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.genres, "genre", "g", nil, "genre name or id, repeatable (e.g. --genre comedy --genre 27)")
	cmd.Flags().StringVarP(&f.rating, "rating", "r", "", "minimum rating or range, e.g. 7 or 6.5-9")
	cmd.Flags().StringVarP(&f.year, "year", "y", "", "release year or range, e.g. 2019 or 1990-1999")
	cmd.Flags().StringVarP(&f.sort, "sort", "s", "", "sort key, e.g. popularity.desc or vote_average.desc")
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page to show")
	cmd.Flags().StringVar(&f.view, "view", "table", "paging mode: grid (20 per page) or table (5 per page)")
}

// filtered reports whether any filter flag was set explicitly.
func (f *queryFlags) filtered(cmd *cobra.Command) bool {
	for _, name := range []string{"genre", "rating", "year", "sort"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// state builds a clamped QueryState on top of base.
func (f *queryFlags) state(base model.QueryState, now time.Time) (model.QueryState, error) {
	state := base
	if len(f.genres) > 0 {
		ids, err := parseGenres(f.genres)
		if err != nil {
			return state, err
		}
		state.Genres = ids
	}
	if f.rating != "" {
		rating, err := parseRating(f.rating)
		if err != nil {
			return state, err
		}
		state.Rating = rating
	}
	if f.year != "" {
		year, err := parseYears(f.year, now.Year())
		if err != nil {
			return state, err
		}
		state.Year = year
	}
	if f.sort != "" {
		key, err := parseSort(f.sort)
		if err != nil {
			return state, err
		}
		state.Sort = key
	}
	view, err := model.ParseViewMode(f.view)
	if err != nil {
		return state, err
	}
	state.View = view
	if f.page < 1 {
		return state, fmt.Errorf("--page must be at least 1, got %d", f.page)
	}
	state.Page = f.page
	return state, nil
}

func parseGenres(values []string) ([]int, error) {
	genres := model.Genres()
	ids := make([]int, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		id, ok := lookupGenre(genres, value)
		if !ok {
			return nil, fmt.Errorf("unknown genre %q", value)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func lookupGenre(genres []model.Genre, value string) (int, bool) {
	if id, err := strconv.Atoi(value); err == nil {
		_, ok := model.GenreLabel(id)
		return id, ok
	}
	for _, genre := range genres {
		if strings.EqualFold(genre.Name, value) {
			return genre.ID, true
		}
	}
	return 0, false
}

func parseRating(value string) (model.Range[float64], error) {
	lo, hi, isRange := strings.Cut(value, "-")
	from, err := cast.ToFloat64E(strings.TrimSpace(lo))
	if err != nil {
		return model.Range[float64]{}, fmt.Errorf("invalid rating %q", value)
	}
	to := model.MaxRating
	if isRange {
		if to, err = cast.ToFloat64E(strings.TrimSpace(hi)); err != nil {
			return model.Range[float64]{}, fmt.Errorf("invalid rating %q", value)
		}
	}
	if from < model.MinRating || to > model.MaxRating || from > to {
		return model.Range[float64]{}, fmt.Errorf("rating %q must lie within %.0f-%.0f", value, model.MinRating, model.MaxRating)
	}
	return model.Range[float64]{Min: from, Max: to}, nil
}

func parseYears(value string, currentYear int) (model.Range[int], error) {
	lo, hi, isRange := strings.Cut(value, "-")
	from, err := cast.ToIntE(strings.TrimSpace(lo))
	if err != nil {
		return model.Range[int]{}, fmt.Errorf("invalid year %q", value)
	}
	to := from
	if isRange {
		if to, err = cast.ToIntE(strings.TrimSpace(hi)); err != nil {
			return model.Range[int]{}, fmt.Errorf("invalid year %q", value)
		}
	}
	if from < model.MinYear || to > currentYear || from > to {
		return model.Range[int]{}, fmt.Errorf("years %q must lie within %d-%d", value, model.MinYear, currentYear)
	}
	return model.Range[int]{Min: from, Max: to}, nil
}

func parseSort(value string) (model.SortKey, error) {
	key := model.SortKey(strings.ToLower(strings.TrimSpace(value)))
	if key.Valid() {
		return key, nil
	}
	for _, candidate := range model.SortKeys() {
		if strings.EqualFold(candidate.Label(), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", value)
}
