package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	MinRating = 0.0
	MaxRating = 10.0
	MinYear   = 1900
)

type ViewMode string

const (
	ViewGrid  ViewMode = "grid"
	ViewTable ViewMode = "table"
)

func (v ViewMode) Valid() bool {
	return v == ViewGrid || v == ViewTable
}

// ParseViewMode accepts "grid" or "table" in any case.
func ParseViewMode(value string) (ViewMode, error) {
	mode := ViewMode(strings.ToLower(strings.TrimSpace(value)))
	if !mode.Valid() {
		return "", fmt.Errorf("unknown view mode %q", value)
	}
	return mode, nil
}

type SortKey string

const (
	SortPopularityDesc  SortKey = "popularity.desc"
	SortPopularityAsc   SortKey = "popularity.asc"
	SortRatingDesc      SortKey = "vote_average.desc"
	SortRatingAsc       SortKey = "vote_average.asc"
	SortReleaseDateDesc SortKey = "release_date.desc"
	SortReleaseDateAsc  SortKey = "release_date.asc"

	DefaultSort = SortPopularityDesc
)

var sortOrder = []SortKey{
	SortPopularityDesc,
	SortPopularityAsc,
	SortRatingDesc,
	SortRatingAsc,
	SortReleaseDateDesc,
	SortReleaseDateAsc,
}

var sortLabels = map[SortKey]string{
	SortPopularityDesc:  "Most popular",
	SortPopularityAsc:   "Least popular",
	SortRatingDesc:      "Highest rated",
	SortRatingAsc:       "Lowest rated",
	SortReleaseDateDesc: "Newest",
	SortReleaseDateAsc:  "Oldest",
}

// SortKeys returns every supported sort key in display order.
func SortKeys() []SortKey {
	return slices.Clone(sortOrder)
}

func (s SortKey) Valid() bool {
	_, ok := sortLabels[s]
	return ok
}

func (s SortKey) Label() string {
	if label, ok := sortLabels[s]; ok {
		return label
	}
	return string(s)
}

// Next cycles through the sort keys in display order.
func (s SortKey) Next() SortKey {
	i := slices.Index(sortOrder, s)
	return sortOrder[(i+1)%len(sortOrder)]
}

// Range is an inclusive [Min, Max] pair. It serializes as a two element
// JSON array.
type Range[T int | float64] struct {
	Min T
	Max T
}

func (r Range[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]T{r.Min, r.Max})
}

func (r *Range[T]) UnmarshalJSON(data []byte) error {
	var pair [2]T
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

func (r Range[T]) String() string {
	return fmt.Sprintf("%v-%v", r.Min, r.Max)
}

func DefaultRatingRange() Range[float64] {
	return Range[float64]{Min: MinRating, Max: MaxRating}
}

func DefaultYearRange(now time.Time) Range[int] {
	return Range[int]{Min: MinYear, Max: now.Year()}
}

// QueryState is the current search/filter/sort/pagination intent.
type QueryState struct {
	Query  string
	Genres []int
	Rating Range[float64]
	Year   Range[int]
	Sort   SortKey
	Page   int
	View   ViewMode
}

// DefaultQueryState is discover mode, no filters, first page, grid view.
func DefaultQueryState(now time.Time) QueryState {
	return QueryState{
		Rating: DefaultRatingRange(),
		Year:   DefaultYearRange(now),
		Sort:   DefaultSort,
		Page:   1,
		View:   ViewGrid,
	}
}

// IsSearch reports whether the state targets the free-text search endpoint.
func (q QueryState) IsSearch() bool {
	return strings.TrimSpace(q.Query) != ""
}

// SameQuery reports whether two states describe the same result stream,
// ignoring the page. Genre order does not matter.
func (q QueryState) SameQuery(other QueryState) bool {
	if strings.TrimSpace(q.Query) != strings.TrimSpace(other.Query) {
		return false
	}
	if q.Rating != other.Rating || q.Year != other.Year || q.Sort != other.Sort || q.View != other.View {
		return false
	}
	return slices.Equal(SortedGenres(q.Genres), SortedGenres(other.Genres))
}

func (q QueryState) HasGenre(id int) bool {
	return slices.Contains(q.Genres, id)
}

// ToggleGenre adds the genre at the end of the selection or removes it.
// The returned state starts again from page 1.
func (q QueryState) ToggleGenre(id int) QueryState {
	next := q
	if i := slices.Index(q.Genres, id); i >= 0 {
		next.Genres = slices.Delete(slices.Clone(q.Genres), i, i+1)
	} else {
		next.Genres = append(slices.Clone(q.Genres), id)
	}
	next.Page = 1
	return next
}

// Settings extracts the persisted subset of the state.
func (q QueryState) Settings() SearchSettings {
	return SearchSettings{
		Query:  q.Query,
		Genres: slices.Clone(q.Genres),
		Rating: q.Rating,
		Year:   q.Year,
		Sort:   q.Sort,
	}
}

// Preset extracts the filter bundle of the state.
func (q QueryState) Preset() FilterPreset {
	return FilterPreset{
		Genres: slices.Clone(q.Genres),
		Rating: q.Rating,
		Year:   q.Year,
		Sort:   q.Sort,
	}
}

// WithSettings applies persisted settings and resets the page.
func (q QueryState) WithSettings(s SearchSettings) QueryState {
	q.Query = s.Query
	q.Genres = slices.Clone(s.Genres)
	q.Rating = s.Rating
	q.Year = s.Year
	q.Sort = s.Sort
	q.Page = 1
	return q
}

// WithPreset applies a filter bundle, keeping the free-text query.
func (q QueryState) WithPreset(p FilterPreset) QueryState {
	q.Genres = slices.Clone(p.Genres)
	q.Rating = p.Rating
	q.Year = p.Year
	q.Sort = p.Sort
	q.Page = 1
	return q
}

// SortedGenres returns an ascending copy of the genre ids.
func SortedGenres(genres []int) []int {
	out := slices.Clone(genres)
	slices.Sort(out)
	return out
}

// GenreNames maps ids to labels, skipping unknown ids.
func GenreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := genreLabels[id]; ok {
			names = append(names, label)
		}
	}
	return names
}

// ResultSet is the reconciled output of a QueryState.
type ResultSet struct {
	Items        []CatalogItem
	Page         int
	TotalPages   int
	TotalResults int
	HasMore      bool
}
