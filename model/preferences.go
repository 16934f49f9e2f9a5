package model

import (
	"slices"
	"time"
)

// WishlistEntry is a favorited item stored with its full display data so
// the wishlist renders without calling the catalog.
type WishlistEntry struct {
	CatalogItem
	AddedAt time.Time `json:"added_at"`
}

type SearchHistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// FilterPreset is a reusable genre/rating/year/sort bundle.
type FilterPreset struct {
	Genres []int          `json:"genres"`
	Rating Range[float64] `json:"rating"`
	Year   Range[int]     `json:"year"`
	Sort   SortKey        `json:"sortBy"`
}

type RecentFilterEntry struct {
	FilterPreset
	Timestamp time.Time `json:"timestamp"`
}

// SearchSettings is the last used search, restored on the next session.
type SearchSettings struct {
	Query  string
	Genres []int
	Rating Range[float64]
	Year   Range[int]
	Sort   SortKey
}

func DefaultSearchSettings(now time.Time) SearchSettings {
	return SearchSettings{
		Genres: []int{},
		Rating: DefaultRatingRange(),
		Year:   DefaultYearRange(now),
		Sort:   DefaultSort,
	}
}

func (s SearchSettings) Equal(other SearchSettings) bool {
	return s.Query == other.Query &&
		slices.Equal(s.Genres, other.Genres) &&
		s.Rating == other.Rating &&
		s.Year == other.Year &&
		s.Sort == other.Sort
}
