package model

import (
	"sort"
	"strings"
)

const (
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	PlaceholderImage    = "placeholder://poster"
)

// genreLabels maps TMDB movie genre ids to display labels.
var genreLabels = map[int]string{
	28: "Action", 12: "Adventure", 16: "Animation", 35: "Comedy",
	80: "Crime", 99: "Documentary", 18: "Drama", 10751: "Family",
	14: "Fantasy", 36: "History", 27: "Horror", 10402: "Music",
	9648: "Mystery", 10749: "Romance", 878: "Science Fiction",
	10770: "TV Movie", 53: "Thriller", 10752: "War", 37: "Western",
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreLabel returns the label for a genre id and whether it is known.
func GenreLabel(id int) (string, bool) {
	label, ok := genreLabels[id]
	return label, ok
}

// Genres returns the static genre table sorted by label.
func Genres() []Genre {
	out := make([]Genre, 0, len(genreLabels))
	for id, name := range genreLabels {
		out = append(out, Genre{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// RawMovie is a single entry of a TMDB list response.
type RawMovie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    *string `json:"poster_path"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids"`
}

// PageResponse is the envelope TMDB returns for every paged list endpoint.
type PageResponse struct {
	Page         int        `json:"page"`
	Results      []RawMovie `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// MovieDetail is the subset of /movie/{id} the client renders.
type MovieDetail struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	Tagline       string  `json:"tagline"`
	PosterPath    *string `json:"poster_path"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	Runtime       int     `json:"runtime"`
	Status        string  `json:"status"`
	Homepage      string  `json:"homepage"`
	Genres        []Genre `json:"genres"`
}

// Raw converts the detail payload into the list shape so it can go through
// NewCatalogItem like any other result.
func (d MovieDetail) Raw() RawMovie {
	ids := make([]int, 0, len(d.Genres))
	for _, g := range d.Genres {
		ids = append(ids, g.ID)
	}
	return RawMovie{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Overview:      d.Overview,
		PosterPath:    d.PosterPath,
		ReleaseDate:   d.ReleaseDate,
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Popularity:    d.Popularity,
		GenreIDs:      ids,
	}
}

// CatalogItem is a movie as displayed by the client. It is immutable once
// built, except for Rank which home sections assign.
type CatalogItem struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`
	Rating        float64  `json:"vote_average"`
	Popularity    float64  `json:"popularity,omitempty"`
	GenreIDs      []int    `json:"genre_ids"`
	Genres        []string `json:"genres"`
	Image         string   `json:"image"`
	Rank          int      `json:"rank,omitempty"`
}

// NewCatalogItem maps a raw upstream movie to a CatalogItem. Unknown genre
// ids are dropped and a missing poster falls back to PlaceholderImage.
func NewCatalogItem(raw RawMovie, imageBaseURL string) CatalogItem {
	if imageBaseURL == "" {
		imageBaseURL = DefaultImageBaseURL
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = strings.TrimSpace(raw.OriginalTitle)
	}

	image := PlaceholderImage
	if raw.PosterPath != nil && strings.TrimSpace(*raw.PosterPath) != "" {
		image = strings.TrimRight(imageBaseURL, "/") + "/" + strings.TrimLeft(*raw.PosterPath, "/")
	}

	genres := make([]string, 0, len(raw.GenreIDs))
	ids := make([]int, 0, len(raw.GenreIDs))
	for _, id := range raw.GenreIDs {
		ids = append(ids, id)
		if label, ok := genreLabels[id]; ok {
			genres = append(genres, label)
		}
	}

	return CatalogItem{
		ID:            raw.ID,
		Title:         title,
		OriginalTitle: raw.OriginalTitle,
		Overview:      raw.Overview,
		ReleaseDate:   raw.ReleaseDate,
		Rating:        raw.VoteAverage,
		Popularity:    raw.Popularity,
		GenreIDs:      ids,
		Genres:        genres,
		Image:         image,
	}
}

// NewCatalogItems maps a slice of raw movies in order.
func NewCatalogItems(raw []RawMovie, imageBaseURL string) []CatalogItem {
	items := make([]CatalogItem, 0, len(raw))
	for _, movie := range raw {
		items = append(items, NewCatalogItem(movie, imageBaseURL))
	}
	return items
}

// Year returns the release year or an empty string.
func (c CatalogItem) Year() string {
	if len(c.ReleaseDate) >= 4 {
		return c.ReleaseDate[:4]
	}
	return ""
}

func (c CatalogItem) HasPoster() bool {
	return c.Image != PlaceholderImage
}
