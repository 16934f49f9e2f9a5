// Package query turns a QueryState into a request against the TMDB catalog.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tmdb-finder-cli/model"
)

const (
	SearchEndpoint   = "/search/movie"
	DiscoverEndpoint = "/discover/movie"

	UpstreamPageSize     = 20
	DefaultGridPageSize  = 20
	DefaultTablePageSize = 5
	DefaultLanguage      = "en-US"
)

// ErrPrecondition marks a QueryState the caller should never have built.
var ErrPrecondition = errors.New("query precondition violated")

// PreconditionError describes which field of the state is invalid.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrPrecondition, e.Field, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

type Mode int

const (
	ModeDiscover Mode = iota
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "discover"
}

// Request is a fully resolved catalog request. Params never carry the API
// key; URL adds it.
type Request struct {
	Mode     Mode
	Endpoint string
	Params   url.Values

	// UpstreamPage is the TMDB page holding the local page; Offset and
	// PageSize select the local page inside it.
	UpstreamPage int
	Offset       int
	PageSize     int
}

// URL renders the request against baseURL.
func (r Request) URL(baseURL string, apiKey string) string {
	params := url.Values{}
	for k, v := range r.Params {
		params[k] = append([]string(nil), v...)
	}
	if apiKey != "" {
		params.Set("api_key", apiKey)
	}
	return strings.TrimRight(baseURL, "/") + r.Endpoint + "?" + params.Encode()
}

// Key identifies the upstream call, independent of the API key.
func (r Request) Key() string {
	return r.Endpoint + "?" + r.Params.Encode()
}

// Builder holds the paging and locale settings used for every request.
type Builder struct {
	Language      string
	GridPageSize  int
	TablePageSize int
	Now           func() time.Time
}

func NewBuilder(language string) Builder {
	return Builder{
		Language:      language,
		GridPageSize:  DefaultGridPageSize,
		TablePageSize: DefaultTablePageSize,
		Now:           time.Now,
	}
}

// PageSize is the locally effective page size for a view mode.
func (b Builder) PageSize(view model.ViewMode) int {
	if view == model.ViewTable {
		if b.TablePageSize > 0 {
			return min(b.TablePageSize, UpstreamPageSize)
		}
		return DefaultTablePageSize
	}
	if b.GridPageSize > 0 {
		return min(b.GridPageSize, UpstreamPageSize)
	}
	return DefaultGridPageSize
}

// Build maps the state to a request. The state must already be clamped;
// violations come back as *PreconditionError.
func (b Builder) Build(state model.QueryState) (Request, error) {
	if err := b.Validate(state); err != nil {
		return Request{}, err
	}

	size := b.PageSize(state.View)
	first := (state.Page - 1) * size
	req := Request{
		UpstreamPage: first/UpstreamPageSize + 1,
		Offset:       first % UpstreamPageSize,
		PageSize:     size,
		Params:       url.Values{},
	}

	language := b.Language
	if language == "" {
		language = DefaultLanguage
	}
	req.Params.Set("language", language)
	req.Params.Set("page", strconv.Itoa(req.UpstreamPage))

	if state.IsSearch() {
		// search/movie ignores discover filters upstream, so none are sent.
		req.Mode = ModeSearch
		req.Endpoint = SearchEndpoint
		req.Params.Set("query", strings.TrimSpace(state.Query))
		req.Params.Set("include_adult", "false")
		return req, nil
	}

	req.Mode = ModeDiscover
	req.Endpoint = DiscoverEndpoint
	req.Params.Set("include_adult", "false")
	req.Params.Set("sort_by", string(state.Sort))
	if len(state.Genres) > 0 {
		ids := model.SortedGenres(state.Genres)
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, strconv.Itoa(id))
		}
		req.Params.Set("with_genres", strings.Join(parts, ","))
	}
	req.Params.Set("vote_average.gte", formatRating(state.Rating.Min))
	req.Params.Set("vote_average.lte", formatRating(state.Rating.Max))
	req.Params.Set("primary_release_date.gte", fmt.Sprintf("%04d-01-01", state.Year.Min))
	req.Params.Set("primary_release_date.lte", fmt.Sprintf("%04d-12-31", state.Year.Max))
	return req, nil
}

// Validate checks the preconditions Build relies on.
func (b Builder) Validate(state model.QueryState) error {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	currentYear := now().Year()

	if state.Page < 1 {
		return &PreconditionError{Field: "page", Reason: fmt.Sprintf("must be >= 1, got %d", state.Page)}
	}
	if !state.View.Valid() {
		return &PreconditionError{Field: "view", Reason: fmt.Sprintf("unknown mode %q", state.View)}
	}
	if !state.Sort.Valid() {
		return &PreconditionError{Field: "sort", Reason: fmt.Sprintf("unknown key %q", state.Sort)}
	}
	r := state.Rating
	if r.Min > r.Max {
		return &PreconditionError{Field: "rating", Reason: fmt.Sprintf("min %v > max %v", r.Min, r.Max)}
	}
	if r.Min < model.MinRating || r.Max > model.MaxRating {
		return &PreconditionError{Field: "rating", Reason: fmt.Sprintf("range %v outside [0,10]", r)}
	}
	y := state.Year
	if y.Min > y.Max {
		return &PreconditionError{Field: "year", Reason: fmt.Sprintf("min %d > max %d", y.Min, y.Max)}
	}
	if y.Min < model.MinYear || y.Max > currentYear {
		return &PreconditionError{Field: "year", Reason: fmt.Sprintf("range %v outside [%d,%d]", y, model.MinYear, currentYear)}
	}
	return nil
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
