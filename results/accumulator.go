// Package results reconciles catalog pages into the result set the user sees.
package results

import (
	"slices"

	"tmdb-finder-cli/model"
)

// Page is one upstream response plus the window of it that belongs to the
// local page.
type Page struct {
	Response model.PageResponse
	Offset   int
	Size     int
}

// Accumulator owns the displayed result set. Grid mode appends pages of the
// same query; every other transition replaces the items.
type Accumulator struct {
	imageBaseURL string
	current      model.ResultSet
	last         *model.QueryState
}

func NewAccumulator(imageBaseURL string) *Accumulator {
	return &Accumulator{imageBaseURL: imageBaseURL}
}

// Reconcile merges page into the result set according to state and returns
// the new set.
func (a *Accumulator) Reconcile(page Page, state model.QueryState) model.ResultSet {
	incoming := model.NewCatalogItems(window(page), a.imageBaseURL)

	var items []model.CatalogItem
	if a.appends(state) {
		items = slices.Clone(a.current.Items)
	}
	seen := make(map[int]struct{}, len(items)+len(incoming))
	for _, item := range items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range incoming {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	if items == nil {
		items = []model.CatalogItem{}
	}

	size := page.Size
	if size <= 0 {
		size = len(page.Response.Results)
	}
	totalPages := TotalPages(page.Response.TotalResults, size)

	snapshot := state
	snapshot.Genres = slices.Clone(state.Genres)
	a.last = &snapshot
	a.current = model.ResultSet{
		Items:        items,
		Page:         state.Page,
		TotalPages:   totalPages,
		TotalResults: page.Response.TotalResults,
		HasMore:      state.Page < totalPages,
	}
	return a.Current()
}

// Current returns a copy of the result set.
func (a *Accumulator) Current() model.ResultSet {
	out := a.current
	out.Items = slices.Clone(a.current.Items)
	if out.Items == nil {
		out.Items = []model.CatalogItem{}
	}
	return out
}

// LastState is the state of the most recent reconcile, if any.
func (a *Accumulator) LastState() (model.QueryState, bool) {
	if a.last == nil {
		return model.QueryState{}, false
	}
	return *a.last, true
}

func (a *Accumulator) Reset() {
	a.current = model.ResultSet{}
	a.last = nil
}

func (a *Accumulator) appends(state model.QueryState) bool {
	if state.View != model.ViewGrid || state.Page <= 1 || a.last == nil {
		return false
	}
	return state.SameQuery(*a.last)
}

// TotalPages is ceil(totalResults / pageSize).
func TotalPages(totalResults int, pageSize int) int {
	if totalResults <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalResults + pageSize - 1) / pageSize
}

func window(page Page) []model.RawMovie {
	raw := page.Response.Results
	if page.Size <= 0 {
		return raw
	}
	start := min(max(page.Offset, 0), len(raw))
	end := min(start+page.Size, len(raw))
	return raw[start:end]
}
