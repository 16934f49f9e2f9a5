package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/service"
)

// loadMoreThreshold is how close to the end of the grid the cursor must be
// before the next page is requested.
const loadMoreThreshold = 3

var ratingSteps = []float64{0, 5, 6, 7, 8, 9}

type yearPreset struct {
	label string
	span  func(current int) model.Range[int]
}

var yearPresets = []yearPreset{
	{"any year", func(current int) model.Range[int] { return model.Range[int]{Min: model.MinYear, Max: current} }},
	{"last 5 years", func(current int) model.Range[int] { return model.Range[int]{Min: current - 4, Max: current} }},
	{"2010s", func(int) model.Range[int] { return model.Range[int]{Min: 2010, Max: 2019} }},
	{"2000s", func(int) model.Range[int] { return model.Range[int]{Min: 2000, Max: 2009} }},
	{"1990s", func(int) model.Range[int] { return model.Range[int]{Min: 1990, Max: 1999} }},
	{"before 1990", func(int) model.Range[int] { return model.Range[int]{Min: model.MinYear, Max: 1989} }},
}

type recordKind int

const (
	recordNone recordKind = iota
	recordSearch
	recordFilters
)

// applyQuery makes next the current intent and starts loading it.
func (m appModel) applyQuery(next model.QueryState, record recordKind) (appModel, tea.Cmd) {
	switch record {
	case recordSearch:
		if next.IsSearch() {
			m.prefs.RecordSearch(next.Query)
		}
	case recordFilters:
		m.prefs.RecordFilterPreset(next.Preset())
	}
	m.query = next
	m.loading = true
	m.loadErr = nil
	m.status = ""
	return m, tea.Batch(m.loadResultsCmd(next), m.spinner.Tick)
}

func (m appModel) applySearch(text string) (appModel, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == strings.TrimSpace(m.query.Query) && m.result.Page > 0 {
		return m, nil
	}
	next := m.query
	next.Query = text
	next.Page = 1
	return m.applyQuery(next, recordSearch)
}

func (m appModel) toggleView() (appModel, tea.Cmd) {
	next := m.query
	if next.View == model.ViewGrid {
		next.View = model.ViewTable
	} else {
		next.View = model.ViewGrid
	}
	next.Page = 1
	return m.applyQuery(next, recordNone)
}

func (m appModel) cycleSort() (appModel, tea.Cmd) {
	next := m.query
	next.Sort = next.Sort.Next()
	next.Page = 1
	return m.applyQuery(next, recordFilters)
}

func (m appModel) cycleRating() (appModel, tea.Cmd) {
	i := slices.Index(ratingSteps, m.query.Rating.Min)
	next := m.query
	next.Rating = model.Range[float64]{Min: ratingSteps[(i+1)%len(ratingSteps)], Max: model.MaxRating}
	next.Page = 1
	return m.applyQuery(next, recordFilters)
}

func (m appModel) cycleYear() (appModel, tea.Cmd) {
	current := m.now().Year()
	i := yearPresetIndex(m.query.Year, current)
	next := m.query
	next.Year = yearPresets[(i+1)%len(yearPresets)].span(current)
	next.Page = 1
	return m.applyQuery(next, recordFilters)
}

func (m appModel) clearFilters() (appModel, tea.Cmd) {
	next := model.DefaultQueryState(m.now())
	next.View = m.query.View
	return m.applyQuery(next, recordNone)
}

// pageTo moves the table view to page when it exists.
func (m appModel) pageTo(page int) (appModel, tea.Cmd) {
	if m.query.View != model.ViewTable || m.loading || page < 1 {
		return m, nil
	}
	if m.result.TotalPages > 0 && page > m.result.TotalPages {
		return m, nil
	}
	next := m.query
	next.Page = page
	return m.applyQuery(next, recordNone)
}

// maybeLoadMore requests the next grid page once the cursor nears the end.
// Only one page request runs at a time.
func (m appModel) maybeLoadMore() (appModel, tea.Cmd) {
	if m.query.View != model.ViewGrid || m.loading || !m.result.HasMore || m.loadErr != nil {
		return m, nil
	}
	items := len(m.resultList.Items())
	if items == 0 || m.resultList.IsFiltered() || m.resultList.Index() < items-loadMoreThreshold {
		return m, nil
	}
	next := m.query
	next.Page = m.result.Page + 1
	return m.applyQuery(next, recordNone)
}

func (m appModel) retry() (appModel, tea.Cmd) {
	return m.applyQuery(m.query, recordNone)
}

func (m appModel) handleResults(msg resultsMsg) (tea.Model, tea.Cmd) {
	outcome := msg.outcome
	if outcome.Stale {
		return m, nil
	}
	if !sameRequest(outcome.State, m.query) {
		// An older command won the race to the loader. Ask again for the
		// current intent.
		if m.loading {
			return m, m.loadResultsCmd(m.query)
		}
		return m, nil
	}

	m.loading = false
	if outcome.Err != nil {
		m.loadErr = outcome.Err
		m.loadKind = outcome.Kind
		if outcome.Kind == service.KindConfiguration || outcome.Kind == service.KindAuth {
			m.err = outcome.Err
			m.errKind = outcome.Kind
			m.lastState = stateBrowse
			m.state = stateError
		}
		return m, nil
	}

	fresh := m.result.Page == 0 || outcome.Result.Page == 1 || m.query.View == model.ViewTable
	m.loadErr = nil
	m.result = outcome.Result
	m.refreshResults(fresh)
	if outcome.State.Page == 1 {
		m.prefs.SaveLastUsedSettings(outcome.State.Settings())
	}
	return m, nil
}

func (m *appModel) refreshResults(fresh bool) {
	if m.query.View == model.ViewTable {
		m.resultTable.SetRows(buildResultRows(m.result, m.loader.PageSize(model.ViewTable), m.wishlist))
		if fresh {
			m.resultTable.SetCursor(0)
		}
		return
	}
	index := m.resultList.Index()
	m.resultList.SetItems(buildMovieItems(m.result.Items, m.wishlist))
	if fresh {
		m.resultList.Select(0)
	} else if index < len(m.result.Items) {
		m.resultList.Select(index)
	}
}

func (m appModel) selectedResult() (model.CatalogItem, bool) {
	if m.query.View == model.ViewTable {
		i := m.resultTable.Cursor()
		if i < 0 || i >= len(m.result.Items) {
			return model.CatalogItem{}, false
		}
		return m.result.Items[i], true
	}
	item, ok := m.resultList.SelectedItem().(movieItem)
	if !ok {
		return model.CatalogItem{}, false
	}
	return item.movie, true
}

func sameRequest(a model.QueryState, b model.QueryState) bool {
	return a.Page == b.Page && a.SameQuery(b)
}

func yearPresetIndex(year model.Range[int], current int) int {
	for i, preset := range yearPresets {
		if preset.span(current) == year {
			return i
		}
	}
	return -1
}

func yearLabel(year model.Range[int], current int) string {
	if i := yearPresetIndex(year, current); i >= 0 {
		return yearPresets[i].label
	}
	return year.String()
}
