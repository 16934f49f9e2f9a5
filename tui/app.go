package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"tmdb-finder-cli/debounce"
	"tmdb-finder-cli/model"
	"tmdb-finder-cli/results"
	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
)

type appState int

const (
	stateLoadingHome appState = iota
	stateHome
	stateSection
	stateBrowse
	stateGenres
	stateWishlist
	stateHistory
	stateLoadingDetail
	stateDetail
	stateError
)

var wishlistSorts = []store.WishlistSort{
	store.WishlistByAdded,
	store.WishlistByTitle,
	store.WishlistByRating,
	store.WishlistByReleaseDate,
}

// Catalog is the part of the TMDB client the UI calls directly. Paged
// results go through the results.Loader instead.
type Catalog interface {
	Sections(ctx context.Context, specs []service.SectionSpec, limit int) ([]service.Section, error)
	Detail(ctx context.Context, movieID int) (model.MovieDetail, error)
	Similar(ctx context.Context, movieID int, page int) (model.PageResponse, error)
	ImageBaseURL() string
}

// Options wires the UI to its collaborators. Cache may be nil.
type Options struct {
	Catalog  Catalog
	Loader   *results.Loader
	Wishlist *store.WishlistStore
	Prefs    *store.PreferenceCache
	Cache    *store.Cache
	Log      *zap.Logger

	Language       string
	DefaultView    model.ViewMode
	SearchDebounce time.Duration
	SectionLimit   int
	Now            func() time.Time
}

type appModel struct {
	catalog  Catalog
	loader   *results.Loader
	wishlist *store.WishlistStore
	prefs    *store.PreferenceCache
	cache    *store.Cache
	log      *zap.Logger

	language     string
	sectionLimit int
	now          func() time.Time

	events      chan tea.Msg
	debouncer   *debounce.Debouncer
	unsubscribe func()

	state     appState
	lastState appState
	err       error
	errKind   service.ErrorKind

	width  int
	height int

	query    model.QueryState
	result   model.ResultSet
	loading  bool
	loadErr  error
	loadKind service.ErrorKind
	status   string

	sections []service.Section
	section  service.Section

	homeList    list.Model
	sectionList list.Model
	resultList  list.Model
	genreList   list.Model
	wishList    list.Model
	historyList list.Model
	resultTable table.Model
	searchInput textinput.Model
	detailView  viewport.Model

	detail        model.CatalogItem
	detailReturn  appState
	overlayReturn appState
	genresBefore  []int

	wishlistSort store.WishlistSort
	wishlistDesc bool

	spinner spinner.Model
}

func New(opts Options) tea.Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	limit := opts.SectionLimit
	if limit <= 0 {
		limit = 10
	}

	m := appModel{
		catalog:      opts.Catalog,
		loader:       opts.Loader,
		wishlist:     opts.Wishlist,
		prefs:        opts.Prefs,
		cache:        opts.Cache,
		log:          log,
		language:     opts.Language,
		sectionLimit: limit,
		now:          now,
		events:       make(chan tea.Msg, 16),
		debouncer:    debounce.New(opts.SearchDebounce),
		state:        stateLoadingHome,
		wishlistSort: store.WishlistByAdded,
		wishlistDesc: true,
	}

	m.query = model.DefaultQueryState(now()).WithSettings(m.prefs.LoadLastUsedSettings())
	if opts.DefaultView.Valid() {
		m.query.View = opts.DefaultView
	}
	m.loading = true

	m.homeList = newList("Home")
	m.homeList.SetFilteringEnabled(false)
	m.sectionList = newList("Section")
	m.resultList = newList("Results")
	m.resultList.SetFilteringEnabled(false)
	m.genreList = newList("Genres")
	m.wishList = newList("Wishlist")
	m.historyList = newList("History")

	m.resultTable = table.New(
		table.WithColumns(resultColumns(0)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	ti := textinput.New()
	ti.Placeholder = "Search movies"
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	ti.SetValue(m.query.Query)
	m.searchInput = ti

	m.detailView = viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	events := m.events
	m.unsubscribe = m.wishlist.Subscribe(func(change store.WishlistChange) {
		select {
		case events <- wishlistMsg{change: change}:
		default:
		}
	})

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadSectionsCmd(false),
		m.loadResultsCmd(m.query),
		waitForEvent(m.events),
		m.spinner.Tick,
	)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateBrowse && m.searchInput.Focused() {
			return m.handleSearchInput(msg)
		}
		if m.handleFilterInput(msg) {
			return m, nil
		}
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		m = next
		// fallthrough to component update
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoading() {
			return m, cmd
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.errKind = service.Classify(msg.err)
		if msg.returnStateSet {
			m.lastState = msg.returnState
		} else {
			m.lastState = recoverStateFrom(m.state)
		}
		m.state = stateError
		return m, nil

	case sectionsMsg:
		if msg.err != nil {
			if m.state == stateLoadingHome {
				m.err = msg.err
				m.errKind = service.Classify(msg.err)
				m.lastState = stateBrowse
				m.state = stateError
				return m, nil
			}
			m.status = "Failed to refresh home sections"
			return m, nil
		}
		m.sections = msg.sections
		m.homeList.SetItems(buildSectionItems(msg.sections))
		if msg.cached {
			m.status = "Showing cached home sections, the refresh failed"
		} else if m.state == stateHome {
			m.status = ""
		}
		if m.state == stateLoadingHome {
			m.state = stateHome
		}
		return m, nil

	case resultsMsg:
		return m.handleResults(msg)

	case detailMsg:
		if m.state != stateLoadingDetail {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.errKind = service.Classify(msg.err)
			m.lastState = m.detailReturn
			m.state = stateError
			return m, nil
		}
		m.detail = msg.item
		m.detailView.SetContent(msg.markdown)
		m.detailView.GotoTop()
		m.state = stateDetail
		return m, nil

	case searchMsg:
		next, cmd := m.applySearch(msg.query)
		return next, tea.Batch(cmd, waitForEvent(m.events))

	case wishlistMsg:
		m.refreshFavorites()
		verb := "Removed from"
		if msg.change.Added {
			verb = "Added to"
		}
		m.status = fmt.Sprintf("%s wishlist: %s", verb, msg.change.Item.Title)
		return m, waitForEvent(m.events)
	}

	var cmd tea.Cmd
	switch m.state {
	case stateHome:
		m.homeList, cmd = m.homeList.Update(msg)
	case stateSection:
		m.sectionList, cmd = m.sectionList.Update(msg)
	case stateBrowse:
		if m.query.View == model.ViewTable {
			m.resultTable, cmd = m.resultTable.Update(msg)
			return m, cmd
		}
		m.resultList, cmd = m.resultList.Update(msg)
		next, more := m.maybeLoadMore()
		return next, tea.Batch(cmd, more)
	case stateGenres:
		m.genreList, cmd = m.genreList.Update(msg)
	case stateWishlist:
		m.wishList, cmd = m.wishList.Update(msg)
	case stateHistory:
		m.historyList, cmd = m.historyList.Update(msg)
	case stateDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	header := m.headerView()
	switch m.state {
	case stateLoadingHome, stateLoadingDetail:
		return header + "\n\n" + m.loadingView()
	case stateHome:
		return header + "\n\n" + m.homeList.View()
	case stateSection:
		return header + "\n\n" + m.sectionList.View()
	case stateBrowse:
		return header + "\n\n" + m.browseView()
	case stateGenres:
		return header + "\n\n" + m.genreList.View()
	case stateWishlist:
		if len(m.wishList.Items()) == 0 {
			return header + "\n\n" + hint("Your wishlist is empty. Press f on a movie to add it.")
		}
		return header + "\n\n" + m.wishList.View()
	case stateHistory:
		if len(m.historyList.Items()) == 0 {
			return header + "\n\n" + hint("No searches or filters yet.")
		}
		return header + "\n\n" + m.historyList.View()
	case stateDetail:
		return header + "\n\n" + m.detailView.View()
	case stateError:
		return header + "\n\n" + m.errorView()
	default:
		return header
	}
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("TMDB Finder")
	sub := []string{}
	switch m.state {
	case stateBrowse, stateGenres:
		sub = m.queryMeta()
	case stateSection:
		sub = append(sub, "Section: "+m.section.Title)
	case stateWishlist:
		order := "asc"
		if m.wishlistDesc {
			order = "desc"
		}
		sub = append(sub, fmt.Sprintf("%d saved", len(m.wishList.Items())), fmt.Sprintf("Sort: %s %s", m.wishlistSort, order))
	case stateDetail:
		if m.wishlist.IsMember(m.detail.ID) {
			sub = append(sub, favoriteMark+" in wishlist")
		}
	}
	meta := strings.Join(sub, " • ")
	if meta != "" {
		meta = "\n" + lipgloss.NewStyle().Faint(true).Render(meta)
	}

	hints := "ctrl+c quit • esc back"
	switch m.state {
	case stateHome:
		hints = "ctrl+c quit • enter open section • tab browse • w wishlist • h history • ctrl+r refresh"
	case stateSection:
		hints = "ctrl+c quit • esc back • type to filter • enter details • ctrl+f favorite"
	case stateBrowse:
		hints = "ctrl+c quit • / search • g genres • r rating • y years • s sort • v view • f favorite • c clear • enter details • tab home"
		if m.query.View == model.ViewTable {
			hints += " • n/p page"
		}
	case stateGenres:
		hints = "ctrl+c quit • esc done • type to filter • enter toggle genre"
	case stateWishlist:
		hints = "ctrl+c quit • esc back • type to filter • enter details • ctrl+x remove • ctrl+s sort • ctrl+o order"
	case stateHistory:
		hints = "ctrl+c quit • esc back • type to filter • enter apply • ctrl+x clear"
	case stateDetail:
		hints = "ctrl+c quit • esc back • f favorite • o open in browser • ↑/↓ scroll"
	case stateError:
		hints = "ctrl+c quit • esc back"
		if m.errKind.Retryable() {
			hints += " • ctrl+r retry"
		}
	}

	filterLine := ""
	if listPtr := m.activeList(); listPtr != nil {
		if filter := listPtr.FilterValue(); filter != "" {
			filterLine = "\n" + hint(fmt.Sprintf("Filter: %s", filter))
		}
	}
	statusLine := ""
	if m.status != "" {
		statusLine = "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render(m.status)
	}
	return title + meta + filterLine + statusLine + "\n" + hint(hints)
}

func (m appModel) queryMeta() []string {
	sub := []string{}
	if m.query.IsSearch() {
		sub = append(sub, fmt.Sprintf("Search: %q", m.query.Query))
	} else {
		sub = append(sub, "Discover")
	}
	if names := model.GenreNames(m.query.Genres); len(names) > 0 {
		sub = append(sub, "Genres: "+strings.Join(names, ", "))
	}
	if m.query.Rating.Min > model.MinRating {
		sub = append(sub, fmt.Sprintf("Rating ≥ %.1f", m.query.Rating.Min))
	}
	sub = append(sub, "Years: "+yearLabel(m.query.Year, m.now().Year()))
	sub = append(sub, "Sort: "+m.query.Sort.Label())
	sub = append(sub, "View: "+string(m.query.View))
	if m.result.TotalResults > 0 {
		sub = append(sub, fmt.Sprintf("%d results", m.result.TotalResults))
	}
	return sub
}

func (m appModel) browseView() string {
	var b strings.Builder
	if m.searchInput.Focused() || m.searchInput.Value() != "" {
		b.WriteString(m.searchInput.View() + "\n")
	}
	if m.loading {
		b.WriteString(fmt.Sprintf("%s Loading movies\n", m.spinner.View()))
	}
	if m.loadErr != nil {
		banner := m.loadKind.Message()
		if m.loadKind.Retryable() {
			banner += " Press ctrl+r to retry."
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(banner) + "\n")
	}

	if !m.loading && m.result.Page > 0 && len(m.result.Items) == 0 {
		b.WriteString("\n" + hint("No movies match these filters. Press c to clear them."))
		return b.String()
	}
	if m.query.View == model.ViewTable {
		b.WriteString(m.resultTable.View())
		if m.result.TotalPages > 0 {
			b.WriteString("\n" + hint(fmt.Sprintf("Page %d of %d", m.result.Page, m.result.TotalPages)))
		}
		return b.String()
	}
	b.WriteString(m.resultList.View())
	if m.result.HasMore {
		b.WriteString("\n" + hint("Scroll down for more"))
	}
	return b.String()
}

func (m appModel) errorView() string {
	text := m.errKind.Message()
	if text == "" && m.err != nil {
		text = m.err.Error()
	}
	out := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(text)
	if m.err != nil && text != m.err.Error() {
		out += "\n" + hint(m.err.Error())
	}
	return out
}

func (m appModel) loadingView() string {
	title := "Loading"
	switch m.state {
	case stateLoadingHome:
		title = "Loading home sections"
	case stateLoadingDetail:
		title = "Loading movie details"
	}
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), title, hint("Fetching data..."))
}

func (m appModel) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.shutdown()
		return m, tea.Quit
	case tea.KeyEsc:
		m.debouncer.Stop()
		m.searchInput.Blur()
		m.searchInput.SetValue(m.query.Query)
		return m, nil
	case tea.KeyEnter:
		m.debouncer.Stop()
		m.searchInput.Blur()
		return m.applySearch(m.searchInput.Value())
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if value := m.searchInput.Value(); value != before {
		m.debouncer.Trigger(func() {
			m.post(searchMsg{query: value})
		})
	}
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.shutdown()
		return m, tea.Quit, true
	case "esc":
		if listPtr := m.activeList(); listPtr != nil {
			if listPtr.SettingFilter() || listPtr.IsFiltered() {
				listPtr.ResetFilter()
				return m, nil, true
			}
		}
		next, cmd := m.goBack()
		return next, cmd, true
	case "tab":
		switch m.state {
		case stateHome:
			m.state = stateBrowse
			return m, nil, true
		case stateBrowse:
			if len(m.sections) == 0 {
				m.state = stateLoadingHome
				return m, tea.Batch(m.loadSectionsCmd(false), m.spinner.Tick), true
			}
			m.state = stateHome
			return m, nil, true
		}
	case "ctrl+r":
		switch m.state {
		case stateHome:
			m.status = "Refreshing home sections"
			return m, m.loadSectionsCmd(true), true
		case stateBrowse:
			next, cmd := m.retry()
			return next, cmd, true
		case stateError:
			if !m.errKind.Retryable() {
				return m, nil, true
			}
			m.state = m.lastState
			if m.lastState == stateBrowse {
				next, cmd := m.retry()
				return next, cmd, true
			}
			return m, nil, true
		}
	case "w":
		if m.state == stateHome || m.state == stateBrowse || m.state == stateDetail {
			return m.openWishlist(), nil, true
		}
	case "h":
		if m.state == stateHome || m.state == stateBrowse {
			return m.openHistory(), nil, true
		}
	case "ctrl+f":
		if m.state == stateSection {
			if item, ok := m.sectionList.SelectedItem().(movieItem); ok {
				m.wishlist.Toggle(item.movie)
				m.refreshFavorites()
			}
			return m, nil, true
		}
	}

	switch m.state {
	case stateBrowse:
		return m.handleBrowseKey(msg)
	case stateDetail:
		switch msg.String() {
		case "f":
			m.wishlist.Toggle(m.detail)
			m.refreshFavorites()
			return m, nil, true
		case "o":
			return m, openURLCmd(movieURL(m.detail.ID)), true
		}
	case stateWishlist:
		switch msg.String() {
		case "ctrl+x":
			if item, ok := m.wishList.SelectedItem().(wishlistItem); ok {
				m.wishlist.Remove(item.entry.ID)
				m.refreshFavorites()
			}
			return m, nil, true
		case "ctrl+s":
			i := slices.Index(wishlistSorts, m.wishlistSort)
			m.wishlistSort = wishlistSorts[(i+1)%len(wishlistSorts)]
			m.refreshWishlist()
			return m, nil, true
		case "ctrl+o":
			m.wishlistDesc = !m.wishlistDesc
			m.refreshWishlist()
			return m, nil, true
		}
	case stateHistory:
		if msg.String() == "ctrl+x" {
			m.prefs.ClearHistory()
			m.prefs.ClearRecentFilters()
			m.historyList.SetItems(nil)
			m.status = "History cleared"
			return m, nil, true
		}
	}

	if msg.Type == tea.KeyEnter {
		switch m.state {
		case stateHome:
			item, ok := m.homeList.SelectedItem().(sectionItem)
			if !ok {
				return m, nil, true
			}
			m.section = item.section
			m.sectionList.Title = item.section.Title
			m.sectionList.ResetFilter()
			m.sectionList.SetItems(buildMovieItems(item.section.Items, m.wishlist))
			m.sectionList.Select(0)
			m.state = stateSection
			return m, nil, true
		case stateSection:
			item, ok := m.sectionList.SelectedItem().(movieItem)
			if !ok {
				return m, nil, true
			}
			return m.openDetail(item.movie), m.detailCmd(item.movie), true
		case stateGenres:
			item, ok := m.genreList.SelectedItem().(genreItem)
			if !ok {
				return m, nil, true
			}
			next, cmd := m.applyQuery(m.query.ToggleGenre(item.genre.ID), recordNone)
			next.genreList.SetItems(buildGenreItems(next.query))
			return next, cmd, true
		case stateWishlist:
			item, ok := m.wishList.SelectedItem().(wishlistItem)
			if !ok {
				return m, nil, true
			}
			return m.openDetail(item.entry.CatalogItem), m.detailCmd(item.entry.CatalogItem), true
		case stateHistory:
			item, ok := m.historyList.SelectedItem().(historyItem)
			if !ok {
				return m, nil, true
			}
			next := m.query
			if item.search != nil {
				next.Query = item.search.Query
				next.Page = 1
			} else {
				// Search ignores filters, so a preset implies discover.
				next = next.WithPreset(item.filter.FilterPreset)
				next.Query = ""
			}
			m.state = stateBrowse
			m.searchInput.SetValue(next.Query)
			updated, cmd := m.applyQuery(next, recordNone)
			return updated, cmd, true
		}
	}
	return m, nil, false
}

func (m appModel) handleBrowseKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	var (
		next appModel
		cmd  tea.Cmd
	)
	switch msg.String() {
	case "/":
		cmd = m.searchInput.Focus()
		return m, cmd, true
	case "v":
		next, cmd = m.toggleView()
	case "s":
		next, cmd = m.cycleSort()
	case "r":
		next, cmd = m.cycleRating()
	case "y":
		next, cmd = m.cycleYear()
	case "c":
		m.searchInput.SetValue("")
		next, cmd = m.clearFilters()
	case "g":
		m.genresBefore = model.SortedGenres(m.query.Genres)
		m.genreList.ResetFilter()
		m.genreList.SetItems(buildGenreItems(m.query))
		m.state = stateGenres
		return m, nil, true
	case "f":
		if item, ok := m.selectedResult(); ok {
			m.wishlist.Toggle(item)
			m.refreshFavorites()
		}
		return m, nil, true
	case "n", "right":
		if m.query.View != model.ViewTable {
			return m, nil, false
		}
		next, cmd = m.pageTo(m.result.Page + 1)
	case "p", "left":
		if m.query.View != model.ViewTable {
			return m, nil, false
		}
		next, cmd = m.pageTo(m.result.Page - 1)
	case "enter":
		item, ok := m.selectedResult()
		if !ok {
			return m, nil, true
		}
		return m.openDetail(item), m.detailCmd(item), true
	default:
		return m, nil, false
	}
	return next, cmd, true
}

func (m appModel) goBack() (appModel, tea.Cmd) {
	switch m.state {
	case stateSection:
		m.state = stateHome
	case stateBrowse:
		if len(m.sections) > 0 {
			m.state = stateHome
		}
	case stateGenres:
		m.state = stateBrowse
		if !slices.Equal(m.genresBefore, model.SortedGenres(m.query.Genres)) {
			m.prefs.RecordFilterPreset(m.query.Preset())
		}
	case stateWishlist, stateHistory:
		m.state = m.overlayReturn
	case stateDetail, stateLoadingDetail:
		m.state = m.detailReturn
	case stateError:
		m.state = m.lastState
		m.err = nil
		m.errKind = service.KindNone
	}
	return m, nil
}

func (m appModel) openWishlist() appModel {
	m.overlayReturn = m.state
	m.wishList.ResetFilter()
	m.refreshWishlist()
	m.wishList.Select(0)
	m.state = stateWishlist
	return m
}

func (m appModel) openHistory() appModel {
	m.overlayReturn = m.state
	m.historyList.ResetFilter()
	m.historyList.SetItems(buildHistoryItems(m.prefs.History(), m.prefs.RecentFilters()))
	m.historyList.Select(0)
	m.state = stateHistory
	return m
}

func (m appModel) openDetail(item model.CatalogItem) appModel {
	m.detailReturn = m.state
	m.detail = item
	m.state = stateLoadingDetail
	return m
}

func (m appModel) detailCmd(item model.CatalogItem) tea.Cmd {
	return tea.Batch(m.loadDetailCmd(item, m.detailView.Width), m.spinner.Tick)
}

// refreshFavorites redraws every view that shows wishlist membership.
func (m *appModel) refreshFavorites() {
	if m.query.View == model.ViewTable {
		m.resultTable.SetRows(buildResultRows(m.result, m.loader.PageSize(model.ViewTable), m.wishlist))
	} else {
		index := m.resultList.Index()
		m.resultList.SetItems(buildMovieItems(m.result.Items, m.wishlist))
		m.resultList.Select(index)
	}
	if m.state == stateSection {
		index := m.sectionList.Index()
		m.sectionList.SetItems(buildMovieItems(m.section.Items, m.wishlist))
		m.sectionList.Select(index)
	}
	if m.state == stateWishlist {
		m.refreshWishlist()
	}
}

func (m *appModel) refreshWishlist() {
	index := m.wishList.Index()
	items := buildWishlistItems(m.wishlist.Sorted(m.wishlistSort, m.wishlistDesc))
	m.wishList.SetItems(items)
	if index >= len(items) {
		index = len(items) - 1
	}
	if index >= 0 {
		m.wishList.Select(index)
	}
}

func (m appModel) shutdown() {
	m.debouncer.Stop()
	m.loader.Cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *appModel) handleFilterInput(msg tea.KeyMsg) bool {
	listPtr := m.activeList()
	if listPtr == nil {
		return false
	}
	if !listPtr.FilteringEnabled() {
		return false
	}
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return false
		}
		m.appendFilter(listPtr, string(msg.Runes))
		return true
	case tea.KeySpace:
		m.appendFilter(listPtr, " ")
		return true
	case tea.KeyBackspace, tea.KeyDelete:
		if listPtr.FilterValue() == "" {
			return false
		}
		m.popFilter(listPtr)
		return true
	default:
		return false
	}
}

func (m *appModel) appendFilter(listPtr *list.Model, value string) {
	if value == "" {
		return
	}
	current := listPtr.FilterValue()
	listPtr.SetFilterText(current + value)
}

func (m *appModel) popFilter(listPtr *list.Model) {
	value := listPtr.FilterValue()
	if value == "" {
		return
	}
	value = trimLastRune(value)
	if value == "" {
		listPtr.ResetFilter()
		return
	}
	listPtr.SetFilterText(value)
}

func trimLastRune(value string) string {
	runes := []rune(value)
	if len(runes) <= 1 {
		return ""
	}
	return string(runes[:len(runes)-1])
}

// activeList is the list that receives type-to-filter input.
func (m *appModel) activeList() *list.Model {
	switch m.state {
	case stateSection:
		return &m.sectionList
	case stateGenres:
		return &m.genreList
	case stateWishlist:
		return &m.wishList
	case stateHistory:
		return &m.historyList
	default:
		return nil
	}
}

func (m appModel) isLoading() bool {
	return m.state == stateLoadingHome || m.state == stateLoadingDetail || m.loading
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 7
	if h < 6 {
		h = 6
	}
	m.homeList.SetSize(m.width, h)
	m.sectionList.SetSize(m.width, h)
	m.resultList.SetSize(m.width, h-2)
	m.genreList.SetSize(m.width, h)
	m.wishList.SetSize(m.width, h)
	m.historyList.SetSize(m.width, h)

	m.resultTable.SetColumns(resultColumns(m.width))
	m.resultTable.SetWidth(m.width)
	m.resultTable.SetHeight(max(h-3, 5))
	m.searchInput.Width = max(m.width-4, 10)
	m.detailView.Width = m.width
	m.detailView.Height = h
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = caseInsensitiveFilter
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

func recoverStateFrom(state appState) appState {
	switch state {
	case stateLoadingHome:
		return stateBrowse
	case stateLoadingDetail:
		return stateBrowse
	case stateError:
		return stateBrowse
	default:
		return state
	}
}

func caseInsensitiveFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(term)
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}
	return list.DefaultFilter(term, lower)
}
