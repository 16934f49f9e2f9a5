package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
)

const favoriteMark = "♥"

type movieItem struct {
	movie    model.CatalogItem
	favorite bool
}

func (m movieItem) Title() string {
	title := m.movie.Title
	if m.movie.Rank > 0 {
		title = fmt.Sprintf("%d. %s", m.movie.Rank, title)
	}
	if m.favorite {
		title += " " + favoriteMark
	}
	return title
}

func (m movieItem) Description() string {
	return movieSummary(m.movie)
}

func (m movieItem) FilterValue() string {
	return m.movie.Title
}

type sectionItem struct {
	section service.Section
}

func (s sectionItem) Title() string {
	return s.section.Title
}

func (s sectionItem) Description() string {
	titles := make([]string, 0, 3)
	for _, item := range s.section.Items {
		titles = append(titles, item.Title)
		if len(titles) == 3 {
			break
		}
	}
	if len(titles) == 0 {
		return "No movies"
	}
	return strings.Join(titles, " • ")
}

func (s sectionItem) FilterValue() string {
	return s.section.Title
}

type genreItem struct {
	genre    model.Genre
	selected bool
}

func (g genreItem) Title() string {
	if g.selected {
		return "[x] " + g.genre.Name
	}
	return "[ ] " + g.genre.Name
}

func (g genreItem) Description() string {
	return fmt.Sprintf("id %d", g.genre.ID)
}

func (g genreItem) FilterValue() string {
	return g.genre.Name
}

type wishlistItem struct {
	entry model.WishlistEntry
}

func (w wishlistItem) Title() string {
	return w.entry.Title + " " + favoriteMark
}

func (w wishlistItem) Description() string {
	summary := movieSummary(w.entry.CatalogItem)
	if !w.entry.AddedAt.IsZero() {
		summary += " • added " + w.entry.AddedAt.Format(time.DateOnly)
	}
	return summary
}

func (w wishlistItem) FilterValue() string {
	return w.entry.Title
}

// historyItem is either a past search or a recent filter preset.
type historyItem struct {
	search *model.SearchHistoryEntry
	filter *model.RecentFilterEntry
}

func (h historyItem) Title() string {
	if h.search != nil {
		return "Search: " + h.search.Query
	}
	return "Filters: " + presetLabel(h.filter.FilterPreset)
}

func (h historyItem) Description() string {
	ts := time.Time{}
	if h.search != nil {
		ts = h.search.Timestamp
	} else if h.filter != nil {
		ts = h.filter.Timestamp
	}
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func (h historyItem) FilterValue() string {
	return h.Title()
}

func buildMovieItems(items []model.CatalogItem, wishlist *store.WishlistStore) []list.Item {
	out := make([]list.Item, 0, len(items))
	for _, item := range items {
		out = append(out, movieItem{movie: item, favorite: isFavorite(wishlist, item.ID)})
	}
	return out
}

func buildSectionItems(sections []service.Section) []list.Item {
	out := make([]list.Item, 0, len(sections))
	for _, section := range sections {
		out = append(out, sectionItem{section: section})
	}
	return out
}

func buildGenreItems(state model.QueryState) []list.Item {
	genres := model.Genres()
	out := make([]list.Item, 0, len(genres))
	for _, genre := range genres {
		out = append(out, genreItem{genre: genre, selected: state.HasGenre(genre.ID)})
	}
	return out
}

func buildWishlistItems(entries []model.WishlistEntry) []list.Item {
	out := make([]list.Item, 0, len(entries))
	for _, entry := range entries {
		out = append(out, wishlistItem{entry: entry})
	}
	return out
}

func buildHistoryItems(history []model.SearchHistoryEntry, filters []model.RecentFilterEntry) []list.Item {
	out := make([]list.Item, 0, len(history)+len(filters))
	for i := range history {
		out = append(out, historyItem{search: &history[i]})
	}
	for i := range filters {
		out = append(out, historyItem{filter: &filters[i]})
	}
	return out
}

func resultColumns(width int) []table.Column {
	titleWidth := 36
	if width > 0 {
		titleWidth = max(20, width-6-6-8-26-4-12)
	}
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Title", Width: titleWidth},
		{Title: "Year", Width: 6},
		{Title: "Rating", Width: 6},
		{Title: "Genres", Width: 26},
		{Title: favoriteMark, Width: 2},
	}
}

func buildResultRows(result model.ResultSet, pageSize int, wishlist *store.WishlistStore) []table.Row {
	rows := make([]table.Row, 0, len(result.Items))
	first := (max(result.Page, 1) - 1) * pageSize
	for i, item := range result.Items {
		mark := ""
		if isFavorite(wishlist, item.ID) {
			mark = favoriteMark
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", first+i+1),
			item.Title,
			item.Year(),
			fmt.Sprintf("%.1f", item.Rating),
			strings.Join(item.Genres, ", "),
			mark,
		})
	}
	return rows
}

func movieSummary(item model.CatalogItem) string {
	parts := []string{fmt.Sprintf("★ %.1f", item.Rating)}
	if year := item.Year(); year != "" {
		parts = append(parts, year)
	}
	if len(item.Genres) > 0 {
		parts = append(parts, strings.Join(item.Genres, ", "))
	}
	return strings.Join(parts, " • ")
}

func presetLabel(p model.FilterPreset) string {
	parts := []string{}
	if names := model.GenreNames(p.Genres); len(names) > 0 {
		parts = append(parts, strings.Join(names, "+"))
	} else {
		parts = append(parts, "all genres")
	}
	parts = append(parts, fmt.Sprintf("rating %s", p.Rating), fmt.Sprintf("years %s", p.Year), p.Sort.Label())
	return strings.Join(parts, ", ")
}

func isFavorite(wishlist *store.WishlistStore, id int) bool {
	return wishlist != nil && wishlist.IsMember(id)
}
