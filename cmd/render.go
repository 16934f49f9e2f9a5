package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/service"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderResults(out io.Writer, state model.QueryState, result model.ResultSet, pageSize int, isFavorite func(int) bool) {
	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No movies match.")
		return
	}

	t := newTable(out)
	t.SetTitle(queryTitle(state))
	t.AppendHeader(table.Row{"#", "ID", "Title", "Year", "Rating", "Genres", "♥"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: 40},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, WidthMax: 30},
	})
	first := (max(result.Page, 1) - 1) * pageSize
	for i, item := range result.Items {
		mark := ""
		if isFavorite(item.ID) {
			mark = "♥"
		}
		t.AppendRow(table.Row{first + i + 1, item.ID, item.Title, item.Year(), fmt.Sprintf("%.1f", item.Rating), strings.Join(item.Genres, ", "), mark})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("page %d of %d", result.Page, result.TotalPages), "", "", fmt.Sprintf("%d results", result.TotalResults), ""})
	t.Render()
}

func renderSections(out io.Writer, sections []service.Section) {
	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}
	t := newTable(out)
	t.AppendHeader(table.Row{"Section", "#", "Title", "Year", "Rating"}, rowConfigAutoMerge)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, WidthMax: 20},
		{Number: 3, WidthMax: 40},
	})
	for _, section := range sections {
		rows := make([]table.Row, 0, len(section.Items))
		for _, item := range section.Items {
			rows = append(rows, table.Row{section.Title, item.Rank, item.Title, item.Year(), fmt.Sprintf("%.1f", item.Rating)})
		}
		t.AppendRows(rows, rowConfigAutoMerge)
		t.AppendSeparator()
	}
	t.Render()
}

func renderWishlist(out io.Writer, entries []model.WishlistEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Your wishlist is empty.")
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Year", "Rating", "Added"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 40}})
	for _, entry := range entries {
		t.AppendRow(table.Row{entry.ID, entry.Title, entry.Year(), fmt.Sprintf("%.1f", entry.Rating), entry.AddedAt.Local().Format(time.DateOnly)})
	}
	t.Render()
}

func renderHistory(out io.Writer, history []model.SearchHistoryEntry) {
	if len(history) == 0 {
		fmt.Fprintln(out, "No searches yet.")
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Query", "When"})
	for _, entry := range history {
		t.AppendRow(table.Row{entry.Query, entry.Timestamp.Local().Format("2006-01-02 15:04")})
	}
	t.Render()
}

func renderFilters(out io.Writer, filters []model.RecentFilterEntry) {
	if len(filters) == 0 {
		fmt.Fprintln(out, "No recent filters.")
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Genres", "Rating", "Years", "Sort", "When"})
	for _, entry := range filters {
		t.AppendRow(table.Row{
			genresLabel(entry.Genres),
			entry.Rating.String(),
			entry.Year.String(),
			entry.Sort.Label(),
			entry.Timestamp.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

func renderSettings(out io.Writer, settings model.SearchSettings) {
	t := newTable(out)
	t.AppendRows([]table.Row{
		{"Query", settings.Query},
		{"Genres", genresLabel(settings.Genres)},
		{"Rating", settings.Rating.String()},
		{"Years", settings.Year.String()},
		{"Sort", settings.Sort.Label()},
	})
	t.Render()
}

func queryTitle(state model.QueryState) string {
	parts := []string{}
	if state.IsSearch() {
		parts = append(parts, fmt.Sprintf("Search %q", strings.TrimSpace(state.Query)))
	} else {
		parts = append(parts, "Discover", genresLabel(state.Genres), "rating "+state.Rating.String(), "years "+state.Year.String(), state.Sort.Label())
	}
	return strings.Join(parts, " • ")
}

func genresLabel(ids []int) string {
	if names := model.GenreNames(ids); len(names) > 0 {
		return strings.Join(names, ", ")
	}
	return "all genres"
}
