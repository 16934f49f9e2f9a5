package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/results"
	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
)

const (
	sectionsTimeout = 20 * time.Second
	detailTimeout   = 15 * time.Second
	similarLimit    = 5
)

type errMsg struct {
	err            error
	returnState    appState
	returnStateSet bool
}

type sectionsMsg struct {
	sections []service.Section
	err      error
	cached   bool
}

type resultsMsg struct {
	outcome results.Outcome
}

type detailMsg struct {
	item     model.CatalogItem
	markdown string
	err      error
}

// searchMsg is posted by the debouncer once typing settles.
type searchMsg struct {
	query string
}

type wishlistMsg struct {
	change store.WishlistChange
}

// waitForEvent relays messages produced outside the update loop, such as
// debounced searches and wishlist notifications.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m appModel) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.log.Debug("dropping ui event", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (m appModel) loadResultsCmd(state model.QueryState) tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		return resultsMsg{outcome: loader.Load(context.Background(), state)}
	}
}

// loadSectionsCmd serves home sections from the cache when fresh. On a
// failed refresh it falls back to whatever the cache holds.
func (m appModel) loadSectionsCmd(force bool) tea.Cmd {
	catalog, cache, log := m.catalog, m.cache, m.log
	name, limit := store.SectionsCacheName(m.language), m.sectionLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sectionsTimeout)
		defer cancel()
		sections, stale, err := store.LoadOrFetch(cache, name, store.SectionsCacheTTL, force, func() ([]service.Section, error) {
			return catalog.Sections(ctx, service.DefaultSections(), limit)
		})
		if err != nil {
			if len(sections) == 0 {
				return sectionsMsg{err: err}
			}
			log.Warn("home sections incomplete", zap.Bool("stale", stale), zap.Error(err))
		}
		return sectionsMsg{sections: sections, cached: stale}
	}
}

// loadDetailCmd fetches the movie with a few similar titles and renders
// them as markdown.
func (m appModel) loadDetailCmd(item model.CatalogItem, width int) tea.Cmd {
	catalog, log := m.catalog, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		detail, err := catalog.Detail(ctx, item.ID)
		if err != nil {
			return detailMsg{item: item, err: err}
		}
		full := model.NewCatalogItem(detail.Raw(), catalog.ImageBaseURL())

		var similar []model.CatalogItem
		if resp, err := catalog.Similar(ctx, item.ID, 1); err != nil {
			log.Warn("failed to load similar movies", zap.Int("movie_id", item.ID), zap.Error(err))
		} else {
			similar = model.NewCatalogItems(resp.Results, catalog.ImageBaseURL())
			if len(similar) > similarLimit {
				similar = similar[:similarLimit]
			}
		}

		rendered, err := renderMarkdown(detailMarkdown(detail, full, similar), width)
		if err != nil {
			return detailMsg{item: full, err: err}
		}
		return detailMsg{item: full, markdown: rendered}
	}
}

func detailMarkdown(detail model.MovieDetail, item model.CatalogItem, similar []model.CatalogItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	if detail.Tagline != "" {
		fmt.Fprintf(&b, "_%s_\n\n", detail.Tagline)
	}

	facts := []string{fmt.Sprintf("**Rating** %.1f (%d votes)", item.Rating, detail.VoteCount)}
	if item.ReleaseDate != "" {
		facts = append(facts, "**Released** "+item.ReleaseDate)
	}
	if detail.Runtime > 0 {
		facts = append(facts, fmt.Sprintf("**Runtime** %dh%02dm", detail.Runtime/60, detail.Runtime%60))
	}
	if len(item.Genres) > 0 {
		facts = append(facts, "**Genres** "+strings.Join(item.Genres, ", "))
	}
	for _, fact := range facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	b.WriteString("\n")

	overview := strings.TrimSpace(item.Overview)
	if overview == "" {
		overview = "No overview available."
	}
	b.WriteString("## Overview\n\n" + overview + "\n\n")

	if item.HasPoster() {
		fmt.Fprintf(&b, "Poster: %s\n\n", item.Image)
	}
	if detail.Homepage != "" {
		fmt.Fprintf(&b, "Homepage: %s\n\n", detail.Homepage)
	}

	if len(similar) > 0 {
		b.WriteString("## Similar\n\n")
		for _, s := range similar {
			fmt.Fprintf(&b, "- %s (%s) ★ %.1f\n", s.Title, orDash(s.Year()), s.Rating)
		}
	}
	return b.String()
}

func renderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func movieURL(id int) string {
	return fmt.Sprintf("https://www.themoviedb.org/movie/%d", id)
}

func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := openURL(url); err != nil {
			return errMsg{err: err, returnState: stateDetail, returnStateSet: true}
		}
		return nil
	}
}

func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported OS for opening browser: %s", runtime.GOOS)
	}
}
