package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"tmdb-finder-cli/model"
)

const sectionConcurrency = 6

// SectionSpec names a home screen row and the endpoint that fills it.
type SectionSpec struct {
	Key     string
	Title   string
	GenreID int
}

// Section is a filled home screen row. Items carry Rank 1..n.
type Section struct {
	Key   string
	Title string
	Items []model.CatalogItem
}

// DefaultSections are the rows shown on the home screen.
func DefaultSections() []SectionSpec {
	specs := []SectionSpec{
		{Key: "popular", Title: "Popular"},
		{Key: "now_playing", Title: "Now Playing"},
		{Key: "top_rated", Title: "Top Rated"},
		{Key: "upcoming", Title: "Upcoming"},
		{Key: "trending", Title: "Trending This Week"},
	}
	for _, id := range []int{35, 27, 16, 10749, 99, 10751} {
		label, _ := model.GenreLabel(id)
		specs = append(specs, SectionSpec{Key: fmt.Sprintf("genre_%d", id), Title: label, GenreID: id})
	}
	return specs
}

// Sections fetches every section concurrently and returns the rows that loaded,
// in the order given, along with the joined errors of the rows that did not.
func (c *Client) Sections(ctx context.Context, specs []SectionSpec, limit int) ([]Section, error) {
	type indexed struct {
		index   int
		section Section
	}

	p := pool.NewWithResults[indexed]().WithContext(ctx).WithMaxGoroutines(sectionConcurrency)
	for i, spec := range specs {
		p.Go(func(ctx context.Context) (indexed, error) {
			page, err := c.section(ctx, spec)
			if err != nil {
				c.log.Warn("home section failed", zap.String("section", spec.Key), zap.Error(err))
				return indexed{}, fmt.Errorf("section %s: %w", spec.Key, err)
			}
			items := model.NewCatalogItems(page.Results, c.imageBaseURL)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			for rank := range items {
				items[rank].Rank = rank + 1
			}
			return indexed{index: i, section: Section{Key: spec.Key, Title: spec.Title, Items: items}}, nil
		})
	}

	results, err := p.Wait()
	sort.Slice(results, func(a, b int) bool {
		return results[a].index < results[b].index
	})
	sections := make([]Section, 0, len(results))
	for _, r := range results {
		sections = append(sections, r.section)
	}
	return sections, err
}

func (c *Client) section(ctx context.Context, spec SectionSpec) (model.PageResponse, error) {
	if spec.GenreID != 0 {
		return c.ByGenre(ctx, spec.GenreID, 1)
	}
	switch spec.Key {
	case "popular":
		return c.Popular(ctx, 1)
	case "now_playing":
		return c.NowPlaying(ctx, 1)
	case "top_rated":
		return c.TopRated(ctx, 1)
	case "upcoming":
		return c.Upcoming(ctx, 1)
	case "trending":
		return c.TrendingWeek(ctx)
	default:
		return model.PageResponse{}, fmt.Errorf("unknown section %q", spec.Key)
	}
}
