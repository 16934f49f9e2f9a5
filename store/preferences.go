package store

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"

	"tmdb-finder-cli/model"
)

const (
	MaxSearchHistory = 10
	MaxRecentFilters = 5
)

var lastUsedKeys = []string{
	KeyLastSearchQuery,
	KeyLastSelectedGenres,
	KeyLastRatingRange,
	KeyLastYearRange,
	KeyLastSortBy,
}

// PreferenceCache holds search history, recently used filter presets and
// the last used search settings.
type PreferenceCache struct {
	storage Storage
	opts    options

	mu sync.Mutex
	// The fields below mirror storage. A dirty mirror holds changes storage
	// refused and is served until a later write succeeds.
	history       []model.SearchHistoryEntry
	historyDirty  bool
	filters       []model.RecentFilterEntry
	filtersDirty  bool
	settings      model.SearchSettings
	settingsDirty bool
}

func NewPreferenceCache(storage Storage, opts ...Option) *PreferenceCache {
	c := &PreferenceCache{storage: storage, opts: newOptions(opts)}
	c.mu.Lock()
	c.history = c.readHistory()
	c.filters = c.readFilters()
	c.mu.Unlock()
	return c
}

// RecordSearch moves query to the front of the history. Blank queries are
// ignored.
func (c *PreferenceCache) RecordSearch(query string) []model.SearchHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.readHistory()
	if strings.TrimSpace(query) == "" {
		return slices.Clone(history)
	}
	next := []model.SearchHistoryEntry{{Query: query, Timestamp: c.opts.now()}}
	for _, existing := range history {
		if existing.Query == query {
			continue
		}
		next = append(next, existing)
		if len(next) >= MaxSearchHistory {
			break
		}
	}
	c.history = next
	c.historyDirty = false
	if err := saveJSON(c.storage, KeySearchHistory, next); err != nil {
		c.historyDirty = true
		c.opts.warning("write search history", err)
	}
	return slices.Clone(next)
}

// RecordFilterPreset prepends preset. Presets are not de-duplicated.
func (c *PreferenceCache) RecordFilterPreset(preset model.FilterPreset) []model.RecentFilterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := model.RecentFilterEntry{FilterPreset: preset, Timestamp: c.opts.now()}
	entry.Genres = slices.Clone(preset.Genres)
	if entry.Genres == nil {
		entry.Genres = []int{}
	}
	next := append([]model.RecentFilterEntry{entry}, c.readFilters()...)
	if len(next) > MaxRecentFilters {
		next = next[:MaxRecentFilters]
	}
	c.filters = next
	c.filtersDirty = false
	if err := saveJSON(c.storage, KeyRecentFilters, next); err != nil {
		c.filtersDirty = true
		c.opts.warning("write recent filters", err)
	}
	return slices.Clone(next)
}

func (c *PreferenceCache) History() []model.SearchHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.readHistory())
}

func (c *PreferenceCache) RecentFilters() []model.RecentFilterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.readFilters())
}

func (c *PreferenceCache) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.historyDirty = false
	if err := c.storage.Delete(KeySearchHistory); err != nil {
		c.historyDirty = true
		c.opts.warning("clear search history", err)
	}
}

func (c *PreferenceCache) ClearRecentFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = nil
	c.filtersDirty = false
	if err := c.storage.Delete(KeyRecentFilters); err != nil {
		c.filtersDirty = true
		c.opts.warning("clear recent filters", err)
	}
}

// SaveLastUsedSettings writes each field under its own key.
func (c *PreferenceCache) SaveLastUsedSettings(s model.SearchSettings) {
	genres := s.Genres
	if genres == nil {
		genres = []int{}
	}
	values := map[string]any{
		KeyLastSearchQuery:    s.Query,
		KeyLastSelectedGenres: genres,
		KeyLastRatingRange:    s.Rating,
		KeyLastYearRange:      s.Year,
		KeyLastSortBy:         s.Sort,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, key := range lastUsedKeys {
		if err := saveJSON(c.storage, key, values[key]); err != nil {
			errs = append(errs, err)
		}
	}
	c.settingsDirty = false
	if err := errors.Join(errs...); err != nil {
		c.settings = model.SearchSettings{
			Query:  s.Query,
			Genres: slices.Clone(genres),
			Rating: s.Rating,
			Year:   s.Year,
			Sort:   s.Sort,
		}
		c.settingsDirty = true
		c.opts.warning("write last used settings", err)
	}
}

// LoadLastUsedSettings returns the saved settings. Missing or unusable
// fields fall back to their defaults. Settings storage refused to save are
// returned as given.
func (c *PreferenceCache) LoadLastUsedSettings() model.SearchSettings {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settingsDirty {
		settings := c.settings
		settings.Genres = slices.Clone(settings.Genres)
		return settings
	}

	now := c.opts.now()
	settings := model.DefaultSearchSettings(now)
	var errs []error

	if query, ok, err := loadJSON[string](c.storage, KeyLastSearchQuery); err != nil {
		errs = append(errs, err)
	} else if ok {
		settings.Query = query
	}
	if genres, ok, err := loadJSON[[]int](c.storage, KeyLastSelectedGenres); err != nil {
		errs = append(errs, err)
	} else if ok && genres != nil {
		settings.Genres = dedupe(genres)
	}
	if rating, ok, err := loadJSON[model.Range[float64]](c.storage, KeyLastRatingRange); err != nil {
		errs = append(errs, err)
	} else if ok && rating.Min <= rating.Max && rating.Min >= model.MinRating && rating.Max <= model.MaxRating {
		settings.Rating = rating
	}
	if year, ok, err := loadJSON[model.Range[int]](c.storage, KeyLastYearRange); err != nil {
		errs = append(errs, err)
	} else if ok && year.Min <= year.Max && year.Min >= model.MinYear {
		year.Max = min(year.Max, now.Year())
		if year.Min <= year.Max {
			settings.Year = year
		}
	}
	if sortBy, ok, err := loadJSON[model.SortKey](c.storage, KeyLastSortBy); err != nil {
		errs = append(errs, err)
	} else if ok && sortBy.Valid() {
		settings.Sort = sortBy
	}

	if err := errors.Join(errs...); err != nil {
		c.opts.warning("read last used settings", err)
	}
	return settings
}

// ClearLastUsedSettings removes all five last used keys.
func (c *PreferenceCache) ClearLastUsedSettings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, key := range lastUsedKeys {
		if err := c.storage.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	c.settingsDirty = false
	if err := errors.Join(errs...); err != nil {
		c.settings = model.DefaultSearchSettings(c.opts.now())
		c.settingsDirty = true
		c.opts.warning("clear last used settings", err)
	}
}

// readHistory accepts both the entry list and the older plain list of
// query strings. Callers hold mu.
func (c *PreferenceCache) readHistory() []model.SearchHistoryEntry {
	if c.historyDirty {
		return slices.Clone(c.history)
	}
	data, ok, err := c.storage.Get(KeySearchHistory)
	if err != nil {
		c.opts.warning("read search history", err)
		return slices.Clone(c.history)
	}
	if !ok {
		c.history = nil
		return nil
	}

	var history []model.SearchHistoryEntry
	if err := json.Unmarshal(data, &history); err == nil {
		c.history = history
		return slices.Clone(history)
	}

	var legacy []string
	if err := json.Unmarshal(data, &legacy); err == nil {
		history = history[:0]
		for _, query := range legacy {
			if strings.TrimSpace(query) != "" {
				history = append(history, model.SearchHistoryEntry{Query: query})
			}
		}
		c.history = history
		return slices.Clone(history)
	}

	c.opts.log.Warn("invalid search history format, ignoring stored value")
	return slices.Clone(c.history)
}

// Callers hold mu.
func (c *PreferenceCache) readFilters() []model.RecentFilterEntry {
	if c.filtersDirty {
		return slices.Clone(c.filters)
	}
	filters, ok, err := loadJSON[[]model.RecentFilterEntry](c.storage, KeyRecentFilters)
	if err != nil {
		c.opts.warning("read recent filters", err)
		return slices.Clone(c.filters)
	}
	if !ok {
		c.filters = nil
		return nil
	}
	c.filters = filters
	return slices.Clone(filters)
}

func dedupe(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
