package store

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tmdb-finder-cli/model"
)

// WarningFunc receives storage failures that were absorbed instead of
// returned.
type WarningFunc func(op string, err error)

type options struct {
	log  *zap.Logger
	warn WarningFunc
	now  func() time.Time
}

type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithWarningHook reports absorbed storage failures, e.g. to a status line.
func WithWarningHook(fn WarningFunc) Option {
	return func(o *options) {
		o.warn = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) warning(op string, err error) {
	o.log.Warn("storage unavailable", zap.String("op", op), zap.Error(err))
	if o.warn != nil {
		o.warn(op, err)
	}
}

// WishlistChange is delivered to subscribers after every mutation.
type WishlistChange struct {
	Item    model.CatalogItem
	Added   bool
	Entries []model.WishlistEntry
}

type WishlistSort string

const (
	WishlistByAdded       WishlistSort = "added"
	WishlistByTitle       WishlistSort = "title"
	WishlistByRating      WishlistSort = "rating"
	WishlistByReleaseDate WishlistSort = "release_date"
)

// WishlistStore is the persisted set of favorited items, keyed by id.
type WishlistStore struct {
	storage Storage
	opts    options

	mu sync.Mutex
	// entries mirrors the last known collection; it is served while
	// storage is failing.
	entries []model.WishlistEntry
	dirty   bool

	subMu   sync.Mutex
	subs    map[int]func(WishlistChange)
	nextSub int
}

func NewWishlistStore(storage Storage, opts ...Option) *WishlistStore {
	w := &WishlistStore{
		storage: storage,
		opts:    newOptions(opts),
		subs:    map[int]func(WishlistChange){},
	}
	w.mu.Lock()
	w.entries = w.read()
	w.mu.Unlock()
	return w
}

// Toggle adds item when absent and removes it when present. It returns the
// membership after the call.
func (w *WishlistStore) Toggle(item model.CatalogItem) bool {
	w.mu.Lock()
	entries := w.read()
	added := true
	if i := indexOf(entries, item.ID); i >= 0 {
		entries = slices.Delete(entries, i, i+1)
		added = false
	} else {
		entries = append(entries, model.WishlistEntry{CatalogItem: item, AddedAt: w.opts.now()})
	}
	w.write(entries)
	snapshot := slices.Clone(entries)
	w.mu.Unlock()

	w.opts.log.Debug("wishlist toggled", zap.Int("id", item.ID), zap.Bool("added", added))
	w.notify(WishlistChange{Item: item, Added: added, Entries: snapshot})
	return added
}

// Remove deletes id from the wishlist and reports whether it was present.
func (w *WishlistStore) Remove(id int) bool {
	w.mu.Lock()
	entries := w.read()
	i := indexOf(entries, id)
	if i < 0 {
		w.mu.Unlock()
		return false
	}
	item := entries[i].CatalogItem
	entries = slices.Delete(entries, i, i+1)
	w.write(entries)
	snapshot := slices.Clone(entries)
	w.mu.Unlock()

	w.notify(WishlistChange{Item: item, Added: false, Entries: snapshot})
	return true
}

func (w *WishlistStore) IsMember(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return indexOf(w.read(), id) >= 0
}

// All returns the entries in insertion order.
func (w *WishlistStore) All() []model.WishlistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.read())
}

// Sorted returns the entries ordered by key. Ties keep insertion order.
func (w *WishlistStore) Sorted(key WishlistSort, desc bool) []model.WishlistEntry {
	entries := w.All()
	compare := func(a, b model.WishlistEntry) int {
		switch key {
		case WishlistByTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case WishlistByRating:
			return cmp.Compare(a.Rating, b.Rating)
		case WishlistByReleaseDate:
			return strings.Compare(a.ReleaseDate, b.ReleaseDate)
		default:
			return a.AddedAt.Compare(b.AddedAt)
		}
	}
	slices.SortStableFunc(entries, func(a, b model.WishlistEntry) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return entries
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (w *WishlistStore) Subscribe(fn func(WishlistChange)) func() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		delete(w.subs, id)
	}
}

func (w *WishlistStore) notify(change WishlistChange) {
	w.subMu.Lock()
	subs := make([]func(WishlistChange), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.subMu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

// read loads the persisted collection. Callers hold mu.
func (w *WishlistStore) read() []model.WishlistEntry {
	if w.dirty {
		return slices.Clone(w.entries)
	}
	entries, _, err := loadJSON[[]model.WishlistEntry](w.storage, KeyWishlist)
	if err != nil {
		w.opts.warning("read wishlist", err)
		return slices.Clone(w.entries)
	}
	w.entries = entries
	return slices.Clone(entries)
}

// write persists the whole collection. Callers hold mu.
func (w *WishlistStore) write(entries []model.WishlistEntry) {
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	w.entries = slices.Clone(entries)
	if err := saveJSON(w.storage, KeyWishlist, entries); err != nil {
		w.dirty = true
		w.opts.warning("write wishlist", err)
		return
	}
	w.dirty = false
}

func indexOf(entries []model.WishlistEntry, id int) int {
	return slices.IndexFunc(entries, func(e model.WishlistEntry) bool {
		return e.ID == id
	})
}
