package store

import (
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmdb-finder-cli/model"
)

func movie(id int, title string) model.CatalogItem {
	return model.CatalogItem{ID: id, Title: title, Image: model.PlaceholderImage}
}

func TestWishlist_ToggleTwiceIsIdempotent(t *testing.T) {
	w := NewWishlistStore(newMemStorage(t))
	dune := movie(42, "Dune")

	assert.False(t, w.IsMember(42))
	assert.True(t, w.Toggle(dune))
	assert.True(t, w.IsMember(42))

	all := w.All()
	require.Len(t, all, 1)
	assert.Equal(t, dune, all[0].CatalogItem)

	assert.False(t, w.Toggle(dune))
	assert.False(t, w.IsMember(42))
	assert.Empty(t, w.All())
}

func TestWishlist_SurvivesReload(t *testing.T) {
	storage := newMemStorage(t)
	w := NewWishlistStore(storage)
	w.Toggle(movie(42, "Dune"))

	reloaded := NewWishlistStore(storage)
	assert.True(t, reloaded.IsMember(42))
	assert.Equal(t, "Dune", reloaded.All()[0].Title)
}

func TestWishlist_SurvivesReloadFromSQLite(t *testing.T) {
	path := t.TempDir() + "/wishlist.db"
	storage, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	NewWishlistStore(storage).Toggle(movie(42, "Dune"))
	require.NoError(t, storage.Close())

	storage, err = OpenSQLite(path, nil)
	require.NoError(t, err)
	defer storage.Close()
	assert.True(t, NewWishlistStore(storage).IsMember(42))
}

func TestWishlist_ToggleRereadsStorage(t *testing.T) {
	storage := newMemStorage(t)
	first := NewWishlistStore(storage)
	second := NewWishlistStore(storage)

	first.Toggle(movie(1, "Alien"))
	second.Toggle(movie(2, "Aliens"))

	assert.True(t, first.IsMember(2))
	assert.Len(t, second.All(), 2)
}

func TestWishlist_ReadsNeverWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	storage, err := NewFileStorage(fs, "/data", nil)
	require.NoError(t, err)
	w := NewWishlistStore(storage)

	w.IsMember(1)
	w.All()
	w.Sorted(WishlistByTitle, false)

	exists, err := afero.Exists(fs, "/data/wishlist.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWishlist_StorageFailureKeepsSessionWorking(t *testing.T) {
	var mu sync.Mutex
	var warnings []string
	w := NewWishlistStore(failingStorage{}, WithWarningHook(func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, op)
	}))

	assert.True(t, w.Toggle(movie(7, "Se7en")))
	assert.True(t, w.IsMember(7))
	assert.Len(t, w.All(), 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, warnings, "write wishlist")
}

func TestWishlist_RejectedWritesStayInMemory(t *testing.T) {
	storage := &quotaStorage{FileStorage: newMemStorage(t)}
	w := NewWishlistStore(storage)

	require.True(t, w.Toggle(movie(1, "Alien")))
	storage.full = true

	assert.True(t, w.Toggle(movie(2, "Dune")))
	assert.True(t, w.IsMember(2))
	assert.False(t, w.Toggle(movie(1, "Alien")))
	assert.False(t, w.IsMember(1))
	require.Len(t, w.All(), 1)
	assert.Equal(t, 2, w.All()[0].ID)

	storage.full = false
	assert.True(t, w.Toggle(movie(3, "Heat")))
	reloaded := NewWishlistStore(storage)
	assert.True(t, reloaded.IsMember(2))
	assert.True(t, reloaded.IsMember(3))
	assert.False(t, reloaded.IsMember(1))
}

func TestWishlist_SubscribersSeeEveryChange(t *testing.T) {
	w := NewWishlistStore(newMemStorage(t))

	var changes []WishlistChange
	unsubscribe := w.Subscribe(func(c WishlistChange) {
		changes = append(changes, c)
	})

	w.Toggle(movie(1, "Heat"))
	w.Toggle(movie(2, "Ronin"))
	w.Remove(1)
	unsubscribe()
	w.Toggle(movie(3, "Thief"))

	require.Len(t, changes, 3)
	assert.True(t, changes[0].Added)
	assert.Len(t, changes[1].Entries, 2)
	assert.False(t, changes[2].Added)
	assert.Equal(t, 1, changes[2].Item.ID)
}

func TestWishlist_Sorted(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := NewWishlistStore(newMemStorage(t), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	b := movie(2, "brazil")
	b.Rating, b.ReleaseDate = 7.9, "1985-02-20"
	a := movie(1, "Alien")
	a.Rating, a.ReleaseDate = 8.5, "1979-05-25"
	c := movie(3, "Cure")
	c.Rating, c.ReleaseDate = 7.4, "1997-12-27"
	w.Toggle(b)
	w.Toggle(a)
	w.Toggle(c)

	order := func(entries []model.WishlistEntry) []int {
		out := make([]int, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []int{1, 2, 3}, order(w.Sorted(WishlistByTitle, false)))
	assert.Equal(t, []int{1, 2, 3}, order(w.Sorted(WishlistByRating, true)))
	assert.Equal(t, []int{3, 2, 1}, order(w.Sorted(WishlistByReleaseDate, true)))
	assert.Equal(t, []int{2, 1, 3}, order(w.Sorted(WishlistByAdded, false)))
}
