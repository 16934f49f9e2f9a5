package cmd

import (
	"net/http"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"tmdb-finder-cli/config"
	"tmdb-finder-cli/logging"
	"tmdb-finder-cli/model"
	"tmdb-finder-cli/query"
	"tmdb-finder-cli/results"
	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
	"tmdb-finder-cli/tui"
)

const userAgent = "tmdb-finder-cli"

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	client   *service.Client
	storage  store.Storage
	wishlist *store.WishlistStore
	prefs    *store.PreferenceCache
	cache    *store.Cache
	builder  query.Builder
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	log = logging.OrNop(log)

	storage, err := store.Open(store.Backend(cfg.Storage.Backend), cfg.Storage.Dir, log)
	if err != nil {
		return nil, err
	}

	var cache *store.Cache
	if dir := strings.TrimSpace(cfg.Storage.CacheDir); dir != "" {
		cache = store.NewCache(afero.NewOsFs(), dir)
	} else if cache, err = store.OpenCache(); err != nil {
		log.Warn("response cache disabled", zap.Error(err))
		cache = nil
	}

	warn := store.WithWarningHook(func(op string, err error) {
		log.Warn("storage unavailable, keeping changes in memory", zap.String("op", op), zap.Error(err))
	})

	client := service.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout()},
		cfg.TMDB.APIKey,
		service.WithBaseURL(cfg.TMDB.BaseURL),
		service.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
		service.WithLanguage(cfg.TMDB.Language),
		service.WithUserAgent(userAgent),
		service.WithRetry(cfg.TMDB.MaxAttempts, service.DefaultRetryBase, service.DefaultRetryCap),
		service.WithRateLimit(cfg.TMDB.RequestsPerSecond, service.DefaultRateBurst),
		service.WithLogger(log.Named("tmdb")),
	)

	builder := query.NewBuilder(cfg.TMDB.Language)
	builder.GridPageSize = cfg.Browse.GridPageSize
	builder.TablePageSize = cfg.Browse.TablePageSize

	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		storage:  storage,
		wishlist: store.NewWishlistStore(storage, store.WithLogger(log), warn),
		prefs:    store.NewPreferenceCache(storage, store.WithLogger(log), warn),
		cache:    cache,
		builder:  builder,
	}, nil
}

// newLoader returns a loader with a fresh accumulator.
func (a *app) newLoader() *results.Loader {
	return results.NewLoader(
		a.builder,
		a.client,
		results.NewAccumulator(a.client.ImageBaseURL()),
		results.WithTimeout(a.cfg.LoadTimeout()),
		results.WithLogger(a.log.Named("results")),
	)
}

func (a *app) tuiOptions() tui.Options {
	view, err := model.ParseViewMode(a.cfg.Browse.DefaultView)
	if err != nil {
		view = model.ViewGrid
	}
	return tui.Options{
		Catalog:        a.client,
		Loader:         a.newLoader(),
		Wishlist:       a.wishlist,
		Prefs:          a.prefs,
		Cache:          a.cache,
		Log:            a.log.Named("tui"),
		Language:       a.cfg.TMDB.Language,
		DefaultView:    view,
		SearchDebounce: a.cfg.SearchDebounce(),
		SectionLimit:   a.cfg.Browse.SectionLimit,
	}
}

func (a *app) Close() error {
	// Sync fails on some terminals when stderr is attached; nothing to do.
	_ = a.log.Sync()
	return a.storage.Close()
}
