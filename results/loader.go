package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/query"
	"tmdb-finder-cli/service"
)

const DefaultTimeout = 10 * time.Second

// Fetcher performs one catalog request.
type Fetcher interface {
	Fetch(ctx context.Context, req query.Request) (model.PageResponse, error)
}

// Outcome is the result of one Load call.
type Outcome struct {
	State  model.QueryState
	Result model.ResultSet
	Err    error
	Kind   service.ErrorKind
	// Stale is set when a newer Load superseded this one. The accumulator
	// was not touched.
	Stale bool
}

// Loader runs builder, fetch and reconcile for a QueryState. Only the most
// recent call may update the accumulator.
type Loader struct {
	builder query.Builder
	fetcher Fetcher
	acc     *Accumulator
	timeout time.Duration
	log     *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

type LoaderOption func(*Loader)

func WithTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

func NewLoader(builder query.Builder, fetcher Fetcher, acc *Accumulator, opts ...LoaderOption) *Loader {
	l := &Loader{
		builder: builder,
		fetcher: fetcher,
		acc:     acc,
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load supersedes any in-flight call, fetches state and reconciles it.
func (l *Loader) Load(ctx context.Context, state model.QueryState) Outcome {
	req, err := l.builder.Build(state)
	if err != nil {
		l.log.DPanic("invalid query state", zap.Error(err))
		return Outcome{State: state, Err: err, Kind: service.Classify(err), Result: l.Current()}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	log := l.log.With(zap.Uint64("generation", gen), zap.String("mode", req.Mode.String()), zap.Int("page", state.Page))
	log.Debug("loading results", zap.String("request", req.Key()))

	resp, err := l.fetcher.Fetch(fetchCtx, req)
	if err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %w", service.ErrTimeout, l.timeout, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		log.Debug("discarding superseded response")
		return Outcome{State: state, Stale: true}
	}
	l.cancel = nil

	if err != nil {
		kind := service.Classify(err)
		log.Warn("load failed", zap.Stringer("kind", kind), zap.Error(err))
		return Outcome{State: state, Err: err, Kind: kind, Result: l.acc.Current()}
	}

	result := l.acc.Reconcile(Page{Response: resp, Offset: req.Offset, Size: req.PageSize}, state)
	log.Debug("results reconciled", zap.Int("items", len(result.Items)), zap.Int("total_pages", result.TotalPages))
	return Outcome{State: state, Result: result}
}

// PageSize is the number of items one page holds in view.
func (l *Loader) PageSize(view model.ViewMode) int {
	return l.builder.PageSize(view)
}

// Current returns the accumulated result set.
func (l *Loader) Current() model.ResultSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acc.Current()
}

// Cancel aborts the in-flight call, if any. Its outcome is reported stale.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
}

// Reset cancels in-flight work and clears the accumulator.
func (l *Loader) Reset() {
	l.Cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acc.Reset()
}
