package results

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/query"
	"tmdb-finder-cli/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	req  query.Request
	resp chan fetchResult
}

type fetchResult struct {
	page model.PageResponse
	err  error
}

// scriptedFetcher hands every request to the test and blocks until the test
// answers it or the context ends.
type scriptedFetcher struct {
	calls chan call
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{calls: make(chan call, 8)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req query.Request) (model.PageResponse, error) {
	c := call{req: req, resp: make(chan fetchResult, 1)}
	f.calls <- c
	select {
	case r := <-c.resp:
		return r.page, r.err
	case <-ctx.Done():
		return model.PageResponse{}, ctx.Err()
	}
}

type funcFetcher func(ctx context.Context, req query.Request) (model.PageResponse, error)

func (f funcFetcher) Fetch(ctx context.Context, req query.Request) (model.PageResponse, error) {
	return f(ctx, req)
}

func testLoaderBuilder() query.Builder {
	b := query.NewBuilder("en-US")
	b.Now = func() time.Time { return fixedNow }
	return b
}

func TestLoader_LatestRequestWins(t *testing.T) {
	fetcher := newScriptedFetcher()
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""))

	first := actionDiscoverState()
	second := first
	second.Query = "dune"

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = loader.Load(context.Background(), first)
	}()
	firstCall := <-fetcher.calls

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1] = loader.Load(context.Background(), second)
	}()
	secondCall := <-fetcher.calls
	require.Equal(t, query.ModeSearch, secondCall.req.Mode)

	// The newer response arrives first; the older one must not overwrite it.
	secondCall.resp <- fetchResult{page: rawPage(900, 20, 20)}
	firstCall.resp <- fetchResult{page: rawPage(1, 20, 100)}
	wg.Wait()

	assert.True(t, outcomes[0].Stale)
	assert.False(t, outcomes[1].Stale)
	assert.NoError(t, outcomes[1].Err)

	current := loader.Current()
	require.NotEmpty(t, current.Items)
	assert.Equal(t, 900, current.Items[0].ID)
}

func TestLoader_FailureKeepsPreviousResults(t *testing.T) {
	var fail bool
	fetcher := funcFetcher(func(ctx context.Context, req query.Request) (model.PageResponse, error) {
		if fail {
			return model.PageResponse{}, &service.APIError{StatusCode: 500, Status: "500 Internal Server Error"}
		}
		return rawPage(1, 20, 100), nil
	})
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""))

	state := actionDiscoverState()
	ok := loader.Load(context.Background(), state)
	require.NoError(t, ok.Err)

	fail = true
	state.Page = 2
	out := loader.Load(context.Background(), state)
	require.Error(t, out.Err)
	assert.Equal(t, service.KindRequest, out.Kind)
	assert.True(t, out.Kind.Retryable())
	assert.Len(t, out.Result.Items, 20)
	assert.Equal(t, 1, loader.Current().Page)
}

func TestLoader_TimeoutIsRetryable(t *testing.T) {
	fetcher := funcFetcher(func(ctx context.Context, req query.Request) (model.PageResponse, error) {
		<-ctx.Done()
		return model.PageResponse{}, ctx.Err()
	})
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""), WithTimeout(10*time.Millisecond))

	out := loader.Load(context.Background(), actionDiscoverState())
	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, service.ErrTimeout))
	assert.Equal(t, service.KindTimeout, out.Kind)
	assert.True(t, out.Kind.Retryable())
}

func TestLoader_AuthErrorIsNotRetryable(t *testing.T) {
	fetcher := funcFetcher(func(ctx context.Context, req query.Request) (model.PageResponse, error) {
		return model.PageResponse{}, &service.APIError{StatusCode: 401, Status: "401 Unauthorized"}
	})
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""))

	out := loader.Load(context.Background(), actionDiscoverState())
	assert.Equal(t, service.KindAuth, out.Kind)
	assert.False(t, out.Kind.Retryable())
}

func TestLoader_PreconditionSkipsFetch(t *testing.T) {
	fetcher := funcFetcher(func(ctx context.Context, req query.Request) (model.PageResponse, error) {
		t.Fatal("fetch must not run for an invalid state")
		return model.PageResponse{}, nil
	})
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""), WithLogger(zap.NewNop()))

	state := actionDiscoverState()
	state.Page = 0
	out := loader.Load(context.Background(), state)
	assert.Equal(t, service.KindPrecondition, out.Kind)
	assert.ErrorIs(t, out.Err, query.ErrPrecondition)
}

func TestLoader_CancelMarksInFlightStale(t *testing.T) {
	fetcher := newScriptedFetcher()
	loader := NewLoader(testLoaderBuilder(), fetcher, NewAccumulator(""))

	done := make(chan Outcome, 1)
	go func() {
		done <- loader.Load(context.Background(), actionDiscoverState())
	}()
	<-fetcher.calls

	loader.Cancel()
	out := <-done
	assert.True(t, out.Stale)
	assert.Empty(t, loader.Current().Items)
}
