package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/query"
)

func newTestClient(server *httptest.Server, apiKey string) *Client {
	return NewClient(server.Client(), apiKey,
		WithBaseURL(server.URL),
		WithRetry(1, time.Millisecond, 2*time.Millisecond),
		WithRateLimit(0, 0),
	)
}

func TestGetJSON_Non2xxReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/fail", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind := Classify(err); kind != KindRequest {
		t.Fatalf("expected request kind, got %s", kind)
	}
}

func TestGetJSON_RetriesTransientServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&attempts, 1)
		if current < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("retry later"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := newTestClient(server, "key")
	client.maxAttempts = 3

	var out map[string]any
	if err := client.getJSON(context.Background(), server.URL+"/retry", &out); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if ok, _ := out["ok"].(bool); !ok {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestGetJSON_RetriesRateLimited(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	}))
	defer server.Close()

	client := newTestClient(server, "key")
	client.maxAttempts = 2

	if _, err := client.Popular(context.Background(), 1); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestGetJSON_DoesNotRetryOnClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer server.Close()

	client := newTestClient(server, "key")
	client.maxAttempts = 3

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/bad-request", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestGetJSON_ErrorsDoNotLeakAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server, "super-secret")

	_, err := client.Detail(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if strings.Contains(apiErr.Endpoint, "super-secret") {
		t.Fatalf("endpoint leaks api key: %s", apiErr.Endpoint)
	}
}

func TestFetch_UnauthorizedIsAuthError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
	}))
	defer server.Close()

	client := newTestClient(server, "wrong")
	client.maxAttempts = 3

	req, err := query.NewBuilder("en-US").Build(model.DefaultQueryState(time.Now()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = client.Fetch(context.Background(), req)
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected invalid api key, got %v", err)
	}
	if kind := Classify(err); kind != KindAuth {
		t.Fatalf("expected auth kind, got %s", kind)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("401 must not be retried, got %d attempts", attempts)
	}
}

func TestFetch_MissingKeyMakesNoRequest(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer server.Close()

	client := newTestClient(server, "   ")

	_, err := client.Fetch(context.Background(), query.Request{Endpoint: query.DiscoverEndpoint})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key, got %v", err)
	}
	if kind := Classify(err); kind != KindConfiguration || kind.Retryable() {
		t.Fatalf("unexpected kind %s", kind)
	}
	if atomic.LoadInt32(&attempts) != 0 {
		t.Fatalf("expected no request, got %d", attempts)
	}
}

func TestFetch_DiscoverOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" {
			t.Fatalf("missing api key: %s", r.URL.RawQuery)
		}
		if q.Get("with_genres") != "18,28" {
			t.Fatalf("unexpected genres: %s", q.Get("with_genres"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "page": 1,
  "total_pages": 3,
  "total_results": 55,
  "results": [
    {"id": 1, "title": "Heat", "poster_path": "/heat.jpg", "vote_average": 8.3, "genre_ids": [28, 80, 9999]},
    {"id": 2, "title": "", "original_title": "Ran", "poster_path": null, "vote_average": 8.1, "genre_ids": [18]}
  ]
}`))
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	state := model.DefaultQueryState(time.Now())
	state.Genres = []int{28, 18}
	req, err := query.NewBuilder("en-US").Build(state)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	page, err := client.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if page.TotalResults != 55 || len(page.Results) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Results[1].PosterPath != nil {
		t.Fatalf("expected nil poster path, got %v", *page.Results[1].PosterPath)
	}

	items := model.NewCatalogItems(page.Results, client.ImageBaseURL())
	if items[0].Image != model.DefaultImageBaseURL+"/heat.jpg" {
		t.Fatalf("unexpected image: %s", items[0].Image)
	}
	if len(items[0].Genres) != 2 {
		t.Fatalf("unknown genre should be dropped: %v", items[0].Genres)
	}
	if items[1].Title != "Ran" || items[1].Image != model.PlaceholderImage {
		t.Fatalf("unexpected fallback item: %+v", items[1])
	}
}

func TestDetailAndSimilar_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movie/603":
			_, _ = w.Write([]byte(`{"id": 603, "title": "The Matrix", "runtime": 136, "genres": [{"id": 28, "name": "Action"}]}`))
		case "/movie/603/similar":
			if r.URL.Query().Get("page") != "1" {
				t.Fatalf("unexpected query: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"page": 1, "results": [{"id": 604, "title": "The Matrix Reloaded"}], "total_pages": 1, "total_results": 1}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	detail, err := client.Detail(context.Background(), 603)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if detail.Runtime != 136 || detail.Raw().GenreIDs[0] != 28 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	similar, err := client.Similar(context.Background(), 603, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(similar.Results) != 1 || similar.Results[0].ID != 604 {
		t.Fatalf("unexpected similar: %+v", similar)
	}
}

func TestVerifyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/authentication/token/new" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "request_token": "abc"}`))
	}))
	defer server.Close()

	ok, err := newTestClient(server, "good").VerifyAPIKey(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected valid key, got %v %v", ok, err)
	}

	ok, err = newTestClient(server, "bad").VerifyAPIKey(context.Background())
	if err != nil || ok {
		t.Fatalf("expected rejected key, got %v %v", ok, err)
	}
}

func TestGetJSON_CallerDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Popular(ctx, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := Classify(err); kind != KindTimeout || !kind.Retryable() {
		t.Fatalf("expected retryable timeout, got %s (%v)", kind, err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"missing key", ErrMissingAPIKey, KindConfiguration},
		{"unauthorized", &APIError{StatusCode: http.StatusUnauthorized}, KindAuth},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, KindRequest},
		{"timeout", ErrTimeout, KindTimeout},
		{"precondition", &query.PreconditionError{Field: "page", Reason: "zero"}, KindPrecondition},
		{"other", errors.New("connection reset"), KindRequest},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestGetJSON_LastWaiterLeavingCancelsUpstream(t *testing.T) {
	cancelled := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			once.Do(func() { close(cancelled) })
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Popular(ctx, 1); err == nil {
		t.Fatal("expected error")
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request kept running after its only caller left")
	}

	client.flightMu.Lock()
	defer client.flightMu.Unlock()
	if len(client.flights) != 0 {
		t.Fatalf("expected no pending flights, got %d", len(client.flights))
	}
}

func TestGetJSON_CallAfterAbandonedOneStartsFresh(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":1,"total_results":0}`))
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Popular(ctx, 1); err == nil {
		t.Fatal("expected error")
	}

	resp, err := client.Popular(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected fresh call to succeed, got %v", err)
	}
	if resp.Page != 1 {
		t.Fatalf("unexpected page %d", resp.Page)
	}
}
