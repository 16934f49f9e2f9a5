package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/query"
)

const (
	DefaultBaseURL        = "https://api.themoviedb.org/3"
	DefaultRetryBase      = 200 * time.Millisecond
	DefaultRetryCap       = 1200 * time.Millisecond
	DefaultRateBurst      = 10
	defaultUserAgent      = "tmdb-finder-cli"
	defaultMaxAttempts    = 3
	defaultRequestsPerSec = 20
)

// Client wraps HTTP access to the TMDB v3 API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	imageBaseURL string
	language     string
	userAgent    string
	maxAttempts  int
	retryBase    time.Duration
	retryCap     time.Duration
	limiter      *rate.Limiter
	group        singleflight.Group
	log          *zap.Logger

	flightMu sync.Mutex
	flights  map[string]*flight
}

// flight is the context shared by every caller waiting on one upstream
// call. It is cancelled when the last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithImageBaseURL(imageBaseURL string) Option {
	return func(c *Client) {
		if imageBaseURL != "" {
			c.imageBaseURL = imageBaseURL
		}
	}
}

func WithLanguage(language string) Option {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetry sets the attempt budget for transient failures (429 and 5xx).
func WithRetry(maxAttempts int, base time.Duration, cap time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		if base > 0 {
			c.retryBase = base
		}
		if cap > 0 {
			c.retryCap = cap
		}
	}
}

// WithRateLimit bounds outgoing requests. A non-positive rate disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a new API client. If httpClient is nil, a default client is used.
func NewClient(httpClient *http.Client, apiKey string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	c := &Client{
		httpClient:   httpClient,
		baseURL:      DefaultBaseURL,
		apiKey:       strings.TrimSpace(apiKey),
		imageBaseURL: model.DefaultImageBaseURL,
		language:     query.DefaultLanguage,
		userAgent:    defaultUserAgent,
		maxAttempts:  defaultMaxAttempts,
		retryBase:    DefaultRetryBase,
		retryCap:     DefaultRetryCap,
		limiter:      rate.NewLimiter(rate.Limit(defaultRequestsPerSec), DefaultRateBurst),
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ImageBaseURL() string {
	return c.imageBaseURL
}

func (c *Client) Language() string {
	return c.language
}

// Fetch runs a request produced by the query builder.
func (c *Client) Fetch(ctx context.Context, req query.Request) (model.PageResponse, error) {
	if c.apiKey == "" {
		return model.PageResponse{}, ErrMissingAPIKey
	}
	var page model.PageResponse
	if err := c.getJSON(ctx, req.URL(c.baseURL, c.apiKey), &page); err != nil {
		return model.PageResponse{}, err
	}
	return page, nil
}

// Popular lists /movie/popular.
func (c *Client) Popular(ctx context.Context, page int) (model.PageResponse, error) {
	return c.list(ctx, "/movie/popular", page, nil)
}

// NowPlaying lists /movie/now_playing.
func (c *Client) NowPlaying(ctx context.Context, page int) (model.PageResponse, error) {
	return c.list(ctx, "/movie/now_playing", page, nil)
}

// TopRated lists /movie/top_rated.
func (c *Client) TopRated(ctx context.Context, page int) (model.PageResponse, error) {
	return c.list(ctx, "/movie/top_rated", page, nil)
}

// Upcoming lists /movie/upcoming.
func (c *Client) Upcoming(ctx context.Context, page int) (model.PageResponse, error) {
	return c.list(ctx, "/movie/upcoming", page, nil)
}

// TrendingWeek lists this week's trending movies.
func (c *Client) TrendingWeek(ctx context.Context) (model.PageResponse, error) {
	return c.list(ctx, "/trending/movie/week", 0, nil)
}

// ByGenre discovers movies of a single genre.
func (c *Client) ByGenre(ctx context.Context, genreID int, page int) (model.PageResponse, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	return c.list(ctx, "/discover/movie", page, params)
}

// Similar lists movies similar to movieID.
func (c *Client) Similar(ctx context.Context, movieID int, page int) (model.PageResponse, error) {
	if movieID <= 0 {
		return model.PageResponse{}, errors.New("movie id is required")
	}
	return c.list(ctx, fmt.Sprintf("/movie/%d/similar", movieID), page, nil)
}

// Detail fetches /movie/{id}.
func (c *Client) Detail(ctx context.Context, movieID int) (model.MovieDetail, error) {
	if movieID <= 0 {
		return model.MovieDetail{}, errors.New("movie id is required")
	}
	if c.apiKey == "" {
		return model.MovieDetail{}, ErrMissingAPIKey
	}
	var detail model.MovieDetail
	if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/movie/%d", movieID), nil), &detail); err != nil {
		return model.MovieDetail{}, err
	}
	return detail, nil
}

// VerifyAPIKey asks TMDB for a request token, which only succeeds with a
// valid key. A rejected key is reported as (false, nil).
func (c *Client) VerifyAPIKey(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, ErrMissingAPIKey
	}
	var out struct {
		Success bool `json:"success"`
	}
	err := c.getJSON(ctx, c.endpoint("/authentication/token/new", nil), &out)
	if errors.Is(err, ErrInvalidAPIKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) list(ctx context.Context, path string, page int, params url.Values) (model.PageResponse, error) {
	if c.apiKey == "" {
		return model.PageResponse{}, ErrMissingAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	var out model.PageResponse
	if err := c.getJSON(ctx, c.endpoint(path, params), &out); err != nil {
		return model.PageResponse{}, err
	}
	return out, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	return c.baseURL + path + "?" + params.Encode()
}

// getJSON fetches endpoint and decodes the body into out. Identical
// in-flight requests share one upstream call.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	ch := c.join(endpoint)
	defer c.leave(endpoint)

	var body []byte
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		body, _ = res.Val.([]byte)
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", redact(endpoint), err)
	}
	return nil
}

// join registers a waiter for endpoint and returns the shared result
// channel. The upstream call outlives any single waiter but not all of them.
func (c *Client) join(endpoint string) <-chan singleflight.Result {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	if c.flights == nil {
		c.flights = map[string]*flight{}
	}
	f, ok := c.flights[endpoint]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &flight{ctx: ctx, cancel: cancel}
		c.flights[endpoint] = f
	}
	f.waiters++
	return c.group.DoChan(endpoint, func() (any, error) {
		return c.fetchBody(f.ctx, endpoint)
	})
}

func (c *Client) leave(endpoint string) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	f, ok := c.flights[endpoint]
	if !ok {
		return
	}
	f.waiters--
	if f.waiters > 0 {
		return
	}
	// Later callers must start a fresh call instead of joining a cancelled one.
	c.group.Forget(endpoint)
	f.cancel()
	delete(c.flights, endpoint)
}

func (c *Client) fetchBody(ctx context.Context, endpoint string) ([]byte, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	requestID := uuid.NewString()
	log := c.log.With(zap.String("request_id", requestID), zap.String("endpoint", redact(endpoint)))

	var body []byte
	started := time.Now()
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
			var err error
			body, err = c.doOnce(ctx, endpoint, requestID)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts)),
		retry.Delay(c.retryBase),
		retry.MaxDelay(c.retryCap),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(c.shouldRetry),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("retrying tmdb request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		log.Debug("tmdb request failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, err
	}
	log.Debug("tmdb request done", zap.Duration("elapsed", time.Since(started)), zap.Int("bytes", len(body)))
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, endpoint string, requestID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Endpoint:   redact(endpoint),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", redact(endpoint), err)
	}
	return body, nil
}

func (c *Client) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return c.shouldRetryStatus(apiErr.StatusCode)
	}
	return c.shouldRetryNetworkError(err)
}

func (c *Client) shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// redact strips the api key from an endpoint before it is logged or
// embedded in an error.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
