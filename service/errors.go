package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"tmdb-finder-cli/query"
)

var (
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("tmdb api key is not configured")
	// ErrInvalidAPIKey is wrapped by 401 responses.
	ErrInvalidAPIKey = errors.New("tmdb rejected the api key")
	// ErrTimeout is returned when a fetch exceeds its time budget.
	ErrTimeout = errors.New("tmdb request timed out")
)

// APIError is returned when TMDB responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "tmdb api error"
	}
	return fmt.Sprintf("tmdb api error: %s: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e != nil && e.StatusCode == http.StatusUnauthorized {
		return ErrInvalidAPIKey
	}
	return nil
}

// IsNotFound reports whether the error represents a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// ErrorKind is the user-facing category of a failed fetch.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConfiguration
	KindAuth
	KindRequest
	KindTimeout
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindTimeout:
		return "timeout"
	case KindPrecondition:
		return "precondition"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Retryable reports whether offering a manual retry makes sense.
func (k ErrorKind) Retryable() bool {
	return k == KindRequest || k == KindTimeout
}

// Message is the text shown to the user for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindConfiguration:
		return "TMDB API key is missing. Set TMDB_API_KEY or tmdb.api_key in the config file."
	case KindAuth:
		return "TMDB rejected the API key (invalid credentials)."
	case KindTimeout:
		return "The catalog took too long to answer."
	case KindPrecondition:
		return "Internal error: invalid query."
	case KindRequest:
		return "Failed to load movies."
	default:
		return ""
	}
}

// Classify maps an error returned by this package or the query builder to
// its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return KindConfiguration
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		return KindAuth
	}
	if errors.Is(err, query.ErrPrecondition) {
		return KindPrecondition
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindRequest
}
