package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Digital-Shane/episode-renamer/internal/core"
)

// Catalog is a remote TV metadata source. Implementations must be safe for
// concurrent use; searches for several languages run in parallel.
type Catalog interface {
	Name() string
	// Languages lists the languages the catalog can answer in.
	Languages() []core.Language
	SearchShows(ctx context.Context, query string, lang core.Language) ([]core.ShowCandidate, error)
	FetchEpisodes(ctx context.Context, showID int, lang core.Language) ([]core.EpisodeRecord, error)
}

// Error codes carried by ProviderError.
const (
	CodeAuthFailed  = "AUTH_FAILED"
	CodeRateLimited = "RATE_LIMITED"
	CodeNotFound    = "NOT_FOUND"
	CodeUnavailable = "UNAVAILABLE"
	CodeInvalid     = "INVALID_REQUEST"
	CodeUnknown     = "UNKNOWN"
)

// ErrNoCatalog is returned when no usable catalog is configured.
var ErrNoCatalog = errors.New("no catalog configured")

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NotFound builds a NOT_FOUND error for provider.
func NotFound(provider, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     CodeNotFound,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retry
}

// IsNotFound reports whether err is a NOT_FOUND provider error.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == CodeNotFound
}
