package tmdb

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/ryanbradynd05/go-tmdb"
)

const (
	providerName = "tmdb"
	imageBaseURL = "https://image.tmdb.org/t/p/w400"
	// seasonWorkers bounds concurrent season requests for one show.
	seasonWorkers = 4
)

func init() {
	gob.Register([]core.ShowCandidate{})
	gob.Register([]core.EpisodeRecord{})
}

// TMDBClient interface for testing (matches *tmdb.TMDb)
type TMDBClient interface {
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
}

// Options configures the TMDB catalog.
type Options struct {
	// CacheTTL is how long responses are cached. Zero disables the cache.
	CacheTTL time.Duration
	// CacheFile persists the response cache between runs when set.
	CacheFile string
	Logger    zerolog.Logger
}

// Provider is the TMDB catalog.
type Provider struct {
	client      TMDBClient
	cache       *cache.Cache
	cacheFile   string
	rateLimiter *rateLimiter
	logger      zerolog.Logger
}

// New creates a TMDB catalog for apiKey.
func New(apiKey string, opts Options) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "TMDB api key is required",
		}
	}
	client := tmdb.Init(tmdb.Config{
		APIKey:   apiKey,
		Proxies:  nil,
		UseProxy: false,
	})
	return NewWithClient(client, opts), nil
}

// NewWithClient creates a TMDB catalog around an existing client.
func NewWithClient(client TMDBClient, opts Options) *Provider {
	p := &Provider{
		client:      client,
		rateLimiter: newRateLimiter(38, 10*time.Second), // 38 requests per 10 seconds
		logger:      opts.Logger.With().Str("component", "catalog").Str("catalog", providerName).Logger(),
	}
	if opts.CacheTTL > 0 {
		p.cache = cache.New(opts.CacheTTL, 10*time.Minute)
		p.cacheFile = opts.CacheFile
		if p.cacheFile != "" {
			if _, err := os.Stat(p.cacheFile); err == nil {
				if err := p.cache.LoadFile(p.cacheFile); err != nil {
					p.logger.Warn().Err(err).Str("file", p.cacheFile).Msg("ignoring unreadable cache file")
				}
			}
		}
	}
	return p
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Languages returns every supported language; TMDB translates titles.
func (p *Provider) Languages() []core.Language {
	return core.AllLanguages()
}

// SaveCache persists the cache to disk
func (p *Provider) SaveCache() error {
	if p.cache == nil || p.cacheFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.cacheFile), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return p.cache.SaveFile(p.cacheFile)
}

func (p *Provider) cached(key string) (any, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Get(key)
}

func (p *Provider) store(key string, value any) {
	if p.cache != nil {
		p.cache.SetDefault(key, value)
	}
}

// mapError maps TMDB errors to provider errors
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "TMDB authentication failed: " + err.Error(),
			Err:      err,
		}
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit"):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    "TMDB rate limit exceeded",
			Retry:      true,
			RetryAfter: 10,
			Err:        err,
		}
	case strings.Contains(errStr, "404") || strings.Contains(errStr, "could not be found"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "TMDB resource not found",
			Err:      err,
		}
	case strings.Contains(errStr, "503") || strings.Contains(errStr, "unavailable"):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeUnavailable,
			Message:    "TMDB service unavailable",
			Retry:      true,
			RetryAfter: 30,
			Err:        err,
		}
	}

	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeUnknown,
		Message:  "TMDB error: " + err.Error(),
		Retry:    true,
		Err:      err,
	}
}
