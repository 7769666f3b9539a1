// Package setup builds the configured catalogs. It lives apart from
// provider so the adapters can import provider without a cycle.
package setup

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Digital-Shane/episode-renamer/internal/config"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/episode-renamer/internal/provider/ffprobe"
	"github.com/Digital-Shane/episode-renamer/internal/provider/omdb"
	"github.com/Digital-Shane/episode-renamer/internal/provider/tmdb"
	"github.com/Digital-Shane/episode-renamer/internal/provider/tvdb"
	"github.com/rs/zerolog"
)

// Catalog priorities; the highest wins when the configured one is missing.
const (
	tmdbPriority = 100
	tvdbPriority = 95
	omdbPriority = 90
)

// Options tunes Load.
type Options struct {
	// CacheDir holds persisted catalog response caches. Empty disables
	// persistence.
	CacheDir string
	Logger   zerolog.Logger
}

// Catalogs is the set of usable catalogs plus optional helpers.
type Catalogs struct {
	Registry *provider.Registry
	// Prober is nil unless probe_details is enabled.
	Prober *ffprobe.Prober

	logger zerolog.Logger
	savers []func() error
}

// Load registers every catalog that has an API key. A catalog that fails to
// initialize is logged and skipped.
func Load(cfg *config.Config, opts Options) (*Catalogs, error) {
	c := &Catalogs{
		Registry: provider.NewRegistry(),
		logger:   opts.Logger.With().Str("component", "setup").Logger(),
	}

	if key := cfg.TMDBAPIKey; key != "" {
		tmdbOpts := tmdb.Options{CacheTTL: cfg.CacheTTL(), Logger: opts.Logger}
		if opts.CacheDir != "" {
			tmdbOpts.CacheFile = filepath.Join(opts.CacheDir, "tmdb.gob")
		}
		p, err := tmdb.New(key, tmdbOpts)
		if err := c.register(p, err, tmdbPriority); err != nil {
			return nil, err
		}
		if p != nil {
			c.savers = append(c.savers, p.SaveCache)
		}
	}
	if key := cfg.TVDBAPIKey; key != "" {
		p, err := tvdb.New(key, opts.Logger)
		if err := c.register(p, err, tvdbPriority); err != nil {
			return nil, err
		}
	}
	if key := cfg.OMDBAPIKey; key != "" {
		p, err := omdb.New(key, nil, opts.Logger)
		if err := c.register(p, err, omdbPriority); err != nil {
			return nil, err
		}
	}

	if cfg.ProbeDetails {
		c.Prober = ffprobe.New(opts.Logger)
	}

	c.logger.Debug().Strs("catalogs", c.Registry.List()).Msg("catalogs loaded")
	return c, nil
}

// register adds catalog unless construction failed. Only registry errors are
// returned.
func (c *Catalogs) register(catalog provider.Catalog, err error, priority int) error {
	if err != nil {
		c.logger.Warn().Err(err).Msg("catalog disabled")
		return nil
	}
	if err := c.Registry.Register(catalog, priority); err != nil {
		return fmt.Errorf("failed to register catalog: %w", err)
	}
	return nil
}

// Multi returns the multi-language wrapper around the preferred catalog.
func (c *Catalogs) Multi(preferred string, logger zerolog.Logger) (*provider.Multi, error) {
	catalog, err := c.Registry.Select(preferred)
	if err != nil {
		return nil, err
	}
	if catalog.Name() != preferred {
		c.logger.Warn().Str("preferred", preferred).Str("using", catalog.Name()).Msg("preferred catalog unavailable")
	}
	return provider.NewMulti(catalog, logger), nil
}

// Close persists catalog caches.
func (c *Catalogs) Close() error {
	var errs []error
	for _, save := range c.savers {
		if err := save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
