package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/mhmtszr/concurrent-swiss-map"
	"golang.org/x/sync/errgroup"
)

// SearchShows searches TMDB for TV shows matching query in lang.
func (p *Provider) SearchShows(ctx context.Context, query string, lang core.Language) ([]core.ShowCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  "search query is required",
		}
	}

	cacheKey := fmt.Sprintf("search|%s|%s", lang.Code(), strings.ToLower(query))
	if cached, ok := p.cached(cacheKey); ok {
		if shows, ok := cached.([]core.ShowCandidate); ok {
			return shows, nil
		}
	}

	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	results, err := p.client.SearchTv(query, map[string]string{"language": lang.Code()})
	if err != nil {
		return nil, p.mapError(err)
	}

	var shows []core.ShowCandidate
	if results != nil {
		shows = make([]core.ShowCandidate, 0, len(results.Results))
		for _, r := range results.Results {
			show := core.ShowCandidate{
				ID:         r.ID,
				Year:       parseYear(r.FirstAirDate),
				Names:      core.Names{lang: r.Name},
				Popularity: float64(r.Popularity),
			}
			if r.BackdropPath != "" {
				show.BannerURL = imageBaseURL + r.BackdropPath
			}
			if r.OriginalName != "" && r.OriginalName != r.Name {
				show.Aliases = []string{r.OriginalName}
			}
			shows = append(shows, show)
		}
	}

	p.store(cacheKey, shows)
	p.logger.Debug().Str("query", query).Str("language", lang.Code()).Int("results", len(shows)).Msg("search")
	return shows, nil
}

// FetchEpisodes fetches every episode of showID in lang. Seasons are fetched
// concurrently; a season TMDB does not know is skipped.
func (p *Provider) FetchEpisodes(ctx context.Context, showID int, lang core.Language) ([]core.EpisodeRecord, error) {
	if showID <= 0 {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  fmt.Sprintf("invalid show id %d", showID),
		}
	}

	cacheKey := fmt.Sprintf("episodes|%d|%s", showID, lang.Code())
	if cached, ok := p.cached(cacheKey); ok {
		if episodes, ok := cached.([]core.EpisodeRecord); ok {
			return episodes, nil
		}
	}

	options := map[string]string{"language": lang.Code()}

	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}
	show, err := p.client.GetTvInfo(showID, options)
	if err != nil {
		return nil, p.mapError(err)
	}
	if show == nil {
		return nil, provider.NotFound(providerName, "show %d not found", showID)
	}
	showNames := core.Names{lang: show.Name}

	seasons := csmap.Create[int, []core.EpisodeRecord]()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seasonWorkers)
	for season := 1; season <= show.NumberOfSeasons; season++ {
		g.Go(func() error {
			if err := p.rateLimiter.wait(gctx); err != nil {
				return err
			}
			info, err := p.client.GetTvSeasonInfo(showID, season, options)
			if err != nil {
				mapped := p.mapError(err)
				if provider.IsNotFound(mapped) {
					p.logger.Debug().Int("show", showID).Int("season", season).Msg("season not found, skipping")
					return nil
				}
				return mapped
			}
			if info == nil {
				return nil
			}
			records := make([]core.EpisodeRecord, 0, len(info.Episodes))
			for _, ep := range info.Episodes {
				records = append(records, core.EpisodeRecord{
					ID:        ep.ID,
					Season:    season,
					Episode:   ep.EpisodeNumber,
					ShowNames: showNames,
					Names:     core.Names{lang: ep.Name},
				})
			}
			seasons.Store(season, records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var episodes []core.EpisodeRecord
	for season := 1; season <= show.NumberOfSeasons; season++ {
		if records, ok := seasons.Load(season); ok {
			episodes = append(episodes, records...)
		}
	}
	episodes = core.MergeEpisodes(episodes)

	p.store(cacheKey, episodes)
	p.logger.Debug().Int("show", showID).Str("language", lang.Code()).
		Int("seasons", seasons.Count()).Int("episodes", len(episodes)).Msg("episodes")
	return episodes, nil
}

// parseYear returns the year of a YYYY-MM-DD date, or 0.
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
