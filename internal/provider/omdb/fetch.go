package omdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/omdb"
)

type searchResponse struct {
	apiResponse
	Search []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		ImdbID string `json:"imdbID"`
		Type   string `json:"Type"`
		Poster string `json:"Poster"`
	} `json:"Search"`
}

type seasonResponse struct {
	apiResponse
	Title    string `json:"Title"`
	Season   string `json:"Season"`
	Episodes []struct {
		Title   string `json:"Title"`
		Episode string `json:"Episode"`
		ImdbID  string `json:"imdbID"`
	} `json:"Episodes"`
}

// SearchShows lists series matching query. An exact title match, when OMDb
// has one, is placed first.
func (p *Provider) SearchShows(ctx context.Context, query string, lang core.Language) ([]core.ShowCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: "search query is required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shows []core.ShowCandidate
	if exact, ok := p.exactMatch(ctx, query, lang); ok {
		shows = append(shows, exact)
	}

	var resp searchResponse
	if err := p.getJSON(ctx, map[string]string{"s": query, "type": "series"}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		mapped := p.mapError(err)
		if !provider.IsNotFound(mapped) {
			return nil, mapped
		}
	}

	for _, r := range resp.Search {
		id := parseIMDbID(r.ImdbID)
		if id == 0 || (r.Type != "" && !strings.EqualFold(r.Type, "series")) {
			continue
		}
		if len(shows) > 0 && shows[0].ID == id {
			if shows[0].BannerURL == "" {
				shows[0].BannerURL = available(r.Poster)
			}
			continue
		}
		year, _ := strconv.Atoi(omdb.FirstYear(r.Year))
		shows = append(shows, core.ShowCandidate{
			ID:        id,
			Year:      year,
			Names:     core.Names{lang: available(r.Title)},
			BannerURL: available(r.Poster),
		})
	}

	p.logger.Debug().Str("query", query).Int("results", len(shows)).Msg("search")
	return shows, nil
}

// exactMatch resolves query as a complete series title.
func (p *Provider) exactMatch(ctx context.Context, query string, lang core.Language) (core.ShowCandidate, bool) {
	result, err := p.client.SearchByTitle(omdb.QueryData{Title: query, SearchType: "series"})
	if err != nil {
		p.logger.Debug().Err(err).Str("query", query).Msg("no exact title match")
		return core.ShowCandidate{}, false
	}
	series, ok := asSeries(result)
	if !ok || ctx.Err() != nil {
		return core.ShowCandidate{}, false
	}
	id := parseIMDbID(series.ImdbID)
	if id == 0 {
		return core.ShowCandidate{}, false
	}
	year, _ := strconv.Atoi(omdb.FirstYear(series.Year))
	seasons, _ := strconv.Atoi(available(series.TotalSeasons))
	return core.ShowCandidate{
		ID:          id,
		Year:        year,
		Names:       core.Names{lang: available(series.Title)},
		SeasonCount: seasons,
	}, true
}

func asSeries(result any) (omdb.SeriesResult, bool) {
	switch series := result.(type) {
	case omdb.SeriesResult:
		return series, true
	case *omdb.SeriesResult:
		if series != nil {
			return *series, true
		}
	}
	return omdb.SeriesResult{}, false
}

// FetchEpisodes lists every episode of the series with IMDb number showID.
func (p *Provider) FetchEpisodes(ctx context.Context, showID int, lang core.Language) ([]core.EpisodeRecord, error) {
	if showID <= 0 {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: "invalid show id"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := imdbID(showID)
	result, err := p.client.SearchByImdbID(omdb.QueryData{ImdbID: id})
	if err != nil {
		return nil, p.mapError(err)
	}
	series, ok := asSeries(result)
	if !ok {
		return nil, provider.NotFound(providerName, "%s is not a series", id)
	}
	total, _ := strconv.Atoi(available(series.TotalSeasons))
	showNames := core.Names{lang: available(series.Title)}

	var episodes []core.EpisodeRecord
	for season := 1; season <= total; season++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var resp seasonResponse
		if err := p.getJSON(ctx, map[string]string{"i": id, "Season": strconv.Itoa(season)}, &resp); err != nil {
			return nil, err
		}
		if err := resp.err(); err != nil {
			mapped := p.mapError(err)
			if provider.IsNotFound(mapped) {
				p.logger.Debug().Str("show", id).Int("season", season).Msg("season not found, skipping")
				continue
			}
			return nil, mapped
		}
		for _, ep := range resp.Episodes {
			number, err := strconv.Atoi(strings.TrimSpace(ep.Episode))
			if err != nil || number <= 0 {
				continue
			}
			episodes = append(episodes, core.EpisodeRecord{
				ID:        parseIMDbID(ep.ImdbID),
				Season:    season,
				Episode:   number,
				ShowNames: showNames,
				Names:     core.Names{lang: available(ep.Title)},
			})
		}
	}
	if len(episodes) == 0 {
		return nil, provider.NotFound(providerName, "no episodes found for %s", id)
	}

	episodes = core.MergeEpisodes(episodes)
	p.logger.Debug().Str("show", id).Int("episodes", len(episodes)).Msg("episodes")
	return episodes, nil
}
