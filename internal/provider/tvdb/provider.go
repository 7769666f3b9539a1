package tvdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"
	"github.com/rs/zerolog"
)

const (
	providerName = "tvdb"
	// maxSeasons bounds season probing for shows whose listing never ends.
	maxSeasons = 100
)

// TVDBClient captures the dashotv client methods used by this provider.
type TVDBClient interface {
	GetSearchResults(request operations.GetSearchResultsRequest) (*tvdbapi.GetSearchResultsResponse, error)
	GetSeriesEpisodes(request operations.GetSeriesEpisodesRequest) (*tvdbapi.GetSeriesEpisodesResponse, error)
}

// Provider is the TheTVDB catalog. Only English names are requested; the
// search and episode endpoints it uses are not localized.
type Provider struct {
	apiKey string
	logger zerolog.Logger

	mu     sync.Mutex
	client TVDBClient
}

// New creates a TVDB catalog. Login happens on first use.
func New(apiKey string, logger zerolog.Logger) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeAuthFailed, Message: "TVDB api key is required"}
	}
	return &Provider{apiKey: apiKey, logger: componentLogger(logger)}, nil
}

// NewWithClient creates a TVDB catalog around an authenticated client.
func NewWithClient(client TVDBClient, logger zerolog.Logger) *Provider {
	return &Provider{client: client, logger: componentLogger(logger)}
}

func componentLogger(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Str("component", "catalog").Str("catalog", providerName).Logger()
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Languages returns the languages this catalog answers in.
func (p *Provider) Languages() []core.Language {
	return []core.Language{core.English}
}

func (p *Provider) connect() (TVDBClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := tvdbapi.Login(p.apiKey)
	if err != nil {
		return nil, p.mapError(err)
	}
	p.client = client
	p.logger.Debug().Msg("logged in")
	return p.client, nil
}

// SearchShows searches TVDB for series matching query.
func (p *Provider) SearchShows(ctx context.Context, query string, lang core.Language) ([]core.ShowCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: "search query is required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := p.connect()
	if err != nil {
		return nil, err
	}

	typeSeries := "series"
	resp, err := client.GetSearchResults(operations.GetSearchResultsRequest{Query: &query, Type: &typeSeries})
	if err != nil {
		return nil, p.mapError(err)
	}
	if resp == nil {
		return nil, nil
	}

	shows := make([]core.ShowCandidate, 0, len(resp.Data))
	for _, result := range resp.Data {
		if t := pointerToString(result.Type); t != "" && !strings.EqualFold(t, "series") {
			continue
		}
		show, ok := toCandidate(result, lang)
		if !ok {
			continue
		}
		shows = append(shows, show)
	}
	p.logger.Debug().Str("query", query).Int("results", len(shows)).Msg("search")
	return shows, nil
}

// FetchEpisodes lists the official-order episodes of showID, probing
// seasons from 1 until one comes back empty.
func (p *Provider) FetchEpisodes(ctx context.Context, showID int, lang core.Language) ([]core.EpisodeRecord, error) {
	if showID <= 0 {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: fmt.Sprintf("invalid show id %d", showID)}
	}
	client, err := p.connect()
	if err != nil {
		return nil, err
	}

	var episodes []core.EpisodeRecord
	for season := 1; season <= maxSeasons; season++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seasonNum := int64(season)
		resp, err := client.GetSeriesEpisodes(operations.GetSeriesEpisodesRequest{
			ID:         float64(showID),
			SeasonType: "official",
			Season:     &seasonNum,
			Page:       0,
		})
		if err != nil {
			mapped := p.mapError(err)
			if provider.IsNotFound(mapped) && season > 1 {
				break
			}
			return nil, mapped
		}
		if resp == nil || resp.Data == nil || len(resp.Data.Episodes) == 0 {
			break
		}

		showNames := core.Names{}
		if resp.Data.Series != nil {
			if name := pointerToString(resp.Data.Series.Name); name != "" {
				showNames[lang] = name
			}
		}
		for _, ep := range resp.Data.Episodes {
			number := pointerToInt64(ep.Number)
			if number <= 0 {
				continue
			}
			episodes = append(episodes, core.EpisodeRecord{
				Season:    season,
				Episode:   int(number),
				ShowNames: showNames,
				Names:     core.Names{lang: pointerToString(ep.Name)},
			})
		}
	}
	if len(episodes) == 0 {
		return nil, provider.NotFound(providerName, "no episodes found for show %d", showID)
	}

	episodes = core.MergeEpisodes(episodes)
	p.logger.Debug().Int("show", showID).Int("episodes", len(episodes)).Msg("episodes")
	return episodes, nil
}

func toCandidate(result shared.SearchResult, lang core.Language) (core.ShowCandidate, bool) {
	id := parseInt64(pointerToString(result.TvdbID))
	if id == 0 {
		id = parseInt64(strings.TrimPrefix(pointerToString(result.ID), "series-"))
	}
	name := firstNonEmptyString(pointerToString(result.Name), pointerToString(result.NameTranslated), pointerToString(result.Title))
	if id == 0 || name == "" {
		return core.ShowCandidate{}, false
	}
	year, _ := strconv.Atoi(pointerToString(result.Year))
	return core.ShowCandidate{
		ID:    int(id),
		Year:  year,
		Names: core.Names{lang: name},
	}, true
}

func pointerToString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func pointerToInt64(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

func parseInt64(value string) int64 {
	parsed, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return parsed
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "apikey"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeAuthFailed, Message: "TVDB authentication failed: " + msg, Err: err}
	case strings.Contains(lower, "429"), strings.Contains(lower, "too many"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeRateLimited, Message: msg, Retry: true, RetryAfter: 5, Err: err}
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeNotFound, Message: msg, Err: err}
	case strings.Contains(lower, "503"), strings.Contains(lower, "unavailable"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeUnavailable, Message: msg, Retry: true, RetryAfter: 30, Err: err}
	default:
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeUnknown, Message: msg, Err: err}
	}
}
