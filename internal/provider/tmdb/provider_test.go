package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/ryanbradynd05/go-tmdb"
)

// mockTMDBClient implements TMDBClient for testing
type mockTMDBClient struct {
	searchTvFunc        func(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	getTvInfoFunc       func(id int, options map[string]string) (*tmdb.TV, error)
	getTvSeasonInfoFunc func(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
	calls               atomic.Int32
}

func (m *mockTMDBClient) SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
	m.calls.Add(1)
	if m.searchTvFunc != nil {
		return m.searchTvFunc(name, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTMDBClient) GetTvInfo(id int, options map[string]string) (*tmdb.TV, error) {
	m.calls.Add(1)
	if m.getTvInfoFunc != nil {
		return m.getTvInfoFunc(id, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTMDBClient) GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error) {
	m.calls.Add(1)
	if m.getTvSeasonInfoFunc != nil {
		return m.getTvSeasonInfoFunc(showID, seasonID, options)
	}
	return nil, errors.New("not implemented")
}

// decode fills a go-tmdb response type from its JSON form.
func decode[T any](t *testing.T, raw string) *T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return &v
}

func newTestProvider(client TMDBClient, ttl time.Duration) *Provider {
	return NewWithClient(client, Options{CacheTTL: ttl, Logger: zerolog.Nop()})
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("  ", Options{})
	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.CodeAuthFailed {
		t.Fatalf("New() error = %v, want AUTH_FAILED", err)
	}
}

func TestProviderIdentity(t *testing.T) {
	p := newTestProvider(&mockTMDBClient{}, 0)
	if p.Name() != "tmdb" {
		t.Errorf("Name() = %q, want tmdb", p.Name())
	}
	if diff := cmp.Diff(core.AllLanguages(), p.Languages()); diff != "" {
		t.Errorf("Languages() mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchShows(t *testing.T) {
	var gotQuery string
	var gotOptions map[string]string
	client := &mockTMDBClient{
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			gotQuery, gotOptions = name, options
			return decode[tmdb.TvSearchResults](t, `{"results":[
				{"id":1399,"name":"Game of Thrones","original_name":"Game of Thrones","first_air_date":"2011-04-17","popularity":369.5,"backdrop_path":"/bg.jpg"},
				{"id":1234,"name":"Dark","original_name":"Dark (DE)","first_air_date":"","popularity":12}
			]}`), nil
		},
	}
	p := newTestProvider(client, 0)

	got, err := p.SearchShows(context.Background(), "  thrones ", core.German)
	if err != nil {
		t.Fatalf("SearchShows() error = %v", err)
	}
	if gotQuery != "thrones" {
		t.Errorf("query = %q, want trimmed", gotQuery)
	}
	if gotOptions["language"] != "de" {
		t.Errorf("language option = %q, want de", gotOptions["language"])
	}

	want := []core.ShowCandidate{
		{
			ID:         1399,
			Year:       2011,
			Names:      core.Names{core.German: "Game of Thrones"},
			BannerURL:  "https://image.tmdb.org/t/p/w400/bg.jpg",
			Popularity: 369.5,
		},
		{
			ID:         1234,
			Names:      core.Names{core.German: "Dark"},
			Popularity: 12,
			Aliases:    []string{"Dark (DE)"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchShows() mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchShowsEmptyQuery(t *testing.T) {
	client := &mockTMDBClient{}
	p := newTestProvider(client, 0)
	_, err := p.SearchShows(context.Background(), " ", core.English)
	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.CodeInvalid {
		t.Fatalf("SearchShows() error = %v, want INVALID_REQUEST", err)
	}
	if client.calls.Load() != 0 {
		t.Errorf("client called %d times, want 0", client.calls.Load())
	}
}

func TestSearchShowsCached(t *testing.T) {
	client := &mockTMDBClient{
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			return decode[tmdb.TvSearchResults](t, `{"results":[{"id":1,"name":"Lost","first_air_date":"2004-09-22"}]}`), nil
		},
	}
	p := newTestProvider(client, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := p.SearchShows(context.Background(), "Lost", core.English); err != nil {
			t.Fatalf("SearchShows() error = %v", err)
		}
	}
	if _, err := p.SearchShows(context.Background(), "lost", core.English); err != nil {
		t.Fatalf("SearchShows() error = %v", err)
	}
	if n := client.calls.Load(); n != 1 {
		t.Errorf("client called %d times, want 1", n)
	}

	// A different language is a different request.
	if _, err := p.SearchShows(context.Background(), "Lost", core.French); err != nil {
		t.Fatalf("SearchShows() error = %v", err)
	}
	if n := client.calls.Load(); n != 2 {
		t.Errorf("client called %d times, want 2", n)
	}
}

func TestSearchShowsErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantRetry bool
	}{
		{"unauthorized", errors.New("401 Unauthorized"), provider.CodeAuthFailed, false},
		{"rate_limited", errors.New("429 Too Many Requests"), provider.CodeRateLimited, true},
		{"not_found", errors.New("404 The resource you requested could not be found"), provider.CodeNotFound, false},
		{"unavailable", errors.New("503 Service Unavailable"), provider.CodeUnavailable, true},
		{"other", errors.New("connection reset"), provider.CodeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockTMDBClient{
				searchTvFunc: func(string, map[string]string) (*tmdb.TvSearchResults, error) {
					return nil, tt.err
				},
			}
			p := newTestProvider(client, time.Minute)

			_, err := p.SearchShows(context.Background(), "query", core.English)
			var pe *provider.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("SearchShows() error = %v, want ProviderError", err)
			}
			if pe.Code != tt.wantCode || pe.Retry != tt.wantRetry {
				t.Errorf("error code = %s retry = %v, want %s retry = %v", pe.Code, pe.Retry, tt.wantCode, tt.wantRetry)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error does not wrap the client error")
			}

			// Failures are not cached.
			_, _ = p.SearchShows(context.Background(), "query", core.English)
			if n := client.calls.Load(); n != 2 {
				t.Errorf("client called %d times, want 2", n)
			}
		})
	}
}

func seasonJSON(episodes ...string) string {
	out := `{"episodes":[`
	for i, name := range episodes {
		if i > 0 {
			out += ","
		}
		out += `{"id":` + strconv.Itoa(100+i) + `,"episode_number":` + strconv.Itoa(i+1) + `,"name":"` + name + `"}`
	}
	return out + `]}`
}

func TestFetchEpisodes(t *testing.T) {
	var mu sync.Mutex
	var seasonsAsked []int
	client := &mockTMDBClient{
		getTvInfoFunc: func(id int, options map[string]string) (*tmdb.TV, error) {
			if id != 42 {
				t.Errorf("GetTvInfo id = %d, want 42", id)
			}
			return decode[tmdb.TV](t, `{"id":42,"name":"Die Show","number_of_seasons":3}`), nil
		},
		getTvSeasonInfoFunc: func(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error) {
			mu.Lock()
			seasonsAsked = append(seasonsAsked, seasonID)
			mu.Unlock()
			if options["language"] != "de" {
				t.Errorf("season language = %q, want de", options["language"])
			}
			switch seasonID {
			case 1:
				return decode[tmdb.TvSeason](t, seasonJSON("Anfang", "Mitte")), nil
			case 2:
				return nil, errors.New("404 Not Found")
			default:
				return decode[tmdb.TvSeason](t, seasonJSON("Ende")), nil
			}
		},
	}
	p := newTestProvider(client, 0)

	got, err := p.FetchEpisodes(context.Background(), 42, core.German)
	if err != nil {
		t.Fatalf("FetchEpisodes() error = %v", err)
	}

	show := core.Names{core.German: "Die Show"}
	want := []core.EpisodeRecord{
		{ID: 100, Season: 1, Episode: 1, ShowNames: show, Names: core.Names{core.German: "Anfang"}},
		{ID: 101, Season: 1, Episode: 2, ShowNames: show, Names: core.Names{core.German: "Mitte"}},
		{ID: 100, Season: 3, Episode: 1, ShowNames: show, Names: core.Names{core.German: "Ende"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchEpisodes() mismatch (-want +got):\n%s", diff)
	}
	if len(seasonsAsked) != 3 {
		t.Errorf("asked for seasons %v, want 3 requests", seasonsAsked)
	}
}

func TestFetchEpisodesSeasonFailure(t *testing.T) {
	client := &mockTMDBClient{
		getTvInfoFunc: func(int, map[string]string) (*tmdb.TV, error) {
			return decode[tmdb.TV](t, `{"id":7,"name":"Show","number_of_seasons":2}`), nil
		},
		getTvSeasonInfoFunc: func(_, seasonID int, _ map[string]string) (*tmdb.TvSeason, error) {
			if seasonID == 2 {
				return nil, errors.New("503 Service Unavailable")
			}
			return decode[tmdb.TvSeason](t, seasonJSON("Pilot")), nil
		},
	}
	p := newTestProvider(client, 0)

	_, err := p.FetchEpisodes(context.Background(), 7, core.English)
	if !provider.IsRetryable(err) {
		t.Fatalf("FetchEpisodes() error = %v, want retryable provider error", err)
	}
}

func TestFetchEpisodesInvalidID(t *testing.T) {
	p := newTestProvider(&mockTMDBClient{}, 0)
	_, err := p.FetchEpisodes(context.Background(), 0, core.English)
	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.CodeInvalid {
		t.Fatalf("FetchEpisodes() error = %v, want INVALID_REQUEST", err)
	}
}

func TestFetchEpisodesCancelled(t *testing.T) {
	client := &mockTMDBClient{
		getTvInfoFunc: func(int, map[string]string) (*tmdb.TV, error) {
			return decode[tmdb.TV](t, `{"id":7,"name":"Show","number_of_seasons":1}`), nil
		},
	}
	p := newTestProvider(client, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.FetchEpisodes(ctx, 7, core.English); !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchEpisodes() error = %v, want context.Canceled", err)
	}
}

func TestCachePersistence(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "cache", "tmdb.gob")
	client := &mockTMDBClient{
		searchTvFunc: func(string, map[string]string) (*tmdb.TvSearchResults, error) {
			return decode[tmdb.TvSearchResults](t, `{"results":[{"id":5,"name":"Fargo","first_air_date":"2014-04-15"}]}`), nil
		},
	}
	opts := Options{CacheTTL: time.Hour, CacheFile: cacheFile, Logger: zerolog.Nop()}

	first := NewWithClient(client, opts)
	want, err := first.SearchShows(context.Background(), "Fargo", core.English)
	if err != nil {
		t.Fatalf("SearchShows() error = %v", err)
	}
	if err := first.SaveCache(); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}

	offline := &mockTMDBClient{}
	second := NewWithClient(offline, opts)
	got, err := second.SearchShows(context.Background(), "Fargo", core.English)
	if err != nil {
		t.Fatalf("SearchShows() from cache error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached result mismatch (-want +got):\n%s", diff)
	}
	if offline.calls.Load() != 0 {
		t.Errorf("client called %d times, want 0", offline.calls.Load())
	}
}

func TestParseYear(t *testing.T) {
	tests := map[string]int{
		"2008-01-20": 2008,
		"1999":       1999,
		"":           0,
		"20":         0,
		"abcd-01-01": 0,
	}
	for in, want := range tests {
		if got := parseYear(in); got != want {
			t.Errorf("parseYear(%q) = %d, want %d", in, got, want)
		}
	}
}
