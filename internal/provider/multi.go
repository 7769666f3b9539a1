package provider

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxParallelLanguages = 4

var (
	// meaningfulNameRe rejects names made only of punctuation or non-latin
	// script, which cannot be matched against a typed query.
	meaningfulNameRe = regexp.MustCompile(`[A-Za-z0-9]`)
	yearSuffixRe     = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)
)

// Multi queries a catalog once per language and merges the answers.
// A language that fails is logged and skipped; a call fails only when every
// language failed.
type Multi struct {
	catalog Catalog
	logger  zerolog.Logger
}

// NewMulti wraps catalog.
func NewMulti(catalog Catalog, logger zerolog.Logger) *Multi {
	return &Multi{
		catalog: catalog,
		logger:  logger.With().Str("component", "catalog").Str("catalog", catalog.Name()).Logger(),
	}
}

// Catalog returns the wrapped catalog.
func (m *Multi) Catalog() Catalog {
	return m.catalog
}

// Languages returns the languages of langs the catalog supports, in order.
// When it supports none of them its first language is used instead.
func (m *Multi) Languages(langs []core.Language) []core.Language {
	supported := m.catalog.Languages()
	var out []core.Language
	for _, l := range langs {
		if slices.Contains(supported, l) && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	if len(out) == 0 && len(supported) > 0 {
		out = append(out, supported[0])
	}
	return out
}

// Search finds shows matching query in every language, merges candidates by
// catalog ID and returns them ranked for query.
func (m *Multi) Search(ctx context.Context, query string, langs []core.Language) ([]core.ShowCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ProviderError{Provider: m.catalog.Name(), Code: CodeInvalid, Message: "empty search query"}
	}

	langs = m.Languages(langs)
	results, err := fanOut(ctx, m, langs, func(ctx context.Context, lang core.Language) ([]core.ShowCandidate, error) {
		return m.catalog.SearchShows(ctx, query, lang)
	})
	if err != nil {
		return nil, err
	}

	index := make(map[int]int)
	var merged []core.ShowCandidate
	for _, list := range results {
		for _, show := range list {
			show = cleanCandidate(show)
			if len(show.Names) == 0 {
				continue
			}
			if i, ok := index[show.ID]; ok {
				merged[i] = merged[i].Merge(show)
				continue
			}
			index[show.ID] = len(merged)
			merged = append(merged, show)
		}
	}

	core.RankShows(query, merged)
	m.logger.Debug().Str("query", query).Int("results", len(merged)).Msg("search complete")
	return merged, nil
}

// Episodes fetches the episode list of a show in every language and merges
// them by (season, episode).
func (m *Multi) Episodes(ctx context.Context, showID int, langs []core.Language) ([]core.EpisodeRecord, error) {
	langs = m.Languages(langs)
	results, err := fanOut(ctx, m, langs, func(ctx context.Context, lang core.Language) ([]core.EpisodeRecord, error) {
		return m.catalog.FetchEpisodes(ctx, showID, lang)
	})
	if err != nil {
		return nil, err
	}

	episodes := core.MergeEpisodes(results...)
	m.logger.Debug().Int("show", showID).Int("episodes", len(episodes)).Msg("episodes fetched")
	return episodes, nil
}

// fanOut runs fetch for every language concurrently. Results keep the order
// of langs so merging is deterministic.
func fanOut[T any](ctx context.Context, m *Multi, langs []core.Language, fetch func(context.Context, core.Language) ([]T, error)) ([][]T, error) {
	results := make([][]T, len(langs))
	errs := make([]error, len(langs))

	var g errgroup.Group
	g.SetLimit(maxParallelLanguages)
	for i, lang := range langs {
		g.Go(func() error {
			list, err := fetch(ctx, lang)
			if err != nil {
				m.logger.Warn().Err(err).Str("language", lang.Code()).Msg("language lookup failed")
				errs[i] = err
				return nil
			}
			results[i] = list
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(langs) > 0 && failed == len(langs) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func cleanCandidate(show core.ShowCandidate) core.ShowCandidate {
	names := make(core.Names, len(show.Names))
	for lang, name := range show.Names {
		if name = cleanName(name); name != "" {
			names[lang] = name
		}
	}
	show.Names = names

	var aliases []string
	for _, alias := range show.Aliases {
		if alias = cleanName(alias); alias != "" && !slices.Contains(aliases, alias) {
			aliases = append(aliases, alias)
		}
	}
	show.Aliases = aliases
	return show
}

// cleanName strips a trailing "(YYYY)" and rejects names without a latin
// letter or digit.
func cleanName(name string) string {
	name = strings.TrimSpace(yearSuffixRe.ReplaceAllString(name, ""))
	if !meaningfulNameRe.MatchString(name) {
		return ""
	}
	return name
}
