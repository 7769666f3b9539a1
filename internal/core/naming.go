package core

import (
	"fmt"
	"strings"
)

// EpisodeCode formats a season/episode pair as SxxEyy.
func EpisodeCode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

// ComposeName builds the target base name (without extension) for ep:
//
//	S01E05 - Pilot
//	My Show - S01E05 - Pilot   (includeShowTitle)
//
// The episode title part is omitted when the record has no usable title
// for lang. The show title is omitted when unknown for lang.
func ComposeName(ep EpisodeRecord, lang Language, includeShowTitle bool) string {
	parts := make([]string, 0, 3)
	if includeShowTitle {
		if show, ok := ep.ShowNames.Get(lang); ok {
			if show = SanitizeTitle(show); show != "" {
				parts = append(parts, show)
			}
		}
	}
	parts = append(parts, EpisodeCode(ep.Season, ep.Episode))

	title, _ := ep.Names.Get(lang)
	if title = SanitizeTitle(trimDots(strings.TrimSpace(title))); title != "" {
		parts = append(parts, title)
	}
	return strings.Join(parts, " - ")
}

// NameOptions controls how new names are computed for a working set.
type NameOptions struct {
	Language         Language
	IncludeShowTitle bool
}

// ApplyNames recomputes NewName for every item from episodes. Items without
// a matching (season, episode) record lose their new name.
func ApplyNames(items []*WorkItem, episodes []EpisodeRecord, opts NameOptions) int {
	byKey := make(map[EpisodeKey]EpisodeRecord, len(episodes))
	for _, ep := range episodes {
		if _, dup := byKey[ep.Key()]; !dup {
			byKey[ep.Key()] = ep
		}
	}

	matched := 0
	for _, item := range items {
		ep, ok := byKey[EpisodeKey{Season: item.Season, Episode: item.Episode}]
		if !ok {
			item.NewName = ""
			continue
		}
		item.NewName = ComposeName(ep, opts.Language, opts.IncludeShowTitle)
		matched++
	}
	return matched
}

// ClearNames drops every computed new name.
func ClearNames(items []*WorkItem) {
	for _, item := range items {
		item.NewName = ""
	}
}
