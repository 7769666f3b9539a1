package core

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// CompareShows returns a comparator ordering candidates for query, most
// relevant first:
//
//  1. same catalog ID compares equal
//  2. a case-insensitive exact name match in any language wins
//  3. popularity, descending
//  4. number of localized names, descending
//  5. first-air year, descending; unknown years sort after known ones
//  6. catalog ID, ascending
func CompareShows(query string) func(a, b ShowCandidate) int {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	exact := func(s ShowCandidate) bool {
		for _, name := range s.Names {
			if fold.String(strings.TrimSpace(name)) == needle {
				return true
			}
		}
		return false
	}

	return func(a, b ShowCandidate) int {
		if a.ID == b.ID {
			return 0
		}
		ae, be := exact(a), exact(b)
		if ae != be {
			if ae {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b.Names), len(a.Names)); c != 0 {
			return c
		}
		if c := cmp.Compare(yearRank(b), yearRank(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
}

// yearRank maps an unknown year below every known one, so among otherwise
// tied candidates an undated entry never ranks ahead of a dated one.
func yearRank(s ShowCandidate) int {
	if !s.HasYear() {
		return math.MinInt
	}
	return s.Year
}

// RankShows sorts shows in place by relevance to query.
func RankShows(query string, shows []ShowCandidate) {
	slices.SortStableFunc(shows, CompareShows(query))
}
