package core

import "slices"

// Names maps a language to a localized name.
type Names map[Language]string

// Get returns the name for lang, if any.
func (n Names) Get(lang Language) (string, bool) {
	v, ok := n[lang]
	return v, ok && v != ""
}

// Preferred returns the name for lang, falling back to the first available
// language in declaration order.
func (n Names) Preferred(lang Language) string {
	if v, ok := n.Get(lang); ok {
		return v
	}
	for _, l := range AllLanguages() {
		if v, ok := n.Get(l); ok {
			return v
		}
	}
	return ""
}

// Languages returns the languages present in n, in declaration order.
func (n Names) Languages() []Language {
	out := make([]Language, 0, len(n))
	for _, l := range AllLanguages() {
		if _, ok := n.Get(l); ok {
			out = append(out, l)
		}
	}
	return out
}

// Clone returns a copy of n.
func (n Names) Clone() Names {
	out := make(Names, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// ShowCandidate is one catalog entry returned for a search query.
type ShowCandidate struct {
	ID          int
	Year        int // 0 when unknown
	Names       Names
	BannerURL   string
	Popularity  float64
	Aliases     []string
	SeasonCount int
}

// HasYear reports whether the first-air year is known.
func (s ShowCandidate) HasYear() bool {
	return s.Year > 0
}

// Name returns the display name for lang.
func (s ShowCandidate) Name(lang Language) string {
	return s.Names.Preferred(lang)
}

// Merge folds other into s. Both must describe the same catalog entry.
func (s ShowCandidate) Merge(other ShowCandidate) ShowCandidate {
	out := s
	out.Names = s.Names.Clone()
	for l, v := range other.Names {
		if _, ok := out.Names.Get(l); !ok && v != "" {
			out.Names[l] = v
		}
	}
	if out.Year == 0 {
		out.Year = other.Year
	}
	if out.BannerURL == "" {
		out.BannerURL = other.BannerURL
	}
	if other.Popularity > out.Popularity {
		out.Popularity = other.Popularity
	}
	if other.SeasonCount > out.SeasonCount {
		out.SeasonCount = other.SeasonCount
	}
	out.Aliases = slices.Clone(s.Aliases)
	for _, a := range other.Aliases {
		if !slices.Contains(out.Aliases, a) {
			out.Aliases = append(out.Aliases, a)
		}
	}
	return out
}

// EpisodeKey identifies an episode within a show.
type EpisodeKey struct {
	Season  int
	Episode int
}

// EpisodeRecord is the catalog metadata of one episode.
type EpisodeRecord struct {
	ID        int
	Season    int
	Episode   int
	ShowNames Names
	Names     Names
}

// Key returns the (season, episode) pair of the record.
func (e EpisodeRecord) Key() EpisodeKey {
	return EpisodeKey{Season: e.Season, Episode: e.Episode}
}

// MergeEpisodes merges per-language episode lists by (season, episode).
// The first record seen for a key keeps its identity; later ones only add
// names for languages that are still missing.
func MergeEpisodes(lists ...[]EpisodeRecord) []EpisodeRecord {
	index := make(map[EpisodeKey]int)
	var out []EpisodeRecord
	for _, list := range lists {
		for _, rec := range list {
			i, ok := index[rec.Key()]
			if !ok {
				rec.Names = rec.Names.Clone()
				rec.ShowNames = rec.ShowNames.Clone()
				index[rec.Key()] = len(out)
				out = append(out, rec)
				continue
			}
			for l, v := range rec.Names {
				if _, ok := out[i].Names.Get(l); !ok && v != "" {
					out[i].Names[l] = v
				}
			}
			for l, v := range rec.ShowNames {
				if _, ok := out[i].ShowNames.Get(l); !ok && v != "" {
					out[i].ShowNames[l] = v
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b EpisodeRecord) int {
		if a.Season != b.Season {
			return a.Season - b.Season
		}
		return a.Episode - b.Episode
	})
	return out
}
