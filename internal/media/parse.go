package media

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Filename parsing for season directories and episode files.
//
// Episode numbers are found by an ordered battery of patterns. Each pattern
// is a template where %S is the season number and %E the two digit episode
// group; the season is tried zero padded to two digits first so that a one
// digit season never swallows the prefix of a two digit one.
var (
	// seasonDirRe matches season directory names: a word, a space, digits.
	seasonDirRe = regexp.MustCompile(`^[A-Za-z]+ (\d+).*$`)

	// videoRe matches the video extensions considered episode files.
	videoRe = regexp.MustCompile(`(?i)\.(avi|mkv|mpg|mp4|mov)$`)

	// noiseTokens are removed before matching because they carry digits that
	// look like episode numbers.
	noiseTokens = []string{"-x264-"}

	episodeTemplates = []string{
		`(?i:S)%S(?i:E)%E`,  // S01E02
		`(?i:S)%S(?i:x)%E`,  // S01x02
		`%S(?i:x)%E`,        // 1x02
		`(?i:S)%S.(?i:E)%E`, // S01.E02
		`- %S%E -`,          // - 102 -
		`(?i:Ep)%E`,         // Ep02
		`-(?i:E)%E-`,        // -E02-
		`%S-%E`,             // 1-02
		`%S%E$`,             // trailing 102
		`^%E$`,              // bare 02
	}
)

const episodeGroup = `([\d][\d])`

// EpisodeMatcher extracts an episode number from a file name stem.
type EpisodeMatcher interface {
	Match(stem string) (int, bool)
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Match(stem string) (int, bool) {
	sub := m.re.FindStringSubmatch(stem)
	if sub == nil {
		return 0, false
	}
	n, err := strconv.Atoi(sub[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EpisodeMatchers returns the ordered battery of matchers for a season.
func EpisodeMatchers(season int) []EpisodeMatcher {
	matchers := make([]EpisodeMatcher, 0, len(episodeTemplates)*2)
	for _, tmpl := range episodeTemplates {
		for _, width := range []int{2, 1} {
			s := fmt.Sprintf("%0*d", width, season)
			expr := strings.ReplaceAll(tmpl, "%S", s)
			expr = strings.ReplaceAll(expr, "%E", episodeGroup)
			matchers = append(matchers, regexMatcher{re: regexp.MustCompile(expr)})
		}
	}
	return matchers
}

// MatchEpisode runs the battery for season against a file name stem and
// returns the first hit.
func MatchEpisode(matchers []EpisodeMatcher, stem string) (int, bool) {
	for _, tok := range noiseTokens {
		stem = strings.ReplaceAll(stem, tok, "")
	}
	for _, m := range matchers {
		if n, ok := m.Match(stem); ok {
			return n, true
		}
	}
	return 0, false
}

// SeasonNumber parses the season number from a season directory name.
func SeasonNumber(dirName string) (int, bool) {
	sub := seasonDirRe.FindStringSubmatch(dirName)
	if sub == nil {
		return 0, false
	}
	n, err := strconv.Atoi(sub[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsSeasonDir reports whether name looks like a season directory.
func IsSeasonDir(name string) bool {
	return seasonDirRe.MatchString(name)
}

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}
