package media

import (
	"testing"
)

func TestIsVideo(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"episode.mkv", true},
		{"clip.MP4", true},
		{"old.AVI", true},
		{"capture.mpg", true},
		{"phone.mov", true},
		{"trailer.webm", false},
		{"notes.txt", false},
		{"mkv", false},
	}
	for _, tc := range tests {
		if got := IsVideo(tc.in); got != tc.want {
			t.Errorf("IsVideo(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSeasonNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"Season 1", 1, true},
		{"Season 10", 10, true},
		{"Staffel 03 (2004)", 3, true},
		{"season 2", 2, true},
		{"Season1", 0, false},
		{"Specials", 0, false},
		{"S 01", 1, true},
		{"1 Season", 0, false},
	}
	for _, tc := range tests {
		got, ok := SeasonNumber(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("SeasonNumber(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestMatchEpisode(t *testing.T) {
	tests := []struct {
		name   string
		season int
		stem   string
		want   int
		wantOK bool
	}{
		{name: "SxxExx", season: 1, stem: "show.S01E02", want: 2, wantOK: true},
		{name: "lower case", season: 1, stem: "show.s01e07.720p", want: 7, wantOK: true},
		{name: "one digit season", season: 3, stem: "Show S3E11 Title", want: 11, wantOK: true},
		{name: "Sxx x", season: 2, stem: "Show S02x05", want: 5, wantOK: true},
		{name: "x form", season: 4, stem: "show 4x09 title", want: 9, wantOK: true},
		{name: "dotted", season: 1, stem: "Show.S01.E03", want: 3, wantOK: true},
		{name: "dash block", season: 2, stem: "Show - 203 - Title", want: 3, wantOK: true},
		{name: "Ep", season: 1, stem: "Show Ep14", want: 14, wantOK: true},
		{name: "dash E", season: 1, stem: "Show-E08-Title", want: 8, wantOK: true},
		{name: "season dash", season: 5, stem: "Show 5-12", want: 12, wantOK: true},
		{name: "trailing", season: 1, stem: "Show 0104", want: 4, wantOK: true},
		{name: "bare", season: 1, stem: "06", want: 6, wantOK: true},
		{name: "noise removed", season: 1, stem: "Show-x264-Ep03", want: 3, wantOK: true},
		{name: "two digit season", season: 10, stem: "Show S10E01", want: 1, wantOK: true},
		{name: "no match", season: 1, stem: "unknown", wantOK: false},
		{name: "wrong season", season: 2, stem: "show.S01E02", wantOK: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchEpisode(EpisodeMatchers(tc.season), tc.stem)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("MatchEpisode(%d, %q) = (%d, %v), want (%d, %v)", tc.season, tc.stem, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestEpisodeMatchersTryBothSeasonWidths(t *testing.T) {
	matchers := EpisodeMatchers(1)
	if n := len(matchers); n != len(episodeTemplates)*2 {
		t.Fatalf("len(EpisodeMatchers) = %d, want %d", n, len(episodeTemplates)*2)
	}
	for _, stem := range []string{"Show S01E04", "Show S1E04"} {
		got, ok := MatchEpisode(matchers, stem)
		if !ok || got != 4 {
			t.Errorf("MatchEpisode(%q) = (%d, %v), want (4, true)", stem, got, ok)
		}
	}
}
