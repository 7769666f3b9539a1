package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/core"
)

var (
	// ErrNoArgs is returned when no directory was given.
	ErrNoArgs = errors.New("no directory given")
	// ErrNotDirectory is returned when an argument is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrNoSeasons is returned when no season directory was found.
	ErrNoSeasons = errors.New("no season directories found")
)

// SeasonDir is a directory holding the episodes of one season.
type SeasonDir struct {
	Path   string
	Season int
}

// Layout is the resolved on-disk structure of a show.
type Layout struct {
	// Root is the show directory; its name seeds the initial search query.
	Root    string
	Seasons []SeasonDir
	// Skipped lists given directories that are not season directories.
	Skipped []string
}

// Name returns the base name of the root directory.
func (l Layout) Name() string {
	return filepath.Base(l.Root)
}

// ResolveLayout interprets command line arguments. A single show directory
// is scanned for season subdirectories. When the first argument's name starts
// with seasonWord every argument is taken as a season directory and the
// parent of the first one becomes the root.
func ResolveLayout(args []string, seasonWord string) (Layout, error) {
	if len(args) == 0 {
		return Layout{}, ErrNoArgs
	}

	first, err := filepath.Abs(args[0])
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	if err := requireDir(first); err != nil {
		return Layout{}, err
	}

	var layout Layout
	if seasonWord != "" && strings.HasPrefix(filepath.Base(first), seasonWord) {
		layout.Root = filepath.Dir(first)
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return Layout{}, fmt.Errorf("failed to resolve %s: %w", arg, err)
			}
			if err := requireDir(path); err != nil {
				return Layout{}, err
			}
			season, ok := SeasonNumber(filepath.Base(path))
			if !ok {
				layout.Skipped = append(layout.Skipped, path)
				continue
			}
			layout.Seasons = append(layout.Seasons, SeasonDir{Path: path, Season: season})
		}
	} else {
		layout.Root = first
		layout.Seasons, err = ScanSeasons(first)
		if err != nil {
			return Layout{}, err
		}
	}

	SortSeasons(layout.Seasons)
	if len(layout.Seasons) == 0 {
		return layout, ErrNoSeasons
	}
	return layout, nil
}

// ScanSeasons lists the season directories directly inside root.
func ScanSeasons(root string) ([]SeasonDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", root, err)
	}

	var seasons []SeasonDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		season, ok := SeasonNumber(entry.Name())
		if !ok {
			continue
		}
		seasons = append(seasons, SeasonDir{Path: filepath.Join(root, entry.Name()), Season: season})
	}
	SortSeasons(seasons)
	return seasons, nil
}

// SortSeasons orders season directories numerically. Directories claiming
// the same season keep their relative order.
func SortSeasons(seasons []SeasonDir) {
	slices.SortStableFunc(seasons, func(a, b SeasonDir) int {
		return a.Season - b.Season
	})
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// episodeFiles lists the video files directly inside dir sorted by name.
// Symlinks count when they resolve to a regular file; the others are
// returned as skipped.
func episodeFiles(dir string) (names, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read season directory %s: %w", dir, err)
	}
	names = make([]string, 0, len(entries))
	for _, entry := range entries {
		if !IsVideo(entry.Name()) {
			continue
		}
		switch mode := entry.Type(); {
		case mode.IsRegular():
		case mode&fs.ModeSymlink != 0:
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || !info.Mode().IsRegular() {
				skipped = append(skipped, filepath.Join(dir, entry.Name()))
				continue
			}
		default:
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, skipped, nil
}

// Inference is the outcome of assigning episode identities to files.
type Inference struct {
	Items []*core.WorkItem
	// Deferred lists files no pattern matched; they were given the lowest
	// free episode number of their season.
	Deferred []string
	// Skipped lists video named symlinks that are broken or do not point at
	// a regular file.
	Skipped []string
}

// ListEpisodes assigns a (season, episode) pair to every video file in the
// given season directories. Files no pattern identifies are filled into the
// lowest unused episode numbers of their season, in name order. The result
// is sorted by (season, episode) with ordinals numbered in that order.
func ListEpisodes(seasons []SeasonDir) (Inference, error) {
	var result Inference

	for _, sd := range seasons {
		names, skipped, err := episodeFiles(sd.Path)
		if err != nil {
			return Inference{}, err
		}
		result.Skipped = append(result.Skipped, skipped...)

		matchers := EpisodeMatchers(sd.Season)
		taken := make(map[int]bool)
		var deferred []string

		for _, name := range names {
			path := filepath.Join(sd.Path, name)
			episode, ok := MatchEpisode(matchers, core.BaseName(name))
			if !ok {
				deferred = append(deferred, path)
				continue
			}
			taken[episode] = true
			result.Items = append(result.Items, core.NewWorkItem(path, sd.Season, episode))
		}

		next := 1
		for _, path := range deferred {
			for taken[next] {
				next++
			}
			taken[next] = true
			result.Items = append(result.Items, core.NewWorkItem(path, sd.Season, next))
		}
		result.Deferred = append(result.Deferred, deferred...)
	}

	SortItems(result.Items)
	return result, nil
}

// SortItems orders items by (season, episode) and renumbers ordinals and
// season separators from the final order.
func SortItems(items []*core.WorkItem) {
	slices.SortStableFunc(items, func(a, b *core.WorkItem) int {
		if a.Season != b.Season {
			return a.Season - b.Season
		}
		return a.Episode - b.Episode
	})
	for i, item := range items {
		item.Ordinal = i + 1
		item.FirstOfSeason = i > 0 && items[i-1].Season != item.Season
	}
}
