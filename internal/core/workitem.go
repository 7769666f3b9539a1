package core

import (
	"path/filepath"
	"strings"
)

// WorkItem is one video file that may be renamed.
type WorkItem struct {
	// Path is the current on-disk location of the file.
	Path    string
	Season  int
	Episode int
	// Ordinal is the 1-based rank over the working set ordered by
	// (season, episode).
	Ordinal int
	// FirstOfSeason marks the first item of every season after the first.
	FirstOfSeason bool
	Selected      bool
	// OldName is the current base name without extension.
	OldName string
	// NewName is the computed base name without extension; empty until
	// episode metadata resolves.
	NewName string
	// Details carries optional technical information, e.g. "1080p h264".
	Details string
}

// NewWorkItem creates a selected item for the file at path.
func NewWorkItem(path string, season, episode int) *WorkItem {
	return &WorkItem{
		Path:     path,
		Season:   season,
		Episode:  episode,
		Selected: true,
		OldName:  BaseName(path),
	}
}

// Code returns the SxxEyy code of the inferred identity.
func (w *WorkItem) Code() string {
	return EpisodeCode(w.Season, w.Episode)
}

// Eligible reports whether the item should be renamed: it is selected, has a
// new name, and that name differs from the current one.
func (w *WorkItem) Eligible() bool {
	return w.Selected && w.NewName != "" && w.NewName != w.OldName
}

// TargetPath is where the item would be renamed to, keeping its directory
// and extension.
func (w *WorkItem) TargetPath() string {
	return filepath.Join(filepath.Dir(w.Path), w.NewName+filepath.Ext(w.Path))
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// CountEligible returns the number of items Eligible reports true for.
func CountEligible(items []*WorkItem) int {
	n := 0
	for _, item := range items {
		if item.Eligible() {
			n++
		}
	}
	return n
}
