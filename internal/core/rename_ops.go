package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Digital-Shane/episode-renamer/internal/log"
	"github.com/gofrs/flock"
)

var (
	// ErrTargetExists is reported for an item whose target path is taken by
	// another file.
	ErrTargetExists = errors.New("destination already exists")
	// ErrRenameLocked is returned when another rename batch holds the lock.
	ErrRenameLocked = errors.New("another rename is already running")
)

// RenameFailure records why a single item was not renamed.
type RenameFailure struct {
	Item *WorkItem
	Err  error
}

func (f RenameFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Item.OldName, f.Err)
}

func (f RenameFailure) Unwrap() error {
	return f.Err
}

// RenameReport summarizes one rename batch.
type RenameReport struct {
	Renamed  int
	Failures []RenameFailure
}

// Partial reports whether some but not all eligible items were renamed.
func (r RenameReport) Partial() bool {
	return r.Renamed > 0 && len(r.Failures) > 0
}

// Executor applies computed names to disk. Batches are serialized across
// processes through a file lock.
type Executor struct {
	lockPath string
	rename   func(oldPath, newPath string) error
}

// NewExecutor creates an executor guarded by the lock file at lockPath. An
// empty lockPath disables locking.
func NewExecutor(lockPath string) *Executor {
	return &Executor{lockPath: lockPath, rename: os.Rename}
}

// Rename renames every eligible item. Failures are collected per item and
// never abort the batch. Failed items keep their old name so they stay
// eligible for a retry. Only a lock failure is returned as an error. A
// batch with nothing eligible touches neither the lock nor the files.
func (e *Executor) Rename(items []*WorkItem) (RenameReport, error) {
	var report RenameReport
	if CountEligible(items) == 0 {
		return report, nil
	}

	if e.lockPath != "" {
		if err := os.MkdirAll(filepath.Dir(e.lockPath), 0755); err != nil {
			return report, fmt.Errorf("failed to create lock directory: %w", err)
		}
		lock := flock.New(e.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return report, fmt.Errorf("acquire rename lock: %w", err)
		}
		if !ok {
			return report, ErrRenameLocked
		}
		defer lock.Unlock()
	}

	dups := make(map[*WorkItem]bool)
	for _, item := range DuplicateTargets(items) {
		dups[item] = true
	}

	for _, item := range items {
		if !item.Eligible() {
			continue
		}
		if dups[item] {
			log.LogRename(item.Path, item.TargetPath(), false, ErrTargetExists)
			report.Failures = append(report.Failures, RenameFailure{Item: item, Err: ErrTargetExists})
			continue
		}
		if err := e.renameItem(item); err != nil {
			report.Failures = append(report.Failures, RenameFailure{Item: item, Err: err})
			continue
		}
		report.Renamed++
	}
	return report, nil
}

// renameItem renames a single item and updates it on success.
func (e *Executor) renameItem(item *WorkItem) error {
	oldPath := item.Path
	if err := validateFilename(item.NewName); err != nil {
		log.LogRename(oldPath, "", false, err)
		return err
	}

	newPath := item.TargetPath()
	if existing, err := os.Stat(newPath); err == nil {
		// A case-only rename on a case-insensitive filesystem stats the
		// source itself.
		current, cerr := os.Stat(oldPath)
		if cerr != nil || !os.SameFile(existing, current) {
			log.LogRename(oldPath, newPath, false, ErrTargetExists)
			return ErrTargetExists
		}
	}
	if err := e.rename(oldPath, newPath); err != nil {
		log.LogRename(oldPath, newPath, false, err)
		return err
	}
	log.LogRename(oldPath, newPath, true, nil)

	item.Path = newPath
	item.OldName = item.NewName
	return nil
}

// DuplicateTargets returns eligible items whose target path collides with
// an earlier eligible item in the same batch.
func DuplicateTargets(items []*WorkItem) []*WorkItem {
	seen := make(map[string]bool)
	var dups []*WorkItem
	for _, item := range items {
		if !item.Eligible() {
			continue
		}
		target := item.TargetPath()
		if seen[target] {
			dups = append(dups, item)
			continue
		}
		seen[target] = true
	}
	return dups
}
