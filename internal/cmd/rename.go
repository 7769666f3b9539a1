package cmd

import (
	"fmt"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/log"
	"github.com/rs/zerolog"
)

// batchRenamer is the part of core.Executor a session wraps.
type batchRenamer interface {
	Rename(items []*core.WorkItem) (core.RenameReport, error)
}

// sessionRenamer records every rename batch as one undoable log session.
type sessionRenamer struct {
	executor batchRenamer
	command  string
	args     []string
	root     string
	logger   zerolog.Logger
}

// Rename renames the eligible items inside a fresh log session annotated
// with the show directory and show name.
func (r *sessionRenamer) Rename(show string, items []*core.WorkItem) (core.RenameReport, error) {
	if err := log.StartSession(r.command, r.args); err != nil {
		return core.RenameReport{}, fmt.Errorf("failed to start log session: %w", err)
	}
	log.Annotate(r.root, show)

	report, err := r.executor.Rename(items)
	if endErr := log.EndSession(); endErr != nil {
		r.logger.Warn().Err(endErr).Msg("failed to save log session")
	}
	if err != nil {
		return report, err
	}

	for _, f := range report.Failures {
		r.logger.Warn().Err(f.Err).Str("file", f.Item.Path).Msg("rename failed")
	}
	r.logger.Info().
		Str("show", show).
		Int("renamed", report.Renamed).
		Int("failed", len(report.Failures)).
		Msg("rename batch finished")
	return report, nil
}
