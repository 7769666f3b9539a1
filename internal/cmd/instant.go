package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/tui"
)

// instantParams is the input of a non interactive rename.
type instantParams struct {
	catalog   tui.Catalog
	renamer   tui.Renamer
	items     []*core.WorkItem
	query     string
	minQuery  int
	languages []core.Language
	language  core.Language
	showTitle bool
	dryRun    bool
}

// runInstant renames the working set after the best ranked show for the
// query and prints one row per file.
func runInstant(ctx context.Context, out io.Writer, p instantParams) error {
	query := strings.TrimSpace(p.query)
	if utf8.RuneCountInString(query) < p.minQuery {
		return fmt.Errorf("search query %q is shorter than %d characters", query, p.minQuery)
	}
	if len(p.items) == 0 {
		return errors.New("no episode files found")
	}

	shows, err := p.catalog.Search(ctx, query, p.languages)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(shows) == 0 {
		return fmt.Errorf("no show matches %q", query)
	}
	show := shows[0]
	name := show.Name(p.language)

	episodes, err := p.catalog.Episodes(ctx, show.ID, p.languages)
	if err != nil {
		return fmt.Errorf("failed to load episodes of %s: %w", name, err)
	}
	named := core.ApplyNames(p.items, episodes, core.NameOptions{
		Language:         p.language,
		IncludeShowTitle: p.showTitle,
	})

	header := name
	if show.HasYear() {
		header = fmt.Sprintf("%s (%d)", name, show.Year)
	}
	fmt.Fprintf(out, "%s: %d of %d files matched\n", header, named, len(p.items))

	if p.dryRun {
		fmt.Fprintln(out, renderTable(
			[]string{"Code", "Current name", "New name", "Plan"},
			planRows(p.items),
			nil,
		))
		return nil
	}

	if core.CountEligible(p.items) == 0 {
		fmt.Fprintln(out, "nothing to rename")
		return nil
	}

	oldNames := make(map[*core.WorkItem]string, len(p.items))
	for _, item := range p.items {
		oldNames[item] = item.OldName
	}
	eligible := make(map[*core.WorkItem]bool, len(p.items))
	for _, item := range p.items {
		eligible[item] = item.Eligible()
	}

	report, err := p.renamer.Rename(name, p.items)
	if err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}

	failed := make(map[*core.WorkItem]error, len(report.Failures))
	for _, f := range report.Failures {
		failed[f.Item] = f.Err
	}

	rows := make([][]string, 0, len(p.items))
	for _, item := range p.items {
		result := "unchanged"
		switch {
		case failed[item] != nil:
			result = "failed: " + failed[item].Error()
		case eligible[item]:
			result = "renamed"
		case item.NewName == "":
			result = "no match"
		}
		rows = append(rows, []string{item.Code(), oldNames[item], item.NewName, result})
	}
	fmt.Fprintln(out, renderTable([]string{"Code", "Current name", "New name", "Result"}, rows, nil))

	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("%d of %d renames failed", n, n+report.Renamed)
	}
	fmt.Fprintf(out, "renamed %d files\n", report.Renamed)
	return nil
}

func planRows(items []*core.WorkItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		plan := "unchanged"
		switch {
		case item.NewName == "":
			plan = "no match"
		case !item.Selected:
			plan = "skipped"
		case item.Eligible():
			plan = "planned"
		}
		rows = append(rows, []string{item.Code(), item.OldName, item.NewName, plan})
	}
	return rows
}
