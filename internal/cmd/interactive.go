package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/media"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/episode-renamer/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

// rescanDebounce is how long the show directory must be quiet before a
// change triggers a rescan.
const rescanDebounce = 500 * time.Millisecond

// runInteractive starts the TUI on the workspace.
func runInteractive(ctx context.Context, ws *workspace) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := ws.cfg
	opts := tui.Options{
		Layout:           ws.layout,
		Inference:        ws.inference,
		Catalog:          ws.catalog,
		Banners:          provider.NewBannerFetcher(nil),
		Renamer:          ws.renamer,
		Rescan:           ws.rescan,
		Languages:        cfg.EnabledLanguages(),
		Language:         cfg.DisplayLanguage(),
		IncludeShowTitle: cfg.IncludeShowTitle,
		Query:            ws.query,
		MinQueryLength:   cfg.MinQueryLength,
		Debounce:         cfg.SearchDebounce(),
		CacheTTL:         cfg.CacheTTL(),
		Logger:           ws.diag.WithComponent("tui"),
	}
	if ws.catalogs.Prober != nil {
		opts.Details = ws.catalogs.Prober
	}

	watcher, err := media.Watch(ctx, ws.layout, rescanDebounce)
	if err != nil {
		ws.logger.Warn().Err(err).Msg("file watching disabled")
	} else {
		defer watcher.Close()
		opts.Changes = watcher.Changes()
		go logWatchErrors(ctx, ws, watcher)
	}

	model := tui.New(ctx, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}

func logWatchErrors(ctx context.Context, ws *workspace, watcher *media.Watcher) {
	for {
		select {
		case err := <-watcher.Errors():
			ws.logger.Warn().Err(err).Msg("file watcher error")
		case <-ctx.Done():
			return
		}
	}
}
