package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/episode-renamer/internal/task"
	"github.com/Digital-Shane/episode-renamer/internal/tui/components"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(m.leftWidth()-8, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case searchTickMsg:
		if msg.seq == m.seq {
			m.search()
		}
		return m, nil

	case deliveryMsg:
		m.sched.Apply(msg.delivery)
		return m, m.waitForDelivery()

	case changedMsg:
		return m, tea.Batch(m.rescanCmd(), m.waitForChange())

	case rescanMsg:
		if msg.err != nil {
			m.failure = "rescan failed: " + msg.err.Error()
			m.logger.Warn().Err(msg.err).Msg("rescan failed")
			return m, nil
		}
		m.replaceItems(msg.inference.Items, msg.inference.Deferred)
		return m, m.probeDetails()

	case detailsMsg:
		for _, item := range m.items {
			if d, ok := msg.details[item.Path]; ok {
				item.Details = d
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		return m, m.setFocus((m.focus + 1) % focusCount)
	case "shift+tab":
		return m, m.setFocus((m.focus + focusCount - 1) % focusCount)
	case "ctrl+l":
		m.cycleLanguage()
		return m, nil
	case "ctrl+t":
		m.toggleShowTitle()
		return m, nil
	case "ctrl+r":
		m.rename()
		return m, nil
	}

	if m.focus == focusQuery {
		return m.handleQueryKey(msg)
	}

	// Single letter shortcuts outside the query field.
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "l":
		m.cycleLanguage()
		return m, nil
	case "t":
		m.toggleShowTitle()
		return m, nil
	case "r":
		m.rename()
		return m, nil
	}

	if m.focus == focusShows {
		m.handleShowKey(msg)
	} else {
		m.handleEpisodeKey(msg)
	}
	return m, nil
}

func (m *Model) handleQueryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.seq++
		m.search()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	m.seq++
	return m, tea.Batch(cmd, components.DebounceMsg(m.debounce, searchTickMsg{seq: m.seq}))
}

func (m *Model) handleShowKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		if m.showCursor > 0 {
			m.selectShow(m.showCursor - 1)
		}
	case "down", "j":
		if m.showCursor < len(m.shows)-1 {
			m.selectShow(m.showCursor + 1)
		}
	case "enter":
		if len(m.shows) > 0 {
			m.selectShow(m.showCursor)
			m.setFocus(focusEpisodes)
		}
	}
}

func (m *Model) handleEpisodeKey(msg tea.KeyMsg) {
	last := len(m.items) - 1
	switch msg.String() {
	case "up", "k":
		m.epCursor = max(m.epCursor-1, 0)
	case "down", "j":
		m.epCursor = max(min(m.epCursor+1, last), 0)
	case "pgup":
		m.epCursor = max(m.epCursor-m.episodeRows(), 0)
	case "pgdown":
		m.epCursor = max(min(m.epCursor+m.episodeRows(), last), 0)
	case "home", "g":
		m.epCursor = 0
	case "end", "G":
		m.epCursor = max(last, 0)
	case " ", "x":
		if m.epCursor <= last {
			item := m.items[m.epCursor]
			item.Selected = !item.Selected
		}
	case "a":
		all := !slices.ContainsFunc(m.items, func(w *core.WorkItem) bool { return !w.Selected })
		for _, item := range m.items {
			item.Selected = !all
		}
	}
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	if f == focusQuery {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

// search issues a catalog search for the current query. Queries below the
// minimum length clear the show list and cancel any pending search.
func (m *Model) search() {
	query := strings.TrimSpace(m.input.Value())
	if utf8.RuneCountInString(query) < m.minQuery {
		m.sched.Supersede(task.Search)
		m.setShows(nil)
		return
	}

	catalog, langs := m.catalog, slices.Clone(m.langs)
	task.Execute(m.sched, task.Search, func(ctx context.Context) ([]core.ShowCandidate, error) {
		return catalog.Search(ctx, query, langs)
	}, m.setShows, taskKey(query, langs)...)
}

// setShows replaces the show list and selects its first entry.
func (m *Model) setShows(shows []core.ShowCandidate) {
	m.shows = shows
	m.showCursor = 0
	if len(shows) == 0 {
		m.selected = nil
		m.episodes = nil
		m.banner = nil
		m.sched.Supersede(task.Episodes)
		m.sched.Supersede(task.Image)
		core.ClearNames(m.items)
		return
	}
	m.selectShow(0)
}

// selectShow makes shows[i] current and fetches its banner and episodes.
// Names computed for the previous show are dropped until the new episodes
// arrive.
func (m *Model) selectShow(i int) {
	show := m.shows[i]
	m.showCursor = i
	m.selected = &show
	m.banner = nil
	m.episodes = nil
	core.ClearNames(m.items)

	if show.BannerURL != "" && m.banners != nil {
		banners, url := m.banners, show.BannerURL
		task.Execute(m.sched, task.Image, func(ctx context.Context) (provider.Banner, error) {
			return banners.Fetch(ctx, url)
		}, func(b provider.Banner) {
			m.banner = &b
		}, url)
	} else {
		m.sched.Supersede(task.Image)
	}

	catalog, langs, id := m.catalog, slices.Clone(m.langs), show.ID
	task.Execute(m.sched, task.Episodes, func(ctx context.Context) ([]core.EpisodeRecord, error) {
		return catalog.Episodes(ctx, id, langs)
	}, func(episodes []core.EpisodeRecord) {
		m.episodes = episodes
		m.applyNames()
	}, taskKey(id, langs)...)
}

func (m *Model) applyNames() {
	core.ApplyNames(m.items, m.episodes, core.NameOptions{
		Language:         m.lang,
		IncludeShowTitle: m.showTitle,
	})
}

func (m *Model) cycleLanguage() {
	i := slices.Index(m.langs, m.lang)
	m.lang = m.langs[(i+1)%len(m.langs)]
	m.applyNames()
}

func (m *Model) toggleShowTitle() {
	m.showTitle = !m.showTitle
	m.applyNames()
}

// rename runs the executor on a copy of the working set so the background
// goroutine never touches items the view reads. The outcome is copied back
// on delivery.
func (m *Model) rename() {
	if !m.canRename() {
		return
	}

	items := m.items
	batch := make([]*core.WorkItem, len(items))
	for i, item := range items {
		c := *item
		batch[i] = &c
	}
	show := ""
	if m.selected != nil {
		show = m.selected.Name(m.lang)
	}

	m.report = nil
	m.failure = ""
	renamer := m.renamer
	task.Execute(m.sched, task.Rename, func(context.Context) (core.RenameReport, error) {
		return renamer.Rename(show, batch)
	}, func(report core.RenameReport) {
		for i, done := range batch {
			items[i].Path = done.Path
			items[i].OldName = done.OldName
		}
		m.report = &report
		m.logger.Info().Int("renamed", report.Renamed).Int("failed", len(report.Failures)).Msg("rename finished")
	}, task.NoCache)
}

// replaceItems swaps in a rescanned working set, keeping selection and
// details of files that are still present.
func (m *Model) replaceItems(items []*core.WorkItem, deferred []string) {
	prev := make(map[string]*core.WorkItem, len(m.items))
	for _, item := range m.items {
		prev[item.Path] = item
	}
	for _, item := range items {
		if old, ok := prev[item.Path]; ok {
			item.Selected = old.Selected
			item.Details = old.Details
		}
	}

	m.items = items
	m.deferred = deferred
	m.epCursor = max(min(m.epCursor, len(items)-1), 0)
	m.applyNames()
	m.notice = fmt.Sprintf("rescanned %d files", len(items))
}

func taskKey(first any, langs []core.Language) []any {
	key := make([]any, 0, len(langs)+1)
	key = append(key, first)
	for _, lang := range langs {
		key = append(key, lang.Code())
	}
	return key
}
