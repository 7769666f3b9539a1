package tui

import (
	"context"
	"slices"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/media"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/episode-renamer/internal/task"
	"github.com/Digital-Shane/episode-renamer/internal/tui/components"
	"github.com/Digital-Shane/episode-renamer/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
)

// Catalog searches shows and lists their episodes across languages.
type Catalog interface {
	Search(ctx context.Context, query string, langs []core.Language) ([]core.ShowCandidate, error)
	Episodes(ctx context.Context, showID int, langs []core.Language) ([]core.EpisodeRecord, error)
}

// BannerSource downloads show banners.
type BannerSource interface {
	Fetch(ctx context.Context, url string) (provider.Banner, error)
}

// Renamer applies computed names to disk. show is the display name of the
// selected show and ends up in the session log.
type Renamer interface {
	Rename(show string, items []*core.WorkItem) (core.RenameReport, error)
}

// DetailsSource describes video files, keyed by path.
type DetailsSource interface {
	DetailsAll(ctx context.Context, paths []string) map[string]string
}

// Options wires the model to its collaborators. Banners, Details, Rescan
// and Changes are optional.
type Options struct {
	Layout    media.Layout
	Inference media.Inference

	Catalog Catalog
	Banners BannerSource
	Renamer Renamer
	Details DetailsSource

	// Rescan rebuilds the working set when Changes fires.
	Rescan  func() (media.Inference, error)
	Changes <-chan struct{}

	Languages        []core.Language
	Language         core.Language
	IncludeShowTitle bool

	Query          string
	MinQueryLength int
	Debounce       time.Duration
	CacheTTL       time.Duration

	Logger zerolog.Logger
}

// Option configures a Model during construction.
type Option func(*Model)

// WithTheme overrides the theme.
func WithTheme(th theme.Theme) Option {
	return func(m *Model) {
		m.theme = th
	}
}

type focus int

const (
	focusQuery focus = iota
	focusShows
	focusEpisodes
	focusCount
)

type (
	deliveryMsg   struct{ delivery task.Delivery }
	searchTickMsg struct{ seq int }
	changedMsg    struct{}
	rescanMsg     struct {
		inference media.Inference
		err       error
	}
	detailsMsg struct{ details map[string]string }
)

// Model is the interactive renamer. Background work runs on a task
// scheduler whose deliveries are applied inside Update, so every callback
// mutates the model on the bubbletea goroutine.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	sched  *task.Scheduler

	catalog Catalog
	banners BannerSource
	renamer Renamer
	details DetailsSource
	rescan  func() (media.Inference, error)
	changes <-chan struct{}
	logger  zerolog.Logger
	theme   theme.Theme

	layout   media.Layout
	items    []*core.WorkItem
	deferred []string

	langs     []core.Language
	lang      core.Language
	showTitle bool
	minQuery  int
	debounce  time.Duration

	input   textinput.Model
	spinner spinner.Model
	seq     int

	shows      []core.ShowCandidate
	showCursor int
	selected   *core.ShowCandidate
	episodes   []core.EpisodeRecord
	banner     *provider.Banner

	epCursor int
	focus    focus

	inFlight []task.Category
	report   *core.RenameReport
	failure  string
	notice   string

	width  int
	height int
}

// New creates the model. Close releases its background work.
func New(ctx context.Context, cfg Options, opts ...Option) *Model {
	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		ctx:       ctx,
		cancel:    cancel,
		catalog:   cfg.Catalog,
		banners:   cfg.Banners,
		renamer:   cfg.Renamer,
		details:   cfg.Details,
		rescan:    cfg.Rescan,
		changes:   cfg.Changes,
		logger:    cfg.Logger.With().Str("component", "tui").Logger(),
		theme:     theme.Default(),
		layout:    cfg.Layout,
		items:     cfg.Inference.Items,
		deferred:  cfg.Inference.Deferred,
		langs:     slices.Clone(cfg.Languages),
		lang:      cfg.Language,
		showTitle: cfg.IncludeShowTitle,
		minQuery:  max(cfg.MinQueryLength, 1),
		debounce:  cfg.Debounce,
		width:     100,
		height:    28,
	}
	for _, opt := range opts {
		opt(m)
	}
	if len(m.langs) == 0 {
		m.langs = []core.Language{core.English}
	}
	if !slices.Contains(m.langs, m.lang) {
		m.lang = m.langs[0]
	}
	if m.debounce <= 0 {
		m.debounce = time.Second
	}

	runewidth.DefaultCondition.EastAsianWidth = false
	runewidth.DefaultCondition.StrictEmojiNeutral = true

	m.input = textinput.New()
	m.input.Prompt = m.theme.Icon("search") + " "
	m.input.Placeholder = "show name"
	m.input.CharLimit = 120
	m.input.SetValue(cfg.Query)
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.MiniDot))

	m.sched = task.New(ctx, task.Options{
		TTL:      cfg.CacheTTL,
		Progress: m.onProgress,
		Failure:  m.onFailure,
		Logger:   cfg.Logger,
	})
	return m
}

// Init fires the initial search and starts listening for deliveries.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		m.waitForDelivery(),
		func() tea.Msg { return searchTickMsg{seq: 0} },
		tea.WindowSize(),
	}
	if m.changes != nil {
		cmds = append(cmds, m.waitForChange())
	}
	if cmd := m.probeDetails(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Close cancels background work. Pending results are dropped.
func (m *Model) Close() {
	m.sched.Close()
	m.cancel()
}

// Items returns the working set.
func (m *Model) Items() []*core.WorkItem {
	return m.items
}

// Report returns the outcome of the last rename, if any.
func (m *Model) Report() *core.RenameReport {
	return m.report
}

func (m *Model) waitForDelivery() tea.Cmd {
	return components.Receive(m.ctx, m.sched.Deliveries(), func(d task.Delivery) tea.Msg {
		return deliveryMsg{delivery: d}
	})
}

func (m *Model) waitForChange() tea.Cmd {
	return components.Receive(m.ctx, m.changes, func(struct{}) tea.Msg {
		return changedMsg{}
	})
}

func (m *Model) onProgress(inFlight []task.Category) {
	m.inFlight = inFlight
}

func (m *Model) onFailure(category task.Category, err error) {
	m.failure = string(category) + " failed: " + err.Error()
}

func (m *Model) probeDetails() tea.Cmd {
	if m.details == nil || len(m.items) == 0 {
		return nil
	}
	paths := make([]string, len(m.items))
	for i, item := range m.items {
		paths[i] = item.Path
	}
	src, ctx := m.details, m.ctx
	return func() tea.Msg {
		return detailsMsg{details: src.DetailsAll(ctx, paths)}
	}
}

func (m *Model) rescanCmd() tea.Cmd {
	if m.rescan == nil {
		return nil
	}
	rescan := m.rescan
	return func() tea.Msg {
		inf, err := rescan()
		return rescanMsg{inference: inf, err: err}
	}
}

// canRename reports whether the rename action is available.
func (m *Model) canRename() bool {
	if m.renamer == nil || m.sched.Busy(task.Rename, task.Episodes) {
		return false
	}
	return core.CountEligible(m.items) > 0
}
