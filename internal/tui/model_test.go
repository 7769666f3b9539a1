package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/media"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type fakeCatalog struct {
	mu           sync.Mutex
	searches     []string
	episodeCalls int

	searchFn   func(ctx context.Context, query string) ([]core.ShowCandidate, error)
	episodesFn func(ctx context.Context, showID int) ([]core.EpisodeRecord, error)
}

func (c *fakeCatalog) Search(ctx context.Context, query string, _ []core.Language) ([]core.ShowCandidate, error) {
	c.mu.Lock()
	c.searches = append(c.searches, query)
	c.mu.Unlock()
	if c.searchFn != nil {
		return c.searchFn(ctx, query)
	}
	return testShows(), nil
}

func (c *fakeCatalog) Episodes(ctx context.Context, showID int, _ []core.Language) ([]core.EpisodeRecord, error) {
	c.mu.Lock()
	c.episodeCalls++
	c.mu.Unlock()
	if c.episodesFn != nil {
		return c.episodesFn(ctx, showID)
	}
	return testEpisodes(), nil
}

func (c *fakeCatalog) searchLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searches...)
}

func (c *fakeCatalog) episodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.episodeCalls
}

// fakeRenamer renames in memory. Items whose old name is in fail are
// reported as failures with the mapped error.
type fakeRenamer struct {
	mu    sync.Mutex
	calls int
	show  string
	items []*core.WorkItem
	fail  map[string]error
	block chan struct{}
}

func (r *fakeRenamer) Rename(show string, items []*core.WorkItem) (core.RenameReport, error) {
	r.mu.Lock()
	r.calls++
	r.show = show
	r.items = items
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}

	var report core.RenameReport
	for _, item := range items {
		if !item.Eligible() {
			continue
		}
		if err := r.fail[item.OldName]; err != nil {
			report.Failures = append(report.Failures, core.RenameFailure{Item: item, Err: err})
			continue
		}
		item.Path = item.TargetPath()
		item.OldName = item.NewName
		report.Renamed++
	}
	return report, nil
}

func (r *fakeRenamer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeBanners struct{}

func (fakeBanners) Fetch(_ context.Context, url string) (provider.Banner, error) {
	return provider.Banner{URL: url, ContentType: "image/jpeg", Data: make([]byte, 2048)}, nil
}

func testShows() []core.ShowCandidate {
	return []core.ShowCandidate{
		{ID: 1, Year: 2017, Names: core.Names{core.English: "Dark", core.German: "Dark"}, BannerURL: "https://img/dark.jpg"},
		{ID: 2, Year: 2015, Names: core.Names{core.English: "Dark Matter"}},
	}
}

func testEpisodes() []core.EpisodeRecord {
	show := core.Names{core.English: "Dark", core.German: "Dark"}
	return []core.EpisodeRecord{
		{ID: 11, Season: 1, Episode: 1, ShowNames: show, Names: core.Names{core.English: "Secrets", core.German: "Geheimnisse"}},
		{ID: 12, Season: 1, Episode: 2, ShowNames: show, Names: core.Names{core.English: "Lies", core.German: "Lügen"}},
		{ID: 21, Season: 2, Episode: 1, ShowNames: show, Names: core.Names{core.English: "Beginnings and Endings", core.German: "Anfänge und Enden"}},
	}
}

func testItems() []*core.WorkItem {
	root := filepath.Join("tv", "Dark")
	items := []*core.WorkItem{
		core.NewWorkItem(filepath.Join(root, "Season 2", "dark.s02e01.mkv"), 2, 1),
		core.NewWorkItem(filepath.Join(root, "Season 1", "dark.s01e01.mkv"), 1, 1),
		core.NewWorkItem(filepath.Join(root, "Season 1", "dark.s01e02.mkv"), 1, 2),
	}
	media.SortItems(items)
	return items
}

func testOptions(cat *fakeCatalog, r *fakeRenamer) Options {
	return Options{
		Layout:         media.Layout{Root: filepath.Join("tv", "Dark")},
		Inference:      media.Inference{Items: testItems()},
		Catalog:        cat,
		Banners:        fakeBanners{},
		Renamer:        r,
		Languages:      []core.Language{core.English, core.German},
		Language:       core.English,
		Query:          "Dark",
		MinQueryLength: 3,
		Debounce:       10 * time.Millisecond,
		Logger:         zerolog.Nop(),
	}
}

func newTestModel(t *testing.T, opts Options) *Model {
	t.Helper()
	m := New(context.Background(), opts)
	t.Cleanup(m.Close)
	return m
}

// deliver applies the next finished task the way the program loop does.
func deliver(t *testing.T, m *Model) {
	t.Helper()
	select {
	case d := <-m.sched.Deliveries():
		m.Update(deliveryMsg{delivery: d})
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a task delivery")
	}
}

// loaded returns a model that has searched, selected the first show and
// received its banner and episodes.
func loaded(t *testing.T, cat *fakeCatalog, r *fakeRenamer) *Model {
	t.Helper()
	m := newTestModel(t, testOptions(cat, r))
	m.Update(searchTickMsg{seq: 0})
	deliver(t, m) // search
	deliver(t, m) // banner or episodes
	deliver(t, m)
	return m
}

func newNames(items []*core.WorkItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.NewName
	}
	return out
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialSearchSelectsFirstShow(t *testing.T) {
	cat := &fakeCatalog{}
	m := loaded(t, cat, &fakeRenamer{})

	if diff := cmp.Diff([]string{"Dark"}, cat.searchLog()); diff != "" {
		t.Errorf("searches mismatch (-want +got):\n%s", diff)
	}
	if m.selected == nil || m.selected.ID != 1 {
		t.Fatalf("selected = %v, want show 1", m.selected)
	}
	want := []string{"S01E01 - Secrets", "S01E02 - Lies", "S02E01 - Beginnings and Endings"}
	if diff := cmp.Diff(want, newNames(m.Items())); diff != "" {
		t.Errorf("new names mismatch (-want +got):\n%s", diff)
	}
	if m.banner == nil || m.banner.Size() != 2048 {
		t.Errorf("banner = %v, want the fetched banner", m.banner)
	}
	if len(m.inFlight) != 0 {
		t.Errorf("inFlight = %v, want none", m.inFlight)
	}
}

func TestLanguageAndTitleToggleDoNotRefetch(t *testing.T) {
	cat := &fakeCatalog{}
	m := loaded(t, cat, &fakeRenamer{})

	m.Update(key(tea.KeyCtrlL))
	want := []string{"S01E01 - Geheimnisse", "S01E02 - Lügen", "S02E01 - Anfänge und Enden"}
	if diff := cmp.Diff(want, newNames(m.Items())); diff != "" {
		t.Errorf("German names mismatch (-want +got):\n%s", diff)
	}

	m.Update(key(tea.KeyCtrlT))
	if got := m.Items()[0].NewName; got != "Dark - S01E01 - Geheimnisse" {
		t.Errorf("NewName with show title = %q", got)
	}

	// Language list wraps around.
	m.Update(key(tea.KeyCtrlL))
	if got := m.Items()[0].NewName; got != "Dark - S01E01 - Secrets" {
		t.Errorf("NewName after wrap = %q", got)
	}

	if got := cat.episodeCount(); got != 1 {
		t.Errorf("episode fetches = %d, want 1", got)
	}
}

func TestShortQueryClearsShows(t *testing.T) {
	cat := &fakeCatalog{}
	m := loaded(t, cat, &fakeRenamer{})

	m.input.SetValue(" Da ")
	m.Update(key(tea.KeyEnter))

	if len(m.shows) != 0 || m.selected != nil {
		t.Errorf("shows = %v, selected = %v; want cleared", m.shows, m.selected)
	}
	for _, item := range m.Items() {
		if item.NewName != "" {
			t.Errorf("%s keeps new name %q", item.OldName, item.NewName)
		}
	}
	if got := len(cat.searchLog()); got != 1 {
		t.Errorf("searches = %d, want 1", got)
	}
}

func TestTypingDebouncesSearch(t *testing.T) {
	cat := &fakeCatalog{}
	m := newTestModel(t, testOptions(cat, &fakeRenamer{}))

	_, cmd := m.Update(runes("x"))
	if cmd == nil {
		t.Fatal("typing returned no debounce command")
	}
	m.Update(runes("y"))
	if m.seq != 2 {
		t.Fatalf("seq = %d, want 2", m.seq)
	}

	// Ticks from earlier keystrokes are ignored.
	m.Update(searchTickMsg{seq: 1})
	if got := cat.searchLog(); len(got) != 0 {
		t.Fatalf("stale tick searched %v", got)
	}

	m.Update(searchTickMsg{seq: 2})
	deliver(t, m)
	if diff := cmp.Diff([]string{m.input.Value()}, cat.searchLog()); diff != "" {
		t.Errorf("searches mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleSearchResultDropped(t *testing.T) {
	release := make(chan struct{})
	cat := &fakeCatalog{
		searchFn: func(_ context.Context, query string) ([]core.ShowCandidate, error) {
			if query == "first" {
				<-release
				return []core.ShowCandidate{{ID: 7, Names: core.Names{core.English: "First"}}}, nil
			}
			return []core.ShowCandidate{{ID: 8, Names: core.Names{core.English: "Second"}}}, nil
		},
		episodesFn: func(context.Context, int) ([]core.EpisodeRecord, error) { return nil, nil },
	}
	m := newTestModel(t, testOptions(cat, &fakeRenamer{}))

	m.input.SetValue("first")
	m.Update(key(tea.KeyEnter))
	m.input.SetValue("second")
	m.Update(key(tea.KeyEnter))

	deliver(t, m) // second search
	close(release)
	deliver(t, m) // episodes of "Second" and the stale first search, in any order
	deliver(t, m)

	if len(m.shows) != 1 || m.shows[0].ID != 8 {
		t.Errorf("shows = %v, want only the second search result", m.shows)
	}
}

func TestSearchFailureShown(t *testing.T) {
	cat := &fakeCatalog{
		searchFn: func(context.Context, string) ([]core.ShowCandidate, error) {
			return nil, errors.New("catalog offline")
		},
	}
	m := newTestModel(t, testOptions(cat, &fakeRenamer{}))
	m.Update(searchTickMsg{seq: 0})
	deliver(t, m)

	if !strings.Contains(m.failure, "search failed: catalog offline") {
		t.Errorf("failure = %q", m.failure)
	}
	if !strings.Contains(m.View(), "search failed") {
		t.Error("View() does not show the failure")
	}
}

func TestRenameReport(t *testing.T) {
	r := &fakeRenamer{fail: map[string]error{"dark.s01e02": core.ErrTargetExists}}
	m := loaded(t, &fakeCatalog{}, r)
	before := m.Items()[0]

	m.Update(key(tea.KeyCtrlR))
	deliver(t, m)

	if r.show != "Dark" {
		t.Errorf("renamer show = %q, want Dark", r.show)
	}
	if r.items[0] == before {
		t.Error("renamer received the live items, want copies")
	}

	report := m.Report()
	if report == nil || report.Renamed != 2 || len(report.Failures) != 1 {
		t.Fatalf("Report() = %+v, want 2 renamed and 1 failure", report)
	}
	if !errors.Is(report.Failures[0], core.ErrTargetExists) {
		t.Errorf("failure = %v, want ErrTargetExists", report.Failures[0])
	}

	items := m.Items()
	if items[0].OldName != "S01E01 - Secrets" || filepath.Base(items[0].Path) != "S01E01 - Secrets.mkv" {
		t.Errorf("renamed item = %+v", items[0])
	}
	if items[1].OldName != "dark.s01e02" || !items[1].Eligible() {
		t.Errorf("failed item = %+v, want unchanged and still eligible", items[1])
	}
	if !strings.Contains(m.View(), "failed 1") {
		t.Error("View() does not show the failure count")
	}
}

func TestRenameRejectedWhileRenaming(t *testing.T) {
	r := &fakeRenamer{block: make(chan struct{})}
	m := loaded(t, &fakeCatalog{}, r)

	m.Update(key(tea.KeyCtrlR))
	// Wait for the background rename to start.
	deadline := time.Now().Add(2 * time.Second)
	for r.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.canRename() {
		t.Error("canRename() = true while a rename runs")
	}

	m.Update(key(tea.KeyCtrlR))
	close(r.block)
	deliver(t, m)

	if got := r.callCount(); got != 1 {
		t.Errorf("rename calls = %d, want 1", got)
	}
	if m.Report() == nil || m.Report().Renamed != 3 {
		t.Errorf("Report() = %+v, want 3 renamed", m.Report())
	}
}

func TestRenameUnavailableWithoutNames(t *testing.T) {
	r := &fakeRenamer{}
	m := newTestModel(t, testOptions(&fakeCatalog{}, r))

	m.Update(key(tea.KeyCtrlR))
	select {
	case d := <-m.sched.Deliveries():
		t.Fatalf("unexpected %s delivery", d.Category())
	case <-time.After(50 * time.Millisecond):
	}
	if got := r.callCount(); got != 0 {
		t.Errorf("rename calls = %d, want 0", got)
	}
}

func TestEpisodeSelection(t *testing.T) {
	m := loaded(t, &fakeCatalog{}, &fakeRenamer{})
	m.Update(key(tea.KeyTab))
	m.Update(key(tea.KeyTab))
	if m.focus != focusEpisodes {
		t.Fatalf("focus = %d, want episodes", m.focus)
	}

	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeySpace))
	if m.Items()[1].Selected {
		t.Error("space did not deselect the item under the cursor")
	}
	if got := core.CountEligible(m.Items()); got != 2 {
		t.Errorf("CountEligible() = %d, want 2", got)
	}

	m.Update(runes("a"))
	for _, item := range m.Items() {
		if !item.Selected {
			t.Errorf("%s not selected after select all", item.OldName)
		}
	}
	m.Update(runes("a"))
	if got := core.CountEligible(m.Items()); got != 0 {
		t.Errorf("CountEligible() after deselect all = %d, want 0", got)
	}
}

func TestShowNavigationSelectsShow(t *testing.T) {
	cat := &fakeCatalog{}
	m := loaded(t, cat, &fakeRenamer{})
	m.Update(key(tea.KeyTab))

	m.Update(key(tea.KeyDown))
	if m.selected == nil || m.selected.ID != 2 {
		t.Fatalf("selected = %v, want show 2", m.selected)
	}
	// Show 2 has no banner; only episodes are fetched.
	deliver(t, m)
	if m.banner != nil {
		t.Errorf("banner = %v, want nil", m.banner)
	}

	// Going back hits the cache synchronously.
	m.Update(key(tea.KeyUp))
	if got := m.Items()[0].NewName; got != "S01E01 - Secrets" {
		t.Errorf("NewName after reselect = %q", got)
	}
	if m.banner == nil {
		t.Error("banner not restored from cache")
	}
	if got := cat.episodeCount(); got != 2 {
		t.Errorf("episode fetches = %d, want 2", got)
	}
}

func TestRescanKeepsSelection(t *testing.T) {
	m := loaded(t, &fakeCatalog{}, &fakeRenamer{})
	m.Items()[0].Selected = false
	m.Items()[0].Details = "1080p h264"

	items := testItems()
	extra := core.NewWorkItem(filepath.Join("tv", "Dark", "Season 2", "dark.s02e02.mkv"), 2, 2)
	items = append(items, extra)
	media.SortItems(items)

	m.Update(rescanMsg{inference: media.Inference{Items: items}})

	got := m.Items()
	if len(got) != 4 {
		t.Fatalf("items = %d, want 4", len(got))
	}
	if got[0].Selected || got[0].Details != "1080p h264" {
		t.Errorf("first item = %+v, want selection and details kept", got[0])
	}
	if got[0].NewName != "S01E01 - Secrets" {
		t.Errorf("NewName = %q, want names recomputed", got[0].NewName)
	}
	if got[3].NewName != "" {
		t.Errorf("unknown episode NewName = %q, want empty", got[3].NewName)
	}
	if m.notice != "rescanned 4 files" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestChangeTriggersRescan(t *testing.T) {
	changes := make(chan struct{}, 1)
	opts := testOptions(&fakeCatalog{}, &fakeRenamer{})
	opts.Changes = changes
	opts.Rescan = func() (media.Inference, error) {
		return media.Inference{}, errors.New("permission denied")
	}
	m := newTestModel(t, opts)

	_, cmd := m.Update(changedMsg{})
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("changedMsg command = %T, want a batch of rescan and watch", cmd())
	}
	m.Update(batch[0]())
	if !strings.Contains(m.failure, "rescan failed") {
		t.Errorf("failure = %q, want rescan failure", m.failure)
	}
	if len(m.Items()) != 3 {
		t.Errorf("items = %d, want the previous working set", len(m.Items()))
	}
}

func TestDetailsApplied(t *testing.T) {
	m := loaded(t, &fakeCatalog{}, &fakeRenamer{})
	path := m.Items()[2].Path

	m.Update(detailsMsg{details: map[string]string{path: "2160p hevc"}})

	if got := m.Items()[2].Details; got != "2160p hevc" {
		t.Errorf("Details = %q", got)
	}
	if !strings.Contains(m.View(), "2160p hevc") {
		t.Error("View() does not show details")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"Lügen", 5, "Lügen"},
	}
	for _, tc := range tests {
		if got := fit(tc.in, tc.width); got != tc.want {
			t.Errorf("fit(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
