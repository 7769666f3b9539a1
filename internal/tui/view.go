package tui

import (
	"fmt"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/task"
	"github.com/Digital-Shane/episode-renamer/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Panel frame: border (2) plus horizontal padding (2).
const (
	frameWidth  = 4
	frameHeight = 2
)

// View renders the header, the search and episode panes, a message line and
// the status bar.
func (m *Model) View() string {
	header := m.theme.HeaderStyle().Width(m.width).Render(
		fit(fmt.Sprintf("%s episode-renamer  %s", m.theme.Icon("show"), m.layout.Root), max(m.width-2, 1)))

	bodyHeight := max(m.height-3, 6)
	left := m.renderSearchPane(m.leftWidth(), bodyHeight)
	right := m.renderEpisodePane(m.width-m.leftWidth(), bodyHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderMessage(), m.renderStatus())
}

func (m *Model) leftWidth() int {
	return max(m.width*2/5, 30)
}

// episodeRows is the number of table rows the episode pane can show.
func (m *Model) episodeRows() int {
	return max(m.height-3-frameHeight-2, 1)
}

func (m *Model) renderSearchPane(width, height int) string {
	inner := width - frameWidth
	var b strings.Builder

	b.WriteString(m.theme.PanelTitleStyle().Render("Search"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(m.theme.PanelTitleStyle().Render(fmt.Sprintf("Shows (%d)", len(m.shows))))
	b.WriteString("\n")

	// Leave room for the banner line below the list.
	rows := max(height-frameHeight-6, 1)
	start := max(m.showCursor-rows+1, 0)
	for i := start; i < len(m.shows) && i < start+rows; i++ {
		b.WriteString(m.renderShow(i, inner))
		b.WriteString("\n")
	}
	if len(m.shows) == 0 {
		b.WriteString(m.theme.MutedStyle().Render("no shows"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fit(m.bannerLine(), inner))

	return m.theme.PanelStyle(m.focus != focusEpisodes).
		Width(width - 2).
		Height(height - frameHeight).
		Render(b.String())
}

func (m *Model) renderShow(i, width int) string {
	show := m.shows[i]
	label := show.Name(m.lang)
	if show.HasYear() {
		label = fmt.Sprintf("%s (%d)", label, show.Year)
	}
	line := fit("  "+label, width)
	if i == m.showCursor {
		if m.focus == focusShows {
			return m.theme.CursorStyle().Render(line)
		}
		return lipgloss.NewStyle().Bold(true).Render(fit("> "+label, width))
	}
	return line
}

func (m *Model) bannerLine() string {
	icon := m.theme.Icon("banner")
	switch {
	case m.selected == nil:
		return ""
	case m.banner != nil:
		return fmt.Sprintf("%s %s (%.1f KB)", icon, m.banner.URL, float64(m.banner.Size())/1024)
	case m.selected.BannerURL == "":
		return icon + " no banner"
	default:
		return icon + " loading banner"
	}
}

func (m *Model) renderEpisodePane(width, height int) string {
	inner := width - frameWidth
	var b strings.Builder

	title := "off"
	if m.showTitle {
		title = "on"
	}
	b.WriteString(m.theme.PanelTitleStyle().Render(fmt.Sprintf("Episodes (%d)", len(m.items))))
	b.WriteString(m.theme.MutedStyle().Render(fmt.Sprintf("  %s %s  show title: %s",
		m.theme.Icon("globe"), strings.ToUpper(m.lang.Code()), title)))
	b.WriteString("\n")

	cols := m.columns(inner)
	b.WriteString(m.theme.MutedStyle().Render(cols.row("", "Code", "Current name", "New name", "Details")))
	b.WriteString("\n")

	lines, cursorLine := m.episodeLines(cols)
	rows := m.episodeRows()
	start := max(cursorLine-rows+1, 0)
	for i := start; i < len(lines) && i < start+rows; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
	}

	return m.theme.PanelStyle(m.focus == focusEpisodes).
		Width(width - 2).
		Height(height - frameHeight).
		Render(strings.TrimSuffix(b.String(), "\n"))
}

// episodeLines renders one line per item plus a heading before every new
// season. cursorLine is the line of the item under the cursor.
func (m *Model) episodeLines(cols columns) ([]string, int) {
	lines := make([]string, 0, len(m.items)+4)
	cursorLine := 0
	for i, item := range m.items {
		if item.FirstOfSeason {
			lines = append(lines, m.theme.MutedStyle().Render(
				fmt.Sprintf("%s Season %d", m.theme.Icon("season"), item.Season)))
		}

		mark := m.theme.Icon("skipped")
		if item.Selected {
			mark = m.theme.Icon("selected")
		}
		newName := item.NewName
		switch {
		case newName == "":
			newName = m.theme.Icon("missing")
		case newName == item.OldName:
			newName = m.theme.Icon("nochange")
		}
		line := cols.row(mark, item.Code(), item.OldName, newName, item.Details)

		if i == m.epCursor {
			cursorLine = len(lines)
			if m.focus == focusEpisodes {
				line = m.theme.CursorStyle().Render(line)
			}
		}
		lines = append(lines, line)
	}
	return lines, cursorLine
}

type columns struct {
	mark, code, old, target, details int
}

func (m *Model) columns(width int) columns {
	c := columns{mark: 4, code: 7}
	for _, item := range m.items {
		if item.Details != "" {
			c.details = 18
			break
		}
	}
	rest := max(width-c.mark-c.code-c.details-3, 10)
	c.old = rest * 2 / 5
	c.target = rest - c.old
	return c
}

func (c columns) row(mark, code, old, newName, details string) string {
	cells := []string{fit(mark, c.mark), fit(code, c.code), fit(old, c.old), fit(newName, c.target)}
	if c.details > 0 {
		cells = append(cells, fit(details, c.details))
	}
	return strings.Join(cells, " ")
}

// fit truncates or pads s to exactly width terminal cells.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func (m *Model) renderMessage() string {
	var msg string
	style := lipgloss.NewStyle()

	switch {
	case m.failure != "":
		msg = m.theme.Icon("error") + " " + m.failure
		style = m.theme.ErrorStyle()
	case m.report != nil:
		msg = renameSummary(m.theme, *m.report)
		if len(m.report.Failures) > 0 {
			style = m.theme.ErrorStyle()
		}
	case m.notice != "":
		msg = m.notice
	case len(m.deferred) > 0:
		msg = fmt.Sprintf("%d files had no episode number and were numbered by name", len(m.deferred))
		style = m.theme.MutedStyle()
	}
	return style.Width(m.width).MaxHeight(1).Render(fit(msg, m.width))
}

func renameSummary(th theme.Theme, report core.RenameReport) string {
	if len(report.Failures) == 0 {
		return fmt.Sprintf("%s renamed %d files", th.Icon("success"), report.Renamed)
	}
	failed := make([]string, len(report.Failures))
	for i, f := range report.Failures {
		failed[i] = f.Error()
	}
	return fmt.Sprintf("%s renamed %d, failed %d: %s",
		th.Icon("error"), report.Renamed, len(report.Failures), strings.Join(failed, "; "))
}

func (m *Model) renderStatus() string {
	activity := m.theme.BadgeStyle(theme.BadgeSuccess).Render("ready")
	if len(m.inFlight) > 0 {
		names := make([]string, len(m.inFlight))
		for i, c := range m.inFlight {
			names[i] = string(c)
		}
		activity = m.theme.BadgeStyle(theme.BadgeInfo).Render(m.spinner.View() + " " + strings.Join(names, ", "))
	}

	renameHint := "ctrl+r rename"
	if !m.canRename() {
		renameHint = "rename unavailable"
		if m.sched.Busy(task.Rename) {
			renameHint = "renaming"
		}
	}
	hints := fmt.Sprintf("%d/%d to rename  tab focus  ctrl+l language  ctrl+t title  space select  %s  esc quit",
		core.CountEligible(m.items), len(m.items), renameHint)

	width := max(m.width-lipgloss.Width(activity), 2)
	status := m.theme.StatusBarStyle().Width(width).Render(fit(hints, width-2))
	return lipgloss.JoinHorizontal(lipgloss.Top, activity, status)
}
