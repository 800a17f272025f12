package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/tui/styles"
)

// View renders the whole screen
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	var body string
	switch m.Tab {
	case TabHymns:
		body = m.renderHymns()
	case TabSongs:
		body = m.renderSongs()
	case TabQuiz:
		body = m.renderQuiz()
	}

	bodyHeight := max(m.Height-ChromeHeight, 1)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		"",
		body,
		m.renderFooter(),
	)
}

func (m Model) renderTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.Tab {
			parts[i] = styles.ActiveTabStyle.Render(label)
		} else {
			parts[i] = styles.InactiveTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) rowWidth() int {
	return max(m.Width-4, 10)
}

func (m Model) renderHymns() string {
	if m.expanded {
		return m.renderHymnDetail()
	}

	var b strings.Builder
	header := styles.TitleStyle.Render(m.kind.Label())
	if m.kind == domain.KindPsalm {
		header = styles.TitleStyle.Render("Psalms")
	}
	b.WriteString(header + styles.DimStyle.Render(fmt.Sprintf("  %d", len(m.hymnRows))) + "\n")

	if f := m.hymnList.FilterView(); f != "" {
		b.WriteString(f + "\n")
	}

	if len(m.hymnRows) == 0 {
		if _, loaded := m.catalogs[m.kind]; !loaded {
			b.WriteString(m.spinner.View() + styles.DimStyle.Render(" Loading..."))
			return b.String()
		}
		b.WriteString(styles.DimStyle.Render("No matches"))
		if len(m.suggestions) > 0 {
			b.WriteString("\n" + styles.DimStyle.Render("Did you mean: ") +
				styles.AccentStyle.Render(strings.Join(m.suggestions, ", ")))
		}
		return b.String()
	}

	width := m.rowWidth()
	start, end := m.hymnList.Window(len(m.hymnRows))
	for i := start; i < end; i++ {
		row := m.hymnRows[i]
		selected := i == m.hymnList.Cursor()
		label := styles.Truncate(row.Label, width-2)
		if len(row.Matched) > 0 && !selected {
			b.WriteString(" " + styles.HighlightMatches(label, row.Matched, styles.SubtitleStyle) + "\n")
			continue
		}
		b.WriteString(styles.RenderListRow([]styles.RowPart{{Text: label}}, selected, width) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHymnDetail() string {
	i := m.hymnList.Cursor()
	if i < 0 || i >= len(m.hymnRows) {
		return ""
	}
	item := m.hymnRows[i].Item

	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render(item.Label()) + "  " + styles.TitleStyle.Render(item.Title) + "\n")
	if item.Subtitle != "" {
		b.WriteString(styles.SubtitleStyle.Render(item.Subtitle) + "\n")
	}
	if item.Meter != "" {
		b.WriteString(styles.DimStyle.Render("Meter: "+item.Meter) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.DetailStyle.Width(m.rowWidth()).Render(item.Body()))
	return b.String()
}

func (m Model) renderSongs() string {
	var b strings.Builder
	b.WriteString(m.renderNowPlaying() + "\n")

	if f := m.songList.FilterView(); f != "" {
		b.WriteString(f + "\n")
	}

	switch {
	case m.subscribing:
		b.WriteString(m.spinner.View() + styles.DimStyle.Render(" Connecting..."))
		return b.String()
	case m.songsErr != nil && len(m.tracks) == 0:
		b.WriteString(styles.ErrorStyle.Render("Songs unavailable: " + m.songsErr.Error()))
		return b.String()
	case len(m.songRows) == 0:
		b.WriteString(styles.DimStyle.Render("No songs"))
		return b.String()
	}

	width := m.rowWidth()
	start, end := m.songList.Window(len(m.songRows))
	for i := start; i < end; i++ {
		b.WriteString(m.renderTrackRow(m.songRows[i], i == m.songList.Cursor(), width) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTrackRow(t domain.Track, selected bool, width int) string {
	marker := "  "
	switch {
	case m.session.IsBusy(t.ID):
		marker = m.spinner.View() + " "
	case m.session.IsActive(t.ID) && m.session.IsPaused:
		marker = styles.PausedChar + " "
	case m.session.IsActive(t.ID):
		marker = styles.PlayingChar + " "
	}

	parts := []styles.RowPart{
		{Text: marker},
		{Text: styles.Truncate(t.DisplayTitle(), width/2)},
	}
	if t.Artist != "" {
		dim := styles.DimGray
		parts = append(parts, styles.RowPart{Text: "  " + styles.Truncate(t.Artist, width/3), Foreground: &dim})
	}
	return styles.RenderListRow(parts, selected, width)
}

func (m Model) renderNowPlaying() string {
	s := m.session
	if s.State == playback.StateIdle {
		return styles.DimStyle.Render("Nothing playing") + "\n"
	}

	icon := styles.PlayingChar
	switch s.State {
	case playback.StatePaused:
		icon = styles.PausedChar
	case playback.StateLoading:
		icon = m.spinner.View()
	}

	name := s.Track.DisplayTitle()
	if s.Track.ID == "" {
		name = "Loading..."
	}
	title := styles.TitleStyle.Render(styles.Truncate(name, m.rowWidth()-4))
	times := fmt.Sprintf("%s / %s", playback.FormatTime(s.PositionMs), playback.FormatTime(s.DurationMs))
	barWidth := max(m.rowWidth()-lipgloss.Width(times)-2, 3)

	return styles.AccentStyle.Render(icon) + " " + title + "\n" +
		styles.RenderProgressBar(s.Progress(), barWidth) + " " + styles.DimStyle.Render(times)
}

func (m Model) renderQuiz() string {
	var b strings.Builder

	year := m.years[m.yearIdx]
	header := styles.DimStyle.Render("Year ") + styles.AccentStyle.Render("[ "+year+" ]")
	header += styles.DimStyle.Render(fmt.Sprintf("  %d loaded", len(m.quizState.Items)))
	b.WriteString(header + "\n\n")

	items := m.quizState.Items
	if len(items) == 0 {
		if m.quizLoading {
			b.WriteString(m.spinner.View() + styles.DimStyle.Render(" Loading..."))
		} else {
			b.WriteString(styles.DimStyle.Render("No questions"))
		}
		return b.String()
	}

	width := m.rowWidth()
	start, end := m.quizList.Window(len(items))
	for i := start; i < end; i++ {
		q := items[i]
		dim := styles.DimGray
		parts := []styles.RowPart{
			{Text: fmt.Sprintf("%-6d", q.Year), Foreground: &dim},
			{Text: styles.Truncate(strings.ReplaceAll(q.Content, "\n", " "), width-10)},
		}
		b.WriteString(styles.RenderListRow(parts, i == m.quizList.Cursor(), width) + "\n")
	}

	switch {
	case m.quizLoading:
		b.WriteString(m.spinner.View() + styles.DimStyle.Render(" Loading more..."))
	case m.quizState.Exhausted:
		b.WriteString(styles.DimStyle.Render("End of questions"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	var hints []string
	switch m.Tab {
	case TabHymns:
		hints = []string{"t TSP/Psalms", "/ filter", "enter open"}
	case TabSongs:
		hints = []string{"enter play/pause", "←/→ seek", "x stop"}
	case TabQuiz:
		hints = []string{"[ ] year", "m more"}
	}
	var center string
	for i, h := range hints {
		k, desc, _ := strings.Cut(h, " ")
		if i > 0 {
			center += "  "
		}
		center += styles.AccentStyle.Render(k) + styles.DimStyle.Render(" "+desc)
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad
	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

func (m Model) renderHelp() string {
	help := `
GENERAL                         SONGS
  tab/S-tab  Next/prev tab        enter  Play/pause
  1/2/3      Hymns/Songs/Quiz     ←/→    Seek 10s
  j/k        Up/down              x      Stop
  g/G        First/last item
  /          Filter             QUIZ
  esc        Close/clear          [ ]    Previous/next year
  q          Quit                 m      Load more
                                  r      Reload
HYMNS
  t          TSP/Psalms
  enter      Open/close text
  r          Reload catalog

Press any key to return...
`
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
