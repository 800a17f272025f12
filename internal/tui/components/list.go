package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gksapp/gks/internal/tui/styles"
)

// ListView tracks cursor, scroll window and filter input for a list whose
// rows are rendered by the owner. It never holds the items themselves.
type ListView struct {
	cursor int
	offset int
	height int

	filterActive bool
	filterInput  textinput.Model
}

// NewListView creates a list with a filter input using placeholder
func NewListView(placeholder string) ListView {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 60
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	return ListView{filterInput: ti, height: 1}
}

// SetHeight sets how many rows fit, including the filter bar
func (l *ListView) SetHeight(h int) {
	l.height = h
	l.ensureVisible()
}

func (l ListView) visible() int {
	v := l.height
	if l.filterActive {
		v--
	}
	return max(v, 1)
}

func (l ListView) Cursor() int { return l.cursor }

// Clamp keeps the cursor inside a list of count rows
func (l *ListView) Clamp(count int) {
	if l.cursor >= count {
		l.cursor = count - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.ensureVisible()
}

func (l ListView) Query() string { return l.filterInput.Value() }

func (l ListView) IsFiltering() bool { return l.filterActive }

// IsFilterTyping reports whether keystrokes go to the filter input
func (l ListView) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// StartFilter opens and focuses the filter input
func (l *ListView) StartFilter() tea.Cmd {
	l.filterActive = true
	l.ensureVisible()
	return l.filterInput.Focus()
}

// ClearFilter closes the filter and resets the cursor
func (l *ListView) ClearFilter() {
	l.filterActive = false
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.cursor = 0
	l.offset = 0
}

// Update handles navigation and filter typing for a list of count rows.
// The bool result reports a change of the filter query.
func (l ListView) Update(msg tea.Msg, count int) (ListView, tea.Cmd, bool) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if l.IsFilterTyping() {
		if isKey {
			switch keyMsg.String() {
			case "esc":
				l.ClearFilter()
				return l, nil, true
			case "enter":
				l.filterInput.Blur()
				return l, nil, false
			case "backspace":
				if l.filterInput.Value() == "" {
					l.ClearFilter()
					return l, nil, true
				}
			}
		}
		before := l.filterInput.Value()
		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		changed := l.filterInput.Value() != before
		if changed {
			l.cursor = 0
			l.offset = 0
		}
		return l, cmd, changed
	}

	if !isKey {
		return l, nil, false
	}

	if l.filterActive {
		switch keyMsg.String() {
		case "esc":
			l.ClearFilter()
			return l, nil, true
		case "/":
			return l, l.filterInput.Focus(), false
		}
	}

	if count == 0 {
		return l, nil, false
	}
	switch keyMsg.String() {
	case "j", "down":
		if l.cursor < count-1 {
			l.cursor++
		}
	case "k", "up":
		if l.cursor > 0 {
			l.cursor--
		}
	case "g", "home":
		l.cursor = 0
	case "G", "end":
		l.cursor = count - 1
	case "ctrl+d", "pgdown":
		l.cursor = min(l.cursor+max(l.visible()/2, 1), count-1)
	case "ctrl+u", "pgup":
		l.cursor = max(l.cursor-max(l.visible()/2, 1), 0)
	}
	l.ensureVisible()
	return l, nil, false
}

// Window returns the [start, end) range of rows to draw
func (l ListView) Window(count int) (int, int) {
	start := min(l.offset, max(count-1, 0))
	end := min(start+l.visible(), count)
	return start, end
}

// AtEnd reports whether the cursor sits on the last of count rows
func (l ListView) AtEnd(count int) bool {
	return count > 0 && l.cursor == count-1
}

// FilterView renders the filter bar, empty when the filter is closed
func (l ListView) FilterView() string {
	if !l.filterActive {
		return ""
	}
	return styles.FilterPromptStyle.Render("/ ") + l.filterInput.View()
}

func (l *ListView) ensureVisible() {
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if n := l.visible(); l.cursor >= l.offset+n {
		l.offset = l.cursor - n + 1
	}
}
