package tui

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gksapp/gks/internal/catalog"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
	"github.com/gksapp/gks/internal/search"
	"github.com/gksapp/gks/internal/tui/components"
	"github.com/gksapp/gks/internal/tui/styles"
)

// Tab is one of the top-level screens
type Tab int

const (
	TabHymns Tab = iota
	TabSongs
	TabQuiz
)

var tabNames = []string{"Hymns", "Songs", "Quiz"}

const (
	seekStepMs  = 10_000
	suggestions = 3

	// Vertical chrome: tab bar + blank line + footer
	ChromeHeight = 3
	// Now-playing panel on the songs tab
	NowPlayingHeight = 3
	// Year header on the quiz tab
	QuizHeaderHeight = 2
)

// Options wires the services the TUI drives
type Options struct {
	Catalog    *catalog.Service
	Player     *playback.Controller
	Quiz       *quiz.Cursor
	SearchMode search.Mode
	Logger     *slog.Logger
}

type hymnRow struct {
	Item    domain.CatalogItem
	Label   string
	Matched []int
}

// Model is the main Bubble Tea model for the application
type Model struct {
	catalogSvc *catalog.Service
	player     *playback.Controller
	quizCursor *quiz.Cursor
	searchMode search.Mode
	logger     *slog.Logger

	Tab      Tab
	Width    int
	Height   int
	Ready    bool
	ShowHelp bool

	StatusMsg   string
	StatusIsErr bool
	spinner     spinner.Model

	// Hymns
	kind        domain.Kind
	catalogs    map[domain.Kind][]domain.CatalogItem
	hymnRows    []hymnRow
	hymnList    components.ListView
	expanded    bool
	suggestions []string

	// Songs
	sub         *playback.CatalogSubscription
	tracks      []domain.Track
	songRows    []domain.Track
	songList    components.ListView
	session     playback.Session
	sessions    <-chan playback.Session
	stopWatch   func()
	songsErr    error
	subscribing bool

	// Quiz
	quizState   quiz.PageState
	quizList    components.ListView
	years       []string
	yearIdx     int
	quizLoading bool
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	m := Model{
		catalogSvc:  opts.Catalog,
		player:      opts.Player,
		quizCursor:  opts.Quiz,
		searchMode:  opts.SearchMode,
		logger:      logger,
		spinner:     sp,
		kind:        domain.KindTSP,
		catalogs:    make(map[domain.Kind][]domain.CatalogItem),
		hymnList:    components.NewListView("number or title..."),
		songList:    components.NewListView("title..."),
		quizList:    components.NewListView(""),
		years:       []string{quiz.AllYears},
		subscribing: opts.Player != nil,
		quizLoading: opts.Quiz != nil,
	}
	if opts.Player != nil {
		m.sessions, m.stopWatch = opts.Player.Watch()
		m.session = opts.Player.Session()
	}
	return m
}

// Init starts the initial loads
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.catalogSvc != nil {
		cmds = append(cmds, LoadCatalogCmd(m.catalogSvc, m.kind))
	}
	if m.player != nil {
		cmds = append(cmds, SubscribeSongsCmd(m.player), WatchSessionCmd(m.sessions))
	}
	if m.quizCursor != nil {
		cmds = append(cmds, ResetQuizCmd(m.quizCursor, nil), LoadYearsCmd(m.quizCursor))
	}
	return tea.Batch(cmds...)
}

// Shutdown drops the live subscriptions. Call it with the final model
// after the program exits.
func (m Model) Shutdown() {
	if m.sub != nil {
		m.sub.Unsubscribe()
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case CatalogLoadedMsg:
		m.catalogs[msg.Kind] = msg.Items
		if msg.Kind == m.kind {
			m.applyHymnFilter()
		}
		return m, nil

	case SubscribedMsg:
		m.sub = msg.Sub
		m.subscribing = false
		m.tracks = msg.Sub.Snapshot()
		m.songsErr = msg.Sub.Err()
		m.applySongFilter()
		return m, WatchTracksCmd(msg.Sub)

	case TracksUpdatedMsg:
		if msg.Update.Err != nil {
			m.songsErr = msg.Update.Err
		} else {
			m.tracks = msg.Update.Tracks
			m.songsErr = nil
		}
		m.applySongFilter()
		return m, msg.NextCmd

	case SessionMsg:
		m.session = msg.Session
		return m, msg.NextCmd

	case QuizPageMsg:
		if errors.Is(msg.Err, quiz.ErrPageDiscarded) {
			// a reset overtook this fetch; its own message is still coming
			return m, nil
		}
		m.quizLoading = false
		m.quizState = msg.State
		m.quizList.Clamp(len(m.quizState.Items))
		if msg.Err != nil {
			return m.setStatus(msg.Err.Error(), true)
		}
		return m, nil

	case YearsLoadedMsg:
		current := m.years[m.yearIdx]
		m.years = msg.Options
		m.yearIdx = 0
		for i, y := range m.years {
			if y == current {
				m.yearIdx = i
			}
		}
		return m, nil

	case ErrMsg:
		m.logger.Error("tui command failed", "context", msg.Context, "error", msg.Err)
		if msg.Context == "subscribing to songs" {
			m.subscribing = false
			m.songsErr = msg.Err
		}
		return m.setStatus(msg.Error(), true)

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) setStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	delay := 3 * time.Second
	if isErr {
		delay = 5 * time.Second
	}
	return m, ClearStatusCmd(delay)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp {
		m.ShowHelp = false
		return m, nil
	}

	// Filter input owns the keyboard while typing
	if m.activeListTyping() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.updateActiveList(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
		return m, nil
	case key.Matches(msg, Keys.NextTab):
		m.Tab = (m.Tab + 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, Keys.PrevTab):
		m.Tab = (m.Tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, Keys.Hymns):
		m.Tab = TabHymns
		return m, nil
	case key.Matches(msg, Keys.Songs):
		m.Tab = TabSongs
		return m, nil
	case key.Matches(msg, Keys.Quiz):
		m.Tab = TabQuiz
		return m, nil
	}

	switch m.Tab {
	case TabHymns:
		return m.handleHymnsKey(msg)
	case TabSongs:
		return m.handleSongsKey(msg)
	case TabQuiz:
		return m.handleQuizKey(msg)
	}
	return m, nil
}

func (m Model) handleHymnsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.expanded {
		if key.Matches(msg, Keys.Escape) || key.Matches(msg, Keys.Enter) {
			m.expanded = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.ToggleKind):
		if m.kind == domain.KindTSP {
			m.kind = domain.KindPsalm
		} else {
			m.kind = domain.KindTSP
		}
		m.hymnList.ClearFilter()
		m.applyHymnFilter()
		if m.catalogSvc == nil {
			return m, nil
		}
		return m, LoadCatalogCmd(m.catalogSvc, m.kind)
	case key.Matches(msg, Keys.Refresh):
		if m.catalogSvc == nil {
			return m, nil
		}
		m.catalogSvc.Invalidate(m.kind)
		return m, LoadCatalogCmd(m.catalogSvc, m.kind)
	case key.Matches(msg, Keys.Filter) && !m.hymnList.IsFiltering():
		return m, m.hymnList.StartFilter()
	case key.Matches(msg, Keys.Enter):
		if len(m.hymnRows) > 0 {
			m.expanded = true
		}
		return m, nil
	}
	return m.updateActiveList(msg)
}

func (m Model) handleSongsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.player == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, Keys.Enter):
		track, ok := m.selectedTrack()
		if !ok {
			return m, nil
		}
		return m, PlayPauseCmd(m.player, track)
	case key.Matches(msg, Keys.SeekBack):
		return m, SeekByCmd(m.player, -seekStepMs)
	case key.Matches(msg, Keys.SeekForward):
		return m, SeekByCmd(m.player, seekStepMs)
	case key.Matches(msg, Keys.Stop):
		return m, StopCmd(m.player)
	case key.Matches(msg, Keys.Filter) && !m.songList.IsFiltering():
		return m, m.songList.StartFilter()
	}
	return m.updateActiveList(msg)
}

func (m Model) handleQuizKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quizCursor == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, Keys.NextYear):
		return m.selectYear(m.yearIdx + 1)
	case key.Matches(msg, Keys.PrevYear):
		return m.selectYear(m.yearIdx - 1)
	case key.Matches(msg, Keys.Refresh):
		return m.selectYear(m.yearIdx)
	case key.Matches(msg, Keys.More):
		return m, m.loadMore()
	}

	m, cmd := m.updateActiveList(msg)
	if m.quizList.AtEnd(len(m.quizState.Items)) {
		more := m.loadMore()
		return m, tea.Batch(cmd, more)
	}
	return m, cmd
}

func (m Model) selectYear(idx int) (Model, tea.Cmd) {
	n := len(m.years)
	m.yearIdx = ((idx % n) + n) % n
	filter, err := quiz.ParseYearFilter(m.years[m.yearIdx])
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.quizLoading = true
	m.quizList.ClearFilter()
	return m, ResetQuizCmd(m.quizCursor, filter)
}

// loadMore fetches the next quiz page unless one is pending or none remain
func (m *Model) loadMore() tea.Cmd {
	if m.quizLoading || m.quizState.Exhausted || m.quizCursor == nil {
		return nil
	}
	m.quizLoading = true
	return FetchQuizPageCmd(m.quizCursor)
}

func (m Model) activeListTyping() bool {
	switch m.Tab {
	case TabHymns:
		return m.hymnList.IsFilterTyping()
	case TabSongs:
		return m.songList.IsFilterTyping()
	}
	return false
}

func (m Model) updateActiveList(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	var changed bool
	switch m.Tab {
	case TabHymns:
		m.hymnList, cmd, changed = m.hymnList.Update(msg, len(m.hymnRows))
		if changed {
			m.applyHymnFilter()
		}
	case TabSongs:
		m.songList, cmd, changed = m.songList.Update(msg, len(m.songRows))
		if changed {
			m.applySongFilter()
		}
	case TabQuiz:
		m.quizList, cmd, _ = m.quizList.Update(msg, len(m.quizState.Items))
	}
	return m, cmd
}

func (m *Model) applyHymnFilter() {
	items := m.catalogs[m.kind]
	query := m.hymnList.Query()
	m.suggestions = nil
	m.hymnRows = nil

	titles := search.CatalogTitles(items)
	if m.searchMode == search.ModeFuzzy && strings.TrimSpace(query) != "" {
		for _, match := range search.Rank(query, titles) {
			m.hymnRows = append(m.hymnRows, hymnRow{
				Item:    items[match.Index],
				Label:   titles[match.Index],
				Matched: match.MatchedIndexes,
			})
		}
	} else {
		for _, it := range search.Catalog(items, query) {
			m.hymnRows = append(m.hymnRows, hymnRow{Item: it, Label: it.Number + " " + it.Title})
		}
	}

	if len(m.hymnRows) == 0 && strings.TrimSpace(query) != "" {
		m.suggestions = search.Suggest(query, titles, suggestions)
	}
	m.hymnList.Clamp(len(m.hymnRows))
}

func (m *Model) applySongFilter() {
	query := m.songList.Query()
	if m.searchMode == search.ModeFuzzy && query != "" {
		m.songRows = search.Select(m.tracks, search.Rank(query, search.TrackTitles(m.tracks)))
	} else {
		m.songRows = search.Tracks(m.tracks, query)
	}
	m.songList.Clamp(len(m.songRows))
}

func (m Model) selectedTrack() (domain.Track, bool) {
	i := m.songList.Cursor()
	if i < 0 || i >= len(m.songRows) {
		return domain.Track{}, false
	}
	return m.songRows[i], true
}

func (m *Model) updateLayout() {
	body := m.Height - ChromeHeight
	m.hymnList.SetHeight(body - 1)
	m.songList.SetHeight(body - NowPlayingHeight)
	m.quizList.SetHeight(body - QuizHeaderHeight - 1)
}
