package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// CatalogLoadedMsg carries one catalog kind
type CatalogLoadedMsg struct {
	Kind  domain.Kind
	Items []domain.CatalogItem
}

// SubscribedMsg signals that the songs subscription is live
type SubscribedMsg struct {
	Sub *playback.CatalogSubscription
}

// TracksUpdatedMsg carries a snapshot and the command that waits for the next
type TracksUpdatedMsg struct {
	Update  playback.Update
	NextCmd tea.Cmd
}

// SessionMsg carries a playback session and the command that waits for the next
type SessionMsg struct {
	Session playback.Session
	NextCmd tea.Cmd
}

// QuizPageMsg carries the cursor state after a reset or page fetch
type QuizPageMsg struct {
	State quiz.PageState
	Err   error
}

// YearsLoadedMsg carries the year picker options, "All" first
type YearsLoadedMsg struct {
	Options []string
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
