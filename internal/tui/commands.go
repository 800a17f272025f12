package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gksapp/gks/internal/catalog"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
)

// Command factories for async operations

// LoadCatalogCmd loads one catalog kind, served from cache when fresh
func LoadCatalogCmd(svc *catalog.Service, kind domain.Kind) tea.Cmd {
	return func() tea.Msg {
		items, err := svc.Load(kind)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading " + kind.Label()}
		}
		return CatalogLoadedMsg{Kind: kind, Items: items}
	}
}

// SubscribeSongsCmd opens the live songs subscription. It lives until the
// program exits, so it is not bound to a timeout.
func SubscribeSongsCmd(ctrl *playback.Controller) tea.Cmd {
	return func() tea.Msg {
		sub, err := ctrl.SubscribeCatalog(context.Background(), nil)
		if err != nil {
			return ErrMsg{Err: err, Context: "subscribing to songs"}
		}
		return SubscribedMsg{Sub: sub}
	}
}

// WatchTracksCmd waits for the next subscription update. The returned
// message embeds the continuation so the app keeps pumping updates.
func WatchTracksCmd(sub *playback.CatalogSubscription) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-sub.Updates()
		if !ok {
			return nil
		}
		return TracksUpdatedMsg{Update: u, NextCmd: WatchTracksCmd(sub)}
	}
}

// WatchSessionCmd waits for the next playback session snapshot
func WatchSessionCmd(ch <-chan playback.Session) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return SessionMsg{Session: s, NextCmd: WatchSessionCmd(ch)}
	}
}

// PlayPauseCmd toggles or switches playback to track
func PlayPauseCmd(ctrl *playback.Controller, track domain.Track) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := ctrl.RequestPlayPause(ctx, track); err != nil {
			return ErrMsg{Err: err, Context: "playing " + track.DisplayTitle()}
		}
		return nil
	}
}

// SeekByCmd moves the playhead by delta milliseconds
func SeekByCmd(ctrl *playback.Controller, deltaMs int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := ctrl.SeekBy(ctx, deltaMs); err != nil {
			return ErrMsg{Err: err, Context: "seeking"}
		}
		return nil
	}
}

// StopCmd releases the active transport off the UI goroutine
func StopCmd(ctrl *playback.Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Stop()
		return StatusMsg{Message: "Stopped"}
	}
}

// ResetQuizCmd restarts pagination under filter
func ResetQuizCmd(cursor *quiz.Cursor, filter *domain.FieldFilter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := cursor.Reset(ctx, filter)
		return QuizPageMsg{State: cursor.State(), Err: err}
	}
}

// FetchQuizPageCmd appends the next page when one is due
func FetchQuizPageCmd(cursor *quiz.Cursor) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := cursor.FetchPage(ctx)
		return QuizPageMsg{State: cursor.State(), Err: err}
	}
}

// LoadYearsCmd builds the year picker from the distinct years on record
func LoadYearsCmd(cursor *quiz.Cursor) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		years, err := cursor.FetchDistinctValues(ctx, quiz.OrderField)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading years"}
		}
		return YearsLoadedMsg{Options: quiz.YearOptions(years)}
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
