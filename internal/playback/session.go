package playback

import (
	"fmt"

	"github.com/gksapp/gks/internal/domain"
)

// State is the derived playback state of the session
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is a point-in-time copy of the playback session
type Session struct {
	Track      domain.Track // zero when idle
	PositionMs int64
	DurationMs int64
	IsPaused   bool
	IsSeeking  bool
	Loading    []string // IDs of tracks with an acquisition in progress
	State      State
}

// ActiveTrackID is empty when no track owns the transport
func (s Session) ActiveTrackID() string { return s.Track.ID }

// IsActive reports whether id is the active track
func (s Session) IsActive(id string) bool {
	return id != "" && s.Track.ID == id
}

// IsBusy reports whether id has a play/pause request in progress
func (s Session) IsBusy(id string) bool {
	for _, l := range s.Loading {
		if l == id {
			return true
		}
	}
	return false
}

// Progress returns position/duration in [0,1], 0 when duration is unknown
func (s Session) Progress() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	p := float64(s.PositionMs) / float64(s.DurationMs)
	return min(max(p, 0), 1)
}

// FormatTime renders milliseconds as m:ss. Negative values render as 0:00.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
