package playback

import (
	"slices"
	"sync"

	"github.com/gksapp/gks/internal/domain"
)

const (
	// SongsCollection is the live track collection
	SongsCollection = "songs"
	// SongsOrderField orders track snapshots
	SongsOrderField = "title"
)

// Update is one delivery of a catalog subscription: either a full
// replacement snapshot or a listener error.
type Update struct {
	Tracks []domain.Track
	Err    error
}

// CatalogSubscription mirrors the live songs collection. Each snapshot
// replaces the previous one wholesale.
type CatalogSubscription struct {
	filter func(domain.Track) bool

	mu      sync.RWMutex
	tracks  []domain.Track
	err     error
	closed  bool
	updates chan Update

	unsubscribe domain.Unsubscribe
	once        sync.Once
}

func newCatalogSubscription(filter func(domain.Track) bool) *CatalogSubscription {
	return &CatalogSubscription{
		filter:  filter,
		updates: make(chan Update, 1),
	}
}

// Snapshot returns the tracks of the latest snapshot
func (s *CatalogSubscription) Snapshot() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tracks)
}

// Err returns the last listener error, if any
func (s *CatalogSubscription) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Updates delivers snapshots and errors. Only the newest pending update is
// kept. The channel is closed by Unsubscribe.
func (s *CatalogSubscription) Updates() <-chan Update {
	return s.updates
}

// Unsubscribe releases the remote listener exactly once
func (s *CatalogSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
	})
}

func (s *CatalogSubscription) onSnapshot(docs []domain.Document) {
	tracks := make([]domain.Track, 0, len(docs))
	for _, d := range docs {
		t := trackFromDocument(d)
		if s.filter == nil || s.filter(t) {
			tracks = append(tracks, t)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.tracks = tracks
	s.err = nil
	s.push(Update{Tracks: slices.Clone(tracks)})
}

func (s *CatalogSubscription) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.push(Update{Tracks: slices.Clone(s.tracks), Err: err})
}

// push must be called with s.mu held
func (s *CatalogSubscription) push(u Update) {
	select {
	case s.updates <- u:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- u:
	default:
	}
}

func trackFromDocument(d domain.Document) domain.Track {
	url := d.String("downloadUrl")
	if url == "" {
		url = d.String("mediaUrl")
	}
	return domain.Track{
		ID:       d.ID,
		Title:    d.String("title"),
		Artist:   d.String("artist"),
		MediaURL: url,
	}
}
