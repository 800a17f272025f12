package playback

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/search"
)

var errNoTransport = errors.New("no audio transport configured")

// Controller owns the playback session: at most one transport handle,
// the active track, and the seek/busy flags. State is guarded by mu,
// which is never held across listener or transport calls.
type Controller struct {
	listener domain.CollectionListener
	factory  domain.TransportFactory
	logger   *slog.Logger

	// transportMu serializes every change of handle ownership so that
	// release happens-before the next acquire.
	transportMu sync.Mutex

	mu       sync.Mutex
	handle   domain.TransportHandle
	gen      uint64 // bumped per acquired handle; stale status updates are dropped
	track    domain.Track
	position int64
	duration int64
	paused   bool
	seeking  bool
	loading  map[string]bool
	closed   bool
	// ending is closed once a handle detached by a terminal status has
	// been released. That release runs outside transportMu.
	ending chan struct{}

	watchMu  sync.Mutex
	watchers map[chan Session]struct{}
}

// NewController creates a playback controller. factory may be nil for
// read-only use (listing tracks); play requests then fail.
func NewController(listener domain.CollectionListener, factory domain.TransportFactory, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		listener: listener,
		factory:  factory,
		logger:   logger,
		loading:  make(map[string]bool),
		watchers: make(map[chan Session]struct{}),
	}
}

// SubscribeCatalog registers a live listener on the songs collection ordered
// by title. filter, when non-nil, drops tracks from every snapshot.
func (c *Controller) SubscribeCatalog(ctx context.Context, filter func(domain.Track) bool) (*CatalogSubscription, error) {
	sub := newCatalogSubscription(filter)
	unsubscribe, err := c.listener.Listen(ctx, SongsCollection, SongsOrderField, sub.onSnapshot,
		func(err error) {
			c.logger.Error("songs listener failed", "error", err)
			sub.onError(err)
		})
	if err != nil {
		c.logger.Error("failed to subscribe to songs", "error", err)
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.TransientError("subscribe songs", err)
		}
		return nil, err
	}
	sub.unsubscribe = unsubscribe
	c.logger.Debug("subscribed to songs", "count", len(sub.Snapshot()))
	return sub, nil
}

// Filter keeps tracks whose title contains query, ignoring case
func Filter(tracks []domain.Track, query string) []domain.Track {
	return search.Tracks(tracks, query)
}

// RequestPlayPause toggles the active track, or switches the transport to
// track. A repeated request for a track that is still loading is ignored.
func (c *Controller) RequestPlayPause(ctx context.Context, track domain.Track) error {
	if strings.TrimSpace(track.MediaURL) == "" {
		c.logger.Warn("track has no media url", "trackID", track.ID, "title", track.Title)
		return domain.InvalidInput("play "+track.DisplayTitle(), domain.ErrMissingMediaURL)
	}

	c.mu.Lock()
	if c.loading[track.ID] {
		c.mu.Unlock()
		c.logger.Debug("ignoring play request while loading", "trackID", track.ID)
		return nil
	}
	c.loading[track.ID] = true
	c.mu.Unlock()
	c.publish()

	defer func() {
		c.mu.Lock()
		delete(c.loading, track.ID)
		c.mu.Unlock()
		c.publish()
	}()

	c.transportMu.Lock()
	defer c.transportMu.Unlock()

	c.mu.Lock()
	if c.handle != nil && c.track.ID == track.ID {
		h := c.handle
		c.mu.Unlock()
		return c.toggle(ctx, h, track)
	}
	c.mu.Unlock()

	return c.switchTo(ctx, track)
}

func (c *Controller) toggle(ctx context.Context, h domain.TransportHandle, track domain.Track) error {
	st, err := h.Status(ctx)
	if err != nil {
		c.logger.Error("failed to read transport status", "error", err, "trackID", track.ID)
		return err
	}

	paused := st.IsPlaying
	if paused {
		err = h.Pause(ctx)
	} else {
		err = h.Play(ctx)
	}
	if err != nil {
		c.logger.Error("failed to toggle playback", "error", err, "trackID", track.ID)
		return err
	}

	c.mu.Lock()
	if c.handle == h {
		c.paused = paused
	}
	c.mu.Unlock()
	c.logger.Debug("toggled playback", "trackID", track.ID, "paused", paused)
	return nil
}

// switchTo must be called with transportMu held
func (c *Controller) switchTo(ctx context.Context, track domain.Track) error {
	c.releaseActive("switching track")
	if err := c.awaitEnding(ctx); err != nil {
		return domain.AcquisitionError("play "+track.DisplayTitle(), err)
	}

	if c.factory == nil {
		return domain.AcquisitionError("play "+track.DisplayTitle(), errNoTransport)
	}

	h, err := c.factory.Acquire(ctx, track.MediaURL, domain.AcquireOptions{AutoStart: true})
	if err != nil {
		c.logger.Error("failed to acquire transport", "error", err, "trackID", track.ID)
		return domain.AcquisitionError("play "+track.DisplayTitle(), err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		h.Release()
		return domain.AcquisitionError("play "+track.DisplayTitle(), domain.ErrReleased)
	}
	c.gen++
	gen := c.gen
	c.handle = h
	c.track = track
	c.position, c.duration = 0, 0
	c.paused, c.seeking = false, false
	c.mu.Unlock()

	h.OnStatusUpdate(func(st domain.TransportStatus) { c.applyStatus(gen, st) })
	c.logger.Info("playback started", "title", track.Title, "trackID", track.ID)
	c.publish()
	return nil
}

// awaitEnding blocks until a handle ended by its transport is released
func (c *Controller) awaitEnding(ctx context.Context) error {
	c.mu.Lock()
	ending := c.ending
	c.mu.Unlock()
	if ending == nil {
		return nil
	}
	select {
	case <-ending:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	if c.ending == ending {
		c.ending = nil
	}
	c.mu.Unlock()
	return nil
}

// releaseActive detaches and releases the current handle, if any
func (c *Controller) releaseActive(reason string) {
	c.mu.Lock()
	h := c.handle
	id := c.track.ID
	c.detachLocked()
	c.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Release(); err != nil {
		c.logger.Warn("failed to release transport", "error", err, "trackID", id)
	}
	c.logger.Debug("released transport", "trackID", id, "reason", reason)
	c.publish()
}

// detachLocked resets the session to idle. Caller holds mu.
func (c *Controller) detachLocked() {
	c.handle = nil
	c.gen++
	c.track = domain.Track{}
	c.position = 0
	c.paused = false
	c.seeking = false
}

func (c *Controller) applyStatus(gen uint64, st domain.TransportStatus) {
	c.mu.Lock()
	if gen != c.gen || c.handle == nil {
		c.mu.Unlock()
		return
	}
	if st.Err != nil && !st.Terminal() {
		id := c.track.ID
		c.mu.Unlock()
		c.logger.Warn("transport status error", "error", st.Err, "trackID", id)
		return
	}
	if !c.seeking {
		c.position = st.PositionMs
		c.duration = st.DurationMs
	}
	if !st.Terminal() {
		c.mu.Unlock()
		c.publish()
		return
	}

	h := c.handle
	id := c.track.ID
	c.detachLocked()
	ending := make(chan struct{})
	c.ending = ending
	c.mu.Unlock()

	err := h.Release()
	close(ending)
	if err != nil {
		c.logger.Warn("failed to release ended transport", "error", err, "trackID", id)
	}
	if st.Fatal {
		c.logger.Error("playback failed", "error", st.Err, "trackID", id)
	} else {
		c.logger.Info("playback finished", "trackID", id)
	}
	c.publish()
}

// BeginSeek marks the session as seeking so transport position updates
// stop overwriting the displayed position. It reports false (and does
// nothing) when there is no active track.
func (c *Controller) BeginSeek() bool {
	c.mu.Lock()
	if c.handle == nil || c.track.ID == "" {
		c.mu.Unlock()
		return false
	}
	c.seeking = true
	c.mu.Unlock()
	c.publish()
	return true
}

// DragSeek moves the displayed position during a seek gesture
func (c *Controller) DragSeek(positionMs int64) {
	c.mu.Lock()
	if !c.seeking {
		c.mu.Unlock()
		return
	}
	c.position = c.clampLocked(positionMs)
	c.mu.Unlock()
	c.publish()
}

// CompleteSeek seeks the active handle and clears the seeking flag,
// whatever the outcome.
func (c *Controller) CompleteSeek(ctx context.Context, positionMs int64) error {
	c.mu.Lock()
	h := c.handle
	if h == nil || c.track.ID == "" {
		c.seeking = false
		c.mu.Unlock()
		return nil
	}
	target := c.clampLocked(positionMs)
	id := c.track.ID
	c.mu.Unlock()

	err := h.Seek(ctx, target)

	c.mu.Lock()
	if c.handle == h {
		if err == nil {
			c.position = target
		}
		c.seeking = false
	}
	c.mu.Unlock()
	c.publish()

	if err != nil {
		c.logger.Error("failed to seek", "error", err, "trackID", id, "positionMs", target)
		return err
	}
	return nil
}

// RequestSeek seeks the active track to positionMs. No-op when idle.
func (c *Controller) RequestSeek(ctx context.Context, positionMs int64) error {
	if !c.BeginSeek() {
		return nil
	}
	return c.CompleteSeek(ctx, positionMs)
}

// SeekBy seeks relative to the displayed position
func (c *Controller) SeekBy(ctx context.Context, deltaMs int64) error {
	c.mu.Lock()
	pos := c.position
	c.mu.Unlock()
	return c.RequestSeek(ctx, pos+deltaMs)
}

func (c *Controller) clampLocked(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	if c.duration > 0 && ms > c.duration {
		return c.duration
	}
	return ms
}

// Stop releases the active handle and returns to idle
func (c *Controller) Stop() {
	c.transportMu.Lock()
	defer c.transportMu.Unlock()
	c.releaseActive("stopped")
}

// Session returns a copy of the current session
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

func (c *Controller) sessionLocked() Session {
	s := Session{
		Track:      c.track,
		PositionMs: c.position,
		DurationMs: c.duration,
		IsPaused:   c.paused,
		IsSeeking:  c.seeking,
	}
	for id := range c.loading {
		s.Loading = append(s.Loading, id)
	}
	slices.Sort(s.Loading)

	switch {
	case c.seeking:
		s.State = StateSeeking
	case c.handle != nil && c.paused:
		s.State = StatePaused
	case c.handle != nil:
		s.State = StatePlaying
	case len(c.loading) > 0:
		s.State = StateLoading
	default:
		s.State = StateIdle
	}
	return s
}

// Watch streams session snapshots. Slow receivers only see the newest one.
func (c *Controller) Watch() (<-chan Session, func()) {
	ch := make(chan Session, 1)
	c.watchMu.Lock()
	c.watchers[ch] = struct{}{}
	c.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.watchMu.Lock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				close(ch)
			}
			c.watchMu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Controller) publish() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if len(c.watchers) == 0 {
		return
	}
	s := c.Session()
	for ch := range c.watchers {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Close releases the transport and closes every watcher
func (c *Controller) Close() {
	c.transportMu.Lock()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.releaseActive("closed")
	c.transportMu.Unlock()

	c.watchMu.Lock()
	for ch := range c.watchers {
		close(ch)
		delete(c.watchers, ch)
	}
	c.watchMu.Unlock()
}
