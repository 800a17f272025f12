package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/gksapp/gks/internal/domain"
)

type fakeHandle struct {
	url string

	mu       sync.Mutex
	playing  bool
	released bool
	seeks    []int64
	seekErr  error
	onStatus []func(domain.TransportStatus)

	releaseStarted chan struct{} // signalled when Release is entered
	releaseGate    chan struct{} // when set, Release blocks until it is closed
}

func (h *fakeHandle) Play(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return domain.ErrReleased
	}
	h.playing = true
	return nil
}

func (h *fakeHandle) Pause(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return domain.ErrReleased
	}
	h.playing = false
	return nil
}

func (h *fakeHandle) Seek(_ context.Context, ms int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return domain.ErrReleased
	}
	if h.seekErr != nil {
		return h.seekErr
	}
	h.seeks = append(h.seeks, ms)
	return nil
}

func (h *fakeHandle) Status(context.Context) (domain.TransportStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return domain.TransportStatus{}, domain.ErrReleased
	}
	return domain.TransportStatus{IsPlaying: h.playing}, nil
}

func (h *fakeHandle) OnStatusUpdate(fn func(domain.TransportStatus)) {
	h.mu.Lock()
	h.onStatus = append(h.onStatus, fn)
	h.mu.Unlock()
}

func (h *fakeHandle) Release() error {
	h.mu.Lock()
	started, gate := h.releaseStarted, h.releaseGate
	h.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	h.released = true
	h.playing = false
	h.mu.Unlock()
	return nil
}

// emit delivers a status report the way a transport would
func (h *fakeHandle) emit(st domain.TransportStatus) {
	h.mu.Lock()
	fns := append([]func(domain.TransportStatus){}, h.onStatus...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (h *fakeHandle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

type fakeFactory struct {
	mu      sync.Mutex
	handles []*fakeHandle
	err     error
	gate    chan struct{} // when set, Acquire blocks until it is closed
	started chan struct{} // signalled when Acquire is entered

	liveAtAcquire []int // live handle count seen by each Acquire
}

func (f *fakeFactory) Acquire(ctx context.Context, url string, opts domain.AcquireOptions) (domain.TransportHandle, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	live := f.live()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveAtAcquire = append(f.liveAtAcquire, live)
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{url: url, playing: opts.AutoStart}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeFactory) all() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle{}, f.handles...)
}

func (f *fakeFactory) live() int {
	n := 0
	for _, h := range f.all() {
		if !h.isReleased() {
			n++
		}
	}
	return n
}

type fakeListener struct {
	mu           sync.Mutex
	onSnapshot   domain.SnapshotFunc
	onError      domain.ErrorFunc
	initial      []domain.Document
	err          error
	unsubscribes int
}

func (l *fakeListener) Listen(_ context.Context, collection, orderField string, onSnapshot domain.SnapshotFunc, onError domain.ErrorFunc) (domain.Unsubscribe, error) {
	if l.err != nil {
		return nil, l.err
	}
	if collection != SongsCollection || orderField != SongsOrderField {
		return nil, errors.New("unexpected collection or order field")
	}
	l.mu.Lock()
	l.onSnapshot = onSnapshot
	l.onError = onError
	l.mu.Unlock()
	onSnapshot(l.initial)
	return func() {
		l.mu.Lock()
		l.unsubscribes++
		l.mu.Unlock()
	}, nil
}

func (l *fakeListener) push(docs []domain.Document) {
	l.mu.Lock()
	fn := l.onSnapshot
	l.mu.Unlock()
	fn(docs)
}

func (l *fakeListener) fail(err error) {
	l.mu.Lock()
	fn := l.onError
	l.mu.Unlock()
	fn(err)
}

func (l *fakeListener) unsubscribeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribes
}

func song(id, title, url string) domain.Document {
	fields := map[string]any{"title": title}
	if url != "" {
		fields["downloadUrl"] = url
	}
	return domain.Document{ID: id, Fields: fields}
}
