package store

import (
	"context"
	"errors"
	"sync"

	"github.com/gksapp/gks/internal/domain"
)

var errStoreClosed = errors.New("store closed")

// listener delivers snapshots for one subscription from its own goroutine.
// Writes only mark it dirty; the goroutine re-reads the collection, so
// bursts of writes coalesce and snapshots arrive in commit order.
type listener struct {
	collection string
	orderField string
	onSnapshot domain.SnapshotFunc
	onError    domain.ErrorFunc

	dirty    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (l *listener) mark() {
	select {
	case l.dirty <- struct{}{}:
	default:
	}
}

func (l *listener) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Listen implements domain.CollectionListener. The initial snapshot is
// delivered on the caller's goroutine before Listen returns.
func (s *DocumentStore) Listen(
	ctx context.Context,
	collection, orderField string,
	onSnapshot domain.SnapshotFunc,
	onError domain.ErrorFunc,
) (domain.Unsubscribe, error) {
	if onError == nil {
		onError = func(error) {}
	}
	l := &listener{
		collection: collection,
		orderField: orderField,
		onSnapshot: onSnapshot,
		onError:    onError,
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errStoreClosed
	}
	s.nextID++
	id := s.nextID
	if s.listeners[collection] == nil {
		s.listeners[collection] = make(map[uint64]*listener)
	}
	s.listeners[collection][id] = l
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.listeners[collection], id)
		s.mu.Unlock()
		l.stop()
	}

	// Registered before the initial read so no write is missed
	page, err := s.Query(ctx, collection, domain.QueryOptions{OrderField: orderField})
	if err != nil {
		unsubscribe()
		return nil, err
	}
	onSnapshot(page.Docs)

	go s.run(ctx, l, unsubscribe)

	s.logger.Debug("listener registered", "collection", collection, "orderField", orderField)
	var once sync.Once
	return func() { once.Do(unsubscribe) }, nil
}

func (s *DocumentStore) run(ctx context.Context, l *listener, unsubscribe func()) {
	for {
		select {
		case <-l.done:
			return
		case <-ctx.Done():
			unsubscribe()
			return
		case <-l.dirty:
		}

		page, err := s.Query(ctx, l.collection, domain.QueryOptions{OrderField: l.orderField})

		select {
		case <-l.done:
			return
		default:
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("listener read failed", "error", err, "collection", l.collection)
			l.onError(err)
			continue
		}
		l.onSnapshot(page.Docs)
	}
}

func (s *DocumentStore) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners[collection] {
		l.mark()
	}
}
