package domain

import "context"

// TransportStatus is one status report from a transport handle.
// Fatal marks a report after which the handle can no longer play: the
// stream failed or the player went away. Err without Fatal is advisory.
type TransportStatus struct {
	PositionMs int64
	DurationMs int64
	IsPlaying  bool
	DidFinish  bool
	Fatal      bool
	Err        error
}

// Terminal reports whether the handle is done after this status
func (s TransportStatus) Terminal() bool {
	return s.DidFinish || s.Fatal
}

// AcquireOptions controls how a transport handle starts
type AcquireOptions struct {
	AutoStart bool
}

// TransportHandle is an exclusive audio stream resource.
// Release is idempotent; every other method fails with ErrReleased afterwards.
type TransportHandle interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	Status(ctx context.Context) (TransportStatus, error)
	OnStatusUpdate(fn func(TransportStatus))
	Release() error
}

// TransportFactory acquires transport handles for media URLs
type TransportFactory interface {
	Acquire(ctx context.Context, mediaURL string, opts AcquireOptions) (TransportHandle, error)
}
