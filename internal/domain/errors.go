package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrMissingMediaURL indicates a track has no audio URL to play
	ErrMissingMediaURL = errors.New("no audio URL available for this track")

	// ErrUnknownKind indicates a catalog kind outside the bundled datasets
	ErrUnknownKind = errors.New("unknown catalog kind")

	// ErrInvalidFilter indicates a filter value that cannot be parsed
	ErrInvalidFilter = errors.New("invalid filter value")

	// ErrCursorNotFound indicates a start-after key that no longer exists
	ErrCursorNotFound = errors.New("cursor document not found")

	// ErrCollectionNotFound indicates a collection name the remote does not serve
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrReleased indicates an operation on a released transport handle
	ErrReleased = errors.New("transport handle released")
)

// ErrorKind classifies failures by how the caller should react
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindTransientRemote covers listener and query failures. Callers may retry.
	KindTransientRemote
	// KindResourceAcquisition covers transport acquire failures
	KindResourceAcquisition
	// KindInput covers malformed caller input
	KindInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientRemote:
		return "transient remote error"
	case KindResourceAcquisition:
		return "resource acquisition error"
	case KindInput:
		return "input error"
	default:
		return "error"
	}
}

// Error attaches a kind and the failing operation to an underlying error
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// TransientError wraps a remote failure
func TransientError(op string, err error) error {
	return &Error{Kind: KindTransientRemote, Op: op, Err: err}
}

// AcquisitionError wraps a transport acquisition failure
func AcquisitionError(op string, err error) error {
	return &Error{Kind: KindResourceAcquisition, Op: op, Err: err}
}

// InvalidInput wraps a caller input failure
func InvalidInput(op string, err error) error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
