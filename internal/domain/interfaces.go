package domain

import "context"

// SnapshotFunc receives the full, freshly ordered contents of a collection
type SnapshotFunc func(docs []Document)

// ErrorFunc receives listener failures
type ErrorFunc func(err error)

// Unsubscribe stops a listener. Calling it more than once is a no-op.
type Unsubscribe func()

// CollectionListener registers live listeners on remote collections.
// The initial snapshot is delivered before Listen returns.
type CollectionListener interface {
	Listen(ctx context.Context, collection, orderField string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
}

// FieldFilter is an equality predicate on one field
type FieldFilter struct {
	Field string
	Value any
}

// QueryOptions describes one ordered, filtered, paginated read
type QueryOptions struct {
	OrderField string
	Equal      *FieldFilter
	Limit      int    // 0 means no limit
	StartAfter string // document ID of the last item of the previous page
}

// Page is the result of one query
type Page struct {
	Docs    []Document
	LastKey string // ID of the last document, empty when the page is empty
}

// CollectionQuerier runs one-shot queries against remote collections
type CollectionQuerier interface {
	Query(ctx context.Context, collection string, opts QueryOptions) (Page, error)
}

// Collections is the full remote data source surface
type Collections interface {
	CollectionListener
	CollectionQuerier
}
