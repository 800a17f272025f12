package remote

import "github.com/gksapp/gks/internal/domain"

const (
	listenPath = "/v1/listen"
	queryPath  = "/v1/query"
	healthPath = "/healthz"
)

const (
	frameSnapshot = "snapshot"
	frameError    = "error"
)

// frame is one server-to-client websocket message
type frame struct {
	Type  string            `json:"type"`
	Docs  []domain.Document `json:"docs,omitempty"`
	Error string            `json:"error,omitempty"`
}

type equalFilter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type queryRequest struct {
	Collection string       `json:"collection"`
	OrderField string       `json:"order_field"`
	Equal      *equalFilter `json:"equal,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	StartAfter string       `json:"start_after,omitempty"`
}

type queryResponse struct {
	Docs    []domain.Document `json:"docs"`
	LastKey string            `json:"last_key,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const (
	codeCursorNotFound     = "cursor_not_found"
	codeCollectionNotFound = "collection_not_found"
)

func (q queryRequest) options() domain.QueryOptions {
	opts := domain.QueryOptions{
		OrderField: q.OrderField,
		Limit:      q.Limit,
		StartAfter: q.StartAfter,
	}
	if q.Equal != nil {
		opts.Equal = &domain.FieldFilter{Field: q.Equal.Field, Value: q.Equal.Value}
	}
	return opts
}

func newQueryRequest(collection string, opts domain.QueryOptions) queryRequest {
	req := queryRequest{
		Collection: collection,
		OrderField: opts.OrderField,
		Limit:      opts.Limit,
		StartAfter: opts.StartAfter,
	}
	if opts.Equal != nil {
		req.Equal = &equalFilter{Field: opts.Equal.Field, Value: opts.Equal.Value}
	}
	return req
}
