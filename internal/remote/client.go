package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gorilla/websocket"
)

// Client implements domain.Collections against a Server
type Client struct {
	base       *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

// NewClient creates a client for the server at rawURL (http or https)
func NewClient(rawURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", rawURL)
	}
	return &Client{
		base:       u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.base
	u.Path = c.base.Path + path
	return &u
}

// Query implements domain.CollectionQuerier
func (c *Client) Query(ctx context.Context, collection string, opts domain.QueryOptions) (domain.Page, error) {
	body, err := json.Marshal(newQueryRequest(collection, opts))
	if err != nil {
		return domain.Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(queryPath).String(), bytes.NewReader(body))
	if err != nil {
		return domain.Page{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Page{}, domain.TransientError("query "+collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		json.NewDecoder(resp.Body).Decode(&e)
		switch e.Code {
		case codeCursorNotFound:
			return domain.Page{}, domain.TransientError("query "+collection, domain.ErrCursorNotFound)
		case codeCollectionNotFound:
			return domain.Page{}, domain.TransientError("query "+collection, domain.ErrCollectionNotFound)
		}
		return domain.Page{}, domain.TransientError("query "+collection,
			fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Page{}, domain.TransientError("query "+collection, fmt.Errorf("decode response: %w", err))
	}
	return domain.Page{Docs: out.Docs, LastKey: out.LastKey}, nil
}

// Listen implements domain.CollectionListener over a websocket. The first
// frame is read before Listen returns, so the initial snapshot (or error)
// has been delivered by then.
func (c *Client) Listen(
	ctx context.Context,
	collection, orderField string,
	onSnapshot domain.SnapshotFunc,
	onError domain.ErrorFunc,
) (domain.Unsubscribe, error) {
	if onError == nil {
		onError = func(error) {}
	}
	u := c.endpoint(listenPath)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("collection", collection)
	q.Set("order", orderField)
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			err = domain.ErrCollectionNotFound
		}
		return nil, domain.TransientError("listen "+collection, err)
	}

	var first frame
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		return nil, domain.TransientError("listen "+collection, err)
	}
	if first.Type == frameError {
		conn.Close()
		return nil, domain.TransientError("listen "+collection, errors.New(first.Error))
	}
	onSnapshot(first.Docs)

	sub := &wsSubscription{conn: conn, collection: collection, logger: c.logger, done: make(chan struct{})}
	go sub.read(onSnapshot, onError)
	go func() {
		select {
		case <-ctx.Done():
			sub.unsubscribe()
		case <-sub.done:
		}
	}()

	c.logger.Debug("remote listener connected", "collection", collection, "url", u.String())
	return sub.unsubscribe, nil
}

type wsSubscription struct {
	conn       *websocket.Conn
	collection string
	logger     *slog.Logger

	closed atomic.Bool
	once   sync.Once
	done   chan struct{} // closed when the reader exits
}

func (s *wsSubscription) read(onSnapshot domain.SnapshotFunc, onError domain.ErrorFunc) {
	defer close(s.done)
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if !s.closed.Load() {
				s.logger.Warn("remote listener dropped", "error", err, "collection", s.collection)
				onError(domain.TransientError("listen "+s.collection, err))
			}
			return
		}
		if s.closed.Load() {
			return
		}
		switch f.Type {
		case frameSnapshot:
			onSnapshot(f.Docs)
		case frameError:
			onError(domain.TransientError("listen "+s.collection, errors.New(f.Error)))
		}
	}
}

func (s *wsSubscription) unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		deadline := time.Now().Add(time.Second)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.conn.Close()
	})
}
