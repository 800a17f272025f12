package remote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes a document backend over HTTP (queries) and websocket
// (live listeners).
type Server struct {
	backend domain.Collections
	allowed map[string]bool
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	active sync.WaitGroup // running websocket listeners
}

// NewServer serves backend. When collections is non-empty only those
// names are reachable.
func NewServer(backend domain.Collections, logger *slog.Logger, collections ...string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{backend: backend, logger: logger, quit: make(chan struct{})}
	if len(collections) > 0 {
		s.allowed = make(map[string]bool, len(collections))
		for _, c := range collections {
			s.allowed[c] = true
		}
	}
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc(queryPath, s.handleQuery)
	mux.HandleFunc(listenPath, s.handleListen)
	return mux
}

// Close disconnects every websocket listener and waits for their handlers
// to return. http.Server.Shutdown does not track hijacked connections, so
// call this after it and before closing the backend.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()
	s.active.Wait()
}

func (s *Server) collectionAllowed(name string) bool {
	if name == "" {
		return false
	}
	return s.allowed == nil || s.allowed[name]
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid query: " + err.Error()})
		return
	}
	if !s.collectionAllowed(req.Collection) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrCollectionNotFound.Error(), Code: codeCollectionNotFound})
		return
	}

	page, err := s.backend.Query(r.Context(), req.Collection, req.options())
	if err != nil {
		if errors.Is(err, domain.ErrCursorNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: codeCursorNotFound})
			return
		}
		s.logger.Error("query failed", "error", err, "collection", req.Collection)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	docs := page.Docs
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, queryResponse{Docs: docs, LastKey: page.LastKey})
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	orderField := r.URL.Query().Get("order")
	if !s.collectionAllowed(collection) {
		http.Error(w, domain.ErrCollectionNotFound.Error(), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.active.Add(1)
	s.mu.Unlock()
	defer s.active.Done()

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	out := newFrameSlot()
	ctx := r.Context()
	unsubscribe, err := s.backend.Listen(ctx, collection, orderField,
		func(docs []domain.Document) {
			if docs == nil {
				docs = []domain.Document{}
			}
			out.put(frame{Type: frameSnapshot, Docs: docs})
		},
		func(err error) {
			out.put(frame{Type: frameError, Error: err.Error()})
		},
	)
	if err != nil {
		s.logger.Error("listen failed", "error", err, "collection", collection)
		conn.WriteJSON(frame{Type: frameError, Error: err.Error()})
		return
	}
	defer unsubscribe()
	s.logger.Info("listener connected", "collection", collection, "remote", r.RemoteAddr)

	// Drain incoming messages (ping/pong, close frames) without blocking.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			s.logger.Info("listener closed by shutdown", "collection", collection, "remote", r.RemoteAddr)
			return
		case <-gone:
			s.logger.Info("listener disconnected", "collection", collection, "remote", r.RemoteAddr)
			return
		case <-out.ready:
			fr, ok := out.take()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(fr); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// frameSlot queues outgoing frames for one connection. Only the newest
// snapshot is kept since each one is complete. Error frames are never dropped.
type frameSlot struct {
	mu      sync.Mutex
	pending []frame
	ready   chan struct{}
}

func newFrameSlot() *frameSlot {
	return &frameSlot{ready: make(chan struct{}, 1)}
}

func (f *frameSlot) put(fr frame) {
	f.mu.Lock()
	if fr.Type == frameSnapshot {
		// a newer snapshot supersedes any queued snapshot
		kept := f.pending[:0]
		for _, p := range f.pending {
			if p.Type != frameSnapshot {
				kept = append(kept, p)
			}
		}
		f.pending = kept
	}
	f.pending = append(f.pending, fr)
	f.mu.Unlock()
	select {
	case f.ready <- struct{}{}:
	default:
	}
}

func (f *frameSlot) take() (frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return frame{}, false
	}
	fr := f.pending[0]
	f.pending = f.pending[1:]
	if len(f.pending) > 0 {
		select {
		case f.ready <- struct{}{}:
		default:
		}
	}
	return fr, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
