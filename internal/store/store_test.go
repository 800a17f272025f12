package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gksapp/gks/internal/domain"
)

func openTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gks.db"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func question(id string, year int) domain.Document {
	return domain.Document{ID: id, Fields: map[string]any{"year": year, "content": "q " + id}}
}

func ids(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPutAssignsID(t *testing.T) {
	s := openTestStore(t)
	doc, err := s.Put("songs", domain.Document{Fields: map[string]any{"title": "Amazing Grace"}})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected generated ID")
	}
	got, ok, err := s.Get("songs", doc.ID)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got.String("title") != "Amazing Grace" {
		t.Errorf("title mismatch: got %q", got.String("title"))
	}
}

func TestQueryOrderFilterAndCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.PutMany("QuizQA", []domain.Document{
		question("e", 2021),
		question("a", 2019),
		question("c", 2020),
		question("b", 2020),
		question("d", 2021),
		{ID: "x", Fields: map[string]any{"content": "no year"}},
	})
	if err != nil {
		t.Fatalf("PutMany failed: %v", err)
	}

	page, err := s.Query(ctx, "QuizQA", domain.QueryOptions{OrderField: "year"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if want := []string{"a", "b", "c", "d", "e"}; !equalIDs(ids(page.Docs), want) {
		t.Errorf("order mismatch: got %v, want %v", ids(page.Docs), want)
	}
	if page.LastKey != "e" {
		t.Errorf("LastKey mismatch: got %q, want %q", page.LastKey, "e")
	}

	page, err = s.Query(ctx, "QuizQA", domain.QueryOptions{OrderField: "year", Limit: 2, StartAfter: "b"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if want := []string{"c", "d"}; !equalIDs(ids(page.Docs), want) {
		t.Errorf("cursor page mismatch: got %v, want %v", ids(page.Docs), want)
	}

	page, err = s.Query(ctx, "QuizQA", domain.QueryOptions{
		OrderField: "year",
		Equal:      &domain.FieldFilter{Field: "year", Value: 2020},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if want := []string{"b", "c"}; !equalIDs(ids(page.Docs), want) {
		t.Errorf("filter mismatch: got %v, want %v", ids(page.Docs), want)
	}
}

func TestQueryUnknownCursor(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Put("QuizQA", question("a", 2020)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, err := s.Query(context.Background(), "QuizQA", domain.QueryOptions{OrderField: "year", StartAfter: "gone"})
	if !errors.Is(err, domain.ErrCursorNotFound) {
		t.Fatalf("expected ErrCursorNotFound, got %v", err)
	}
}

func TestQueryMissingCollectionIsEmpty(t *testing.T) {
	s := openTestStore(t)
	page, err := s.Query(context.Background(), "nothing", domain.QueryOptions{OrderField: "title"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page.Docs) != 0 || page.LastKey != "" {
		t.Errorf("expected empty page, got %+v", page)
	}
}

type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots [][]domain.Document
	signal    chan struct{}
}

func newRecorder() *snapshotRecorder {
	return &snapshotRecorder{signal: make(chan struct{}, 16)}
}

func (r *snapshotRecorder) record(docs []domain.Document) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, docs)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *snapshotRecorder) last() []domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *snapshotRecorder) waitFor(t *testing.T, pred func([]domain.Document) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if r.count() > 0 && pred(r.last()) {
			return
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot, last: %v", ids(r.last()))
		}
	}
}

func TestListenDeliversInitialAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.Put("songs", domain.Document{ID: "2", Fields: map[string]any{"title": "Be Thou My Vision"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec := newRecorder()
	unsubscribe, err := s.Listen(ctx, "songs", "title", rec.record, nil)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if rec.count() != 1 || len(rec.last()) != 1 {
		t.Fatalf("expected initial snapshot before Listen returns, got %d snapshots", rec.count())
	}

	if _, err := s.Put("songs", domain.Document{ID: "1", Fields: map[string]any{"title": "Amazing Grace"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	rec.waitFor(t, func(docs []domain.Document) bool {
		return equalIDs(ids(docs), []string{"1", "2"})
	})

	unsubscribe()
	unsubscribe()

	before := rec.count()
	if _, err := s.Put("songs", domain.Document{ID: "3", Fields: map[string]any{"title": "Crown Him"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if rec.count() != before {
		t.Errorf("snapshot delivered after unsubscribe: %d -> %d", before, rec.count())
	}
}

func TestListenStopsOnContextCancel(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	if _, err := s.Listen(ctx, "songs", "title", rec.record, nil); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.listeners["songs"])
		s.mu.Unlock()
		if n == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("listener not removed after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeleteNotifiesListeners(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Put("songs", domain.Document{ID: "1", Fields: map[string]any{"title": "A"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	rec := newRecorder()
	unsubscribe, err := s.Listen(context.Background(), "songs", "title", rec.record, nil)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer unsubscribe()

	if err := s.Delete("songs", "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	rec.waitFor(t, func(docs []domain.Document) bool { return len(docs) == 0 })
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{2020, float64(2020), 0},
		{nil, false, -1},
		{true, 1.0, -1},
		{5.0, "5", -1},
		{"a", "b", -1},
		{"b", "a", 1},
	}
	for _, tt := range tests {
		if got := compareValues(tt.a, tt.b); got != tt.want {
			t.Errorf("compareValues(%v, %v): got %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
