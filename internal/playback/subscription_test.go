package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/gksapp/gks/internal/domain"
)

func TestSubscribeCatalogSnapshots(t *testing.T) {
	listener := &fakeListener{initial: []domain.Document{
		song("1", "Amazing Grace", "https://cdn.example.com/1.mp3"),
		song("2", "Be Thou My Vision", ""),
	}}
	c := NewController(listener, nil, nil)

	sub, err := c.SubscribeCatalog(context.Background(), nil)
	if err != nil {
		t.Fatalf("SubscribeCatalog failed: %v", err)
	}
	defer sub.Unsubscribe()

	tracks := sub.Snapshot()
	if len(tracks) != 2 {
		t.Fatalf("initial snapshot: got %d tracks, want 2", len(tracks))
	}
	if tracks[0].MediaURL != "https://cdn.example.com/1.mp3" || tracks[1].MediaURL != "" {
		t.Errorf("media URLs not mapped from downloadUrl: %+v", tracks)
	}

	listener.push([]domain.Document{song("3", "Crown Him", "u3")})
	if got := sub.Snapshot(); len(got) != 1 || got[0].ID != "3" {
		t.Errorf("snapshot should be replaced wholesale, got %+v", got)
	}

	u := <-sub.Updates()
	if len(u.Tracks) != 1 || u.Tracks[0].ID != "3" {
		t.Errorf("Updates should carry only the newest snapshot, got %+v", u)
	}
}

func TestSubscribeCatalogFilter(t *testing.T) {
	listener := &fakeListener{initial: []domain.Document{
		song("1", "Amazing Grace", "u1"),
		song("2", "Be Thou My Vision", ""),
	}}
	c := NewController(listener, nil, nil)

	playable := func(t domain.Track) bool { return t.MediaURL != "" }
	sub, err := c.SubscribeCatalog(context.Background(), playable)
	if err != nil {
		t.Fatalf("SubscribeCatalog failed: %v", err)
	}
	defer sub.Unsubscribe()

	if got := sub.Snapshot(); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("filter not applied: %+v", got)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	listener := &fakeListener{}
	c := NewController(listener, nil, nil)
	sub, err := c.SubscribeCatalog(context.Background(), nil)
	if err != nil {
		t.Fatalf("SubscribeCatalog failed: %v", err)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()

	if n := listener.unsubscribeCount(); n != 1 {
		t.Errorf("remote unsubscribe calls: got %d, want 1", n)
	}

	// late deliveries after teardown are dropped
	listener.push([]domain.Document{song("9", "Late", "u")})
	if got := sub.Snapshot(); len(got) != 0 {
		t.Errorf("snapshot applied after unsubscribe: %+v", got)
	}
	for range sub.Updates() {
	}
}

func TestSubscribeCatalogListenerError(t *testing.T) {
	listener := &fakeListener{}
	c := NewController(listener, nil, nil)
	sub, err := c.SubscribeCatalog(context.Background(), nil)
	if err != nil {
		t.Fatalf("SubscribeCatalog failed: %v", err)
	}
	defer sub.Unsubscribe()
	<-sub.Updates()

	listener.fail(errors.New("permission denied"))
	if sub.Err() == nil {
		t.Fatal("listener error not recorded")
	}
	u := <-sub.Updates()
	if u.Err == nil {
		t.Error("listener error not delivered on Updates")
	}
}

func TestSubscribeCatalogFailure(t *testing.T) {
	c := NewController(&fakeListener{err: errors.New("offline")}, nil, nil)
	_, err := c.SubscribeCatalog(context.Background(), nil)
	if domain.KindOf(err) != domain.KindTransientRemote {
		t.Fatalf("expected transient remote error, got %v", err)
	}
}

func TestFilterByTitle(t *testing.T) {
	tracks := []domain.Track{{ID: "1", Title: "Amazing Grace"}, {ID: "2", Title: "Crown Him"}}
	if got := Filter(tracks, "CROWN"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("Filter mismatch: %+v", got)
	}
}
