package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
)

// fakeMPV answers IPC commands on the far end of a pipe
type fakeMPV struct {
	conn net.Conn
	mu   sync.Mutex
	cmds [][]any
	w    *json.Encoder
}

func startFakeMPV(t *testing.T) (*mpvHandle, *fakeMPV) {
	t.Helper()
	client, server := net.Pipe()
	f := &fakeMPV{conn: server, w: json.NewEncoder(server)}
	go f.serve()
	h := newMPVHandle(client, NullLogger())
	t.Cleanup(func() {
		h.Release()
		server.Close()
	})
	return h, f
}

func (f *fakeMPV) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		var req ipcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		f.mu.Lock()
		f.cmds = append(f.cmds, req.Command)
		f.mu.Unlock()
		if len(req.Command) > 0 && req.Command[0] == "quit" {
			return
		}
		f.send(map[string]any{"request_id": req.RequestID, "error": "success"})
	}
}

func (f *fakeMPV) send(msg map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.w.Encode(msg)
}

func (f *fakeMPV) commands() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cmds)
}

func TestMPVHandleCommands(t *testing.T) {
	h, f := startFakeMPV(t)
	ctx := context.Background()

	if err := h.Pause(ctx); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := h.Seek(ctx, 90500); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	cmds := f.commands()
	if len(cmds) != 2 {
		t.Fatalf("commands: got %d, want 2", len(cmds))
	}
	if got := fmt.Sprint(cmds[0]); got != "[set_property pause true]" {
		t.Errorf("pause command: got %s", got)
	}
	if got := fmt.Sprint(cmds[1]); got != "[seek 90.5 absolute]" {
		t.Errorf("seek command: got %s", got)
	}
}

func TestMPVHandleStatusEvents(t *testing.T) {
	h, f := startFakeMPV(t)
	updates := make(chan domain.TransportStatus, 8)
	h.OnStatusUpdate(func(st domain.TransportStatus) { updates <- st })

	f.send(map[string]any{"event": "property-change", "id": 1, "name": "time-pos", "data": 12.5})
	f.send(map[string]any{"event": "property-change", "id": 2, "name": "duration", "data": 200.0})
	f.send(map[string]any{"event": "property-change", "id": 3, "name": "pause", "data": false})
	f.send(map[string]any{"event": "end-file", "reason": "eof"})

	var last domain.TransportStatus
	for i := 0; i < 4; i++ {
		select {
		case last = <-updates:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d updates", i)
		}
	}
	if last.PositionMs != 12500 || last.DurationMs != 200000 || !last.DidFinish {
		t.Errorf("final status: %+v", last)
	}

	st, err := h.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.IsPlaying {
		t.Error("finished handle should not report playing")
	}
}

func waitStatus(t *testing.T, updates <-chan domain.TransportStatus, done func(domain.TransportStatus) bool) domain.TransportStatus {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-updates:
			if done(st) {
				return st
			}
		case <-deadline:
			t.Fatal("timed out waiting for status")
		}
	}
}

func TestMPVHandleEndFileErrorIsFatal(t *testing.T) {
	h, f := startFakeMPV(t)
	updates := make(chan domain.TransportStatus, 8)
	h.OnStatusUpdate(func(st domain.TransportStatus) { updates <- st })

	f.send(map[string]any{"event": "end-file", "reason": "error", "file_error": "loading failed"})

	st := waitStatus(t, updates, func(st domain.TransportStatus) bool { return st.Err != nil })
	if !st.Fatal || !st.Terminal() {
		t.Errorf("end-file error should be fatal: %+v", st)
	}
	if st.DidFinish {
		t.Errorf("end-file error should not count as finished: %+v", st)
	}
	if !strings.Contains(st.Err.Error(), "loading failed") {
		t.Errorf("error: got %v, want the mpv file error", st.Err)
	}
}

func TestMPVHandlePlayerExitIsFatal(t *testing.T) {
	h, f := startFakeMPV(t)
	updates := make(chan domain.TransportStatus, 8)
	h.OnStatusUpdate(func(st domain.TransportStatus) { updates <- st })

	f.send(map[string]any{"event": "property-change", "id": 1, "name": "time-pos", "data": 3.0})
	f.conn.Close()

	st := waitStatus(t, updates, func(st domain.TransportStatus) bool { return st.Fatal })
	if st.Err == nil || st.IsPlaying {
		t.Errorf("player exit status: %+v", st)
	}
}

func TestMPVHandleExitAfterReleaseIsSilent(t *testing.T) {
	h, f := startFakeMPV(t)
	updates := make(chan domain.TransportStatus, 8)
	h.OnStatusUpdate(func(st domain.TransportStatus) { updates <- st })

	if err := h.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	f.conn.Close()
	<-h.readerDone

	select {
	case st := <-updates:
		t.Errorf("released handle emitted %+v", st)
	default:
	}
}

// handleFactory hands out one prepared handle
type handleFactory struct{ h domain.TransportHandle }

func (f handleFactory) Acquire(context.Context, string, domain.AcquireOptions) (domain.TransportHandle, error) {
	return f.h, nil
}

type noListener struct{}

func (noListener) Listen(context.Context, string, string, domain.SnapshotFunc, domain.ErrorFunc) (domain.Unsubscribe, error) {
	return func() {}, nil
}

func TestControllerReturnsToIdleWhenPlayerFails(t *testing.T) {
	for name, fail := range map[string]func(*fakeMPV){
		"end-file error": func(f *fakeMPV) {
			f.send(map[string]any{"event": "end-file", "reason": "error"})
		},
		"player exit": func(f *fakeMPV) { f.conn.Close() },
	} {
		t.Run(name, func(t *testing.T) {
			h, f := startFakeMPV(t)
			c := playback.NewController(noListener{}, handleFactory{h}, NullLogger())
			defer c.Close()
			sessions, cancel := c.Watch()
			defer cancel()

			tr := domain.Track{ID: "a", Title: "A", MediaURL: "https://cdn.example.com/a.mp3"}
			if err := c.RequestPlayPause(context.Background(), tr); err != nil {
				t.Fatalf("play failed: %v", err)
			}
			if s := c.Session(); s.ActiveTrackID() != "a" {
				t.Fatalf("expected track a active, got %+v", s)
			}

			fail(f)

			deadline := time.After(2 * time.Second)
			for {
				select {
				case s := <-sessions:
					if s.State == playback.StateIdle && s.ActiveTrackID() == "" {
						if _, err := h.Status(context.Background()); !errors.Is(err, domain.ErrReleased) {
							t.Errorf("failed handle not released: %v", err)
						}
						return
					}
				case <-deadline:
					t.Fatalf("session stuck: %+v", c.Session())
				}
			}
		})
	}
}

func TestMPVHandleReleaseIsIdempotent(t *testing.T) {
	h, _ := startFakeMPV(t)
	if err := h.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if err := h.Play(context.Background()); !errors.Is(err, domain.ErrReleased) {
		t.Errorf("Play after Release: got %v, want ErrReleased", err)
	}
	if _, err := h.Status(context.Background()); !errors.Is(err, domain.ErrReleased) {
		t.Errorf("Status after Release: got %v, want ErrReleased", err)
	}
}

func TestMPVBuildArgs(t *testing.T) {
	f := NewMPVFactory("", []string{"--volume=80"}, nil)
	got := f.buildArgs("/tmp/s.sock", "https://cdn.example.com/a.mp3", false)
	want := []string{
		"--volume=80", "--no-video", "--no-terminal", "--idle=no",
		"--input-ipc-server=/tmp/s.sock", "--pause", "--", "https://cdn.example.com/a.mp3",
	}
	if !slices.Equal(got, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", got, want)
	}
	if f.command != "mpv" {
		t.Errorf("default command: got %q, want mpv", f.command)
	}
}
