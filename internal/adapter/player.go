package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/google/uuid"
)

const (
	ipcDialTimeout  = 5 * time.Second
	ipcDialInterval = 50 * time.Millisecond
)

// MPVFactory acquires audio transport handles by spawning a headless mpv
// per track and driving it over its JSON IPC socket.
type MPVFactory struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewMPVFactory creates a factory for the given mpv command
func NewMPVFactory(command string, args []string, logger *slog.Logger) *MPVFactory {
	if logger == nil {
		logger = slog.Default()
	}
	if command == "" {
		command = "mpv"
	}
	return &MPVFactory{command: command, args: args, logger: logger}
}

func (f *MPVFactory) buildArgs(socket, mediaURL string, autoStart bool) []string {
	args := append([]string{}, f.args...)
	args = append(args,
		"--no-video",
		"--no-terminal",
		"--idle=no",
		"--input-ipc-server="+socket,
	)
	if !autoStart {
		args = append(args, "--pause")
	}
	return append(args, "--", mediaURL)
}

// Acquire implements domain.TransportFactory
func (f *MPVFactory) Acquire(ctx context.Context, mediaURL string, opts domain.AcquireOptions) (domain.TransportHandle, error) {
	path, err := exec.LookPath(f.command)
	if err != nil {
		return nil, fmt.Errorf("player %q not found: %w", f.command, err)
	}

	socket := filepath.Join(os.TempDir(), "gks-mpv-"+uuid.NewString()+".sock")
	cmd := exec.Command(path, f.buildArgs(socket, mediaURL, opts.AutoStart)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start player: %w", err)
	}

	conn, err := dialIPC(ctx, socket)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.Remove(socket)
		return nil, fmt.Errorf("failed to connect to player: %w", err)
	}

	h := newMPVHandle(conn, f.logger)
	h.cmd = cmd
	h.socket = socket
	if err := h.observe(ctx); err != nil {
		h.Release()
		return nil, err
	}
	f.logger.Debug("player started", "pid", cmd.Process.Pid, "socket", socket)
	return h, nil
}

func dialIPC(ctx context.Context, socket string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, ipcDialTimeout)
	defer cancel()
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(ipcDialInterval):
		}
	}
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage covers both replies and events on the socket
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

// mpvHandle implements domain.TransportHandle over one IPC connection
type mpvHandle struct {
	conn   net.Conn
	cmd    *exec.Cmd
	socket string
	logger *slog.Logger

	writeMu sync.Mutex
	enc     *json.Encoder

	mu        sync.Mutex
	status    domain.TransportStatus
	callbacks []func(domain.TransportStatus)
	pending   map[int64]chan ipcMessage
	nextID    int64
	released  bool

	releaseOnce sync.Once
	readerDone  chan struct{}
}

func newMPVHandle(conn net.Conn, logger *slog.Logger) *mpvHandle {
	h := &mpvHandle{
		conn:       conn,
		logger:     logger,
		enc:        json.NewEncoder(conn),
		pending:    make(map[int64]chan ipcMessage),
		readerDone: make(chan struct{}),
	}
	go h.read()
	return h
}

var observedProperties = []string{"time-pos", "duration", "pause"}

func (h *mpvHandle) observe(ctx context.Context) error {
	for i, name := range observedProperties {
		if _, err := h.command(ctx, "observe_property", i+1, name); err != nil {
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}
	return nil
}

// command sends one IPC command and waits for its reply
func (h *mpvHandle) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil, domain.ErrReleased
	}
	h.nextID++
	id := h.nextID
	reply := make(chan ipcMessage, 1)
	h.pending[id] = reply
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	h.writeMu.Lock()
	err := h.enc.Encode(ipcRequest{Command: args, RequestID: id})
	h.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case msg := <-reply:
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", msg.Error)
		}
		return msg.Data, nil
	case <-h.readerDone:
		return nil, domain.ErrReleased
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *mpvHandle) read() {
	defer close(h.readerDone)
	scanner := bufio.NewScanner(h.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			h.logger.Debug("ignoring malformed ipc line", "error", err)
			continue
		}
		h.handle(msg)
	}

	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if !released {
		err := scanner.Err()
		if err == nil {
			err = errors.New("player exited")
		}
		h.mu.Lock()
		st := h.status
		h.mu.Unlock()
		st.IsPlaying = false
		st.Fatal = true
		st.Err = err
		h.emit(st)
	}
}

func (h *mpvHandle) handle(msg ipcMessage) {
	if msg.Event == "" {
		h.mu.Lock()
		reply, ok := h.pending[msg.RequestID]
		h.mu.Unlock()
		if ok {
			reply <- msg
		}
		return
	}

	h.mu.Lock()
	switch msg.Event {
	case "property-change":
		switch msg.Name {
		case "time-pos":
			h.status.PositionMs = secondsToMs(msg.Data)
		case "duration":
			h.status.DurationMs = secondsToMs(msg.Data)
		case "pause":
			var paused bool
			json.Unmarshal(msg.Data, &paused)
			h.status.IsPlaying = !paused
		default:
			h.mu.Unlock()
			return
		}
	case "end-file":
		h.status.IsPlaying = false
		switch msg.Reason {
		case "eof":
			h.status.DidFinish = true
		case "error":
			h.status.Fatal = true
			h.status.Err = errors.New("playback failed")
			if msg.FileError != "" {
				h.status.Err = fmt.Errorf("playback failed: %s", msg.FileError)
			}
		}
	default:
		h.mu.Unlock()
		return
	}
	st := h.status
	h.status.Err = nil
	h.mu.Unlock()

	h.emit(st)
}

func (h *mpvHandle) emit(st domain.TransportStatus) {
	h.mu.Lock()
	fns := append([]func(domain.TransportStatus){}, h.callbacks...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func secondsToMs(raw json.RawMessage) int64 {
	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return 0
	}
	return int64(secs * 1000)
}

func (h *mpvHandle) Play(ctx context.Context) error {
	_, err := h.command(ctx, "set_property", "pause", false)
	return err
}

func (h *mpvHandle) Pause(ctx context.Context) error {
	_, err := h.command(ctx, "set_property", "pause", true)
	return err
}

func (h *mpvHandle) Seek(ctx context.Context, positionMs int64) error {
	_, err := h.command(ctx, "seek", float64(positionMs)/1000, "absolute")
	return err
}

func (h *mpvHandle) Status(ctx context.Context) (domain.TransportStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return domain.TransportStatus{}, domain.ErrReleased
	}
	return h.status, nil
}

func (h *mpvHandle) OnStatusUpdate(fn func(domain.TransportStatus)) {
	h.mu.Lock()
	h.callbacks = append(h.callbacks, fn)
	h.mu.Unlock()
}

// Release stops the player. Safe to call from a status callback.
func (h *mpvHandle) Release() error {
	h.releaseOnce.Do(func() {
		h.mu.Lock()
		h.released = true
		h.callbacks = nil
		h.mu.Unlock()

		h.writeMu.Lock()
		h.conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
		h.enc.Encode(ipcRequest{Command: []any{"quit"}})
		h.writeMu.Unlock()
		h.conn.Close()

		if h.cmd != nil && h.cmd.Process != nil {
			done := make(chan struct{})
			go func() {
				h.cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				h.cmd.Process.Kill()
				<-done
			}
		}
		if h.socket != "" {
			os.Remove(h.socket)
		}
	})
	return nil
}
