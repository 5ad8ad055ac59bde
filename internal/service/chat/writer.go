package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

const writeTimeout = 10 * time.Second

// SessionWriter persists message lists of existing sessions.
type SessionWriter interface {
	UpdateSessionMessages(ctx context.Context, collection, userID, id string, messages []chat.Message) error
}

// Write is one pending session update.
type Write struct {
	Collection string
	UserID     string
	SessionID  string
	Messages   []chat.Message
}

func (w Write) key() string {
	return w.Collection + "/" + w.SessionID
}

// Writer is a coalescing write-behind queue: only the newest snapshot per
// session is kept, and a single worker writes them in arrival order.
type Writer struct {
	repo    SessionWriter
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]Write
	order   []string
	started bool
	closed  bool

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
}

// NewWriter creates an idle queue; call Start to begin writing.
func NewWriter(repo SessionWriter, m *metrics.Metrics) *Writer {
	return &Writer{
		repo:    repo,
		metrics: m,
		pending: make(map[string]Write),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker. Calling it twice is a no-op.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.run()
}

// Enqueue schedules a write, replacing any older pending snapshot of the same
// session. It reports false once the queue is closed.
func (w *Writer) Enqueue(write Write) bool {
	write.Messages = append([]chat.Message(nil), write.Messages...)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		slog.Warn("session write dropped after shutdown", "component", "chat", "session_id", write.SessionID)
		return false
	}
	key := write.key()
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = write
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of sessions waiting to be written.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Close stops accepting writes and drains what is queued, giving up when ctx ends.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	if !started {
		w.drain()
		return nil
	}

	close(w.quit)
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		write := w.pending[key]
		delete(w.pending, key)
		w.mu.Unlock()

		w.write(write)
	}
}

func (w *Writer) write(write Write) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := w.repo.UpdateSessionMessages(ctx, write.Collection, write.UserID, write.SessionID, write.Messages)
	w.metrics.SessionWrite("update", err)
	if err != nil {
		slog.Error("session write failed", "component", "chat",
			"collection", write.Collection, "session_id", write.SessionID, "error", err)
	}
}
