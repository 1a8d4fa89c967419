package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/snapkeep/internal/photo"
)

// Event levels carried in StatusEvent.Level.
const (
	EventLog   = "log"   // a debug log line
	EventInfo  = "info"  // a status message
	EventError = "error" // a failed capture
	EventPhoto = "photo" // a saved photo, with Photo set
)

// subscriberBuffer is how many events a slow SSE client may lag behind
// before events are dropped for it.
const subscriberBuffer = 64

// StatusEvent is one SSE payload.
type StatusEvent struct {
	Time  string        `json:"t"`
	Level string        `json:"l,omitempty"`
	Msg   string        `json:"msg"`
	Photo *photo.Record `json:"photo,omitempty"`
}

type subscriber struct {
	ch   chan string
	once sync.Once
}

// StatusBroadcaster fans status events out to every SSE client.
type StatusBroadcaster struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	now  func() time.Time
}

func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		subs: make(map[*subscriber]struct{}),
		now:  time.Now,
	}
}

// Subscribe registers a client. The returned cancel func removes it and
// closes the channel; calling it more than once is harmless.
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	s := &subscriber{ch: make(chan string, subscriberBuffer)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s.ch, func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
}

// Broadcast sends msg at the given level. It never blocks: a client whose
// buffer is full misses the event.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Level: level, Msg: msg})
}

// BroadcastPhoto announces a saved photo.
func (b *StatusBroadcaster) BroadcastPhoto(rec photo.Record) {
	b.send(StatusEvent{Level: EventPhoto, Msg: "Saved " + rec.StoredName, Photo: &rec})
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	evt.Time = b.now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- payload:
		default:
		}
	}
}

// BroadcastWriter adapts b to an io.Writer for debug.SetOutput. Every
// non-blank line written becomes one EventLog event.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.b.Broadcast(EventLog, line)
		}
	}
	return len(p), nil
}
