package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/cjeanneret/snapkeep/internal/fetch"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
	"github.com/cjeanneret/snapkeep/internal/photo"
	"github.com/cjeanneret/snapkeep/internal/storage"
)

// Gallery is the part of photo.Service the handlers drive.
type Gallery interface {
	CaptureAndStore(ctx context.Context) (photo.Record, error)
	Photos() []photo.Record
}

// StoredFiles opens files persisted by the gallery.
type StoredFiles interface {
	Open(ctx context.Context, dir storage.Directory, path string) (io.ReadCloser, error)
}

// Previews resolves transient preview references to bytes.
type Previews interface {
	Fetch(ctx context.Context, ref string) (*fetch.Blob, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Gallery     Gallery
	Files       StoredFiles
	Previews    Previews
	Options     camera.Options
	runningMu   sync.Mutex
	running     bool
	ctx         context.Context // bounds background captures and streams
	captures    sync.WaitGroup
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If gallery is nil, POST /photos returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, gallery Gallery, files StoredFiles, previews Previews, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Gallery:     gallery,
		Files:       files,
		Previews:    previews,
		Options:     photo.CaptureOptions,
		ctx:         context.Background(),
		staticFS:    staticFS,
	}
}

// bind makes ctx the parent of every capture started from now on. Server.Run
// binds its own context so shutdown cancels in-flight captures.
func (h *Handlers) bind(ctx context.Context) {
	h.runningMu.Lock()
	h.ctx = ctx
	h.runningMu.Unlock()
}

func (h *Handlers) context() context.Context {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	return h.ctx
}

// Wait blocks until the background capture, if any, has returned.
func (h *Handlers) Wait() {
	h.captures.Wait()
}

// HandleConfig returns the options every capture is requested with.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Options)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCapture handles POST /photos to take and store one photo.
// The capture runs in the background; its outcome is pushed on the status
// stream as a "photo" or "error" event.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Gallery == nil {
		http.Error(w, "capture not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	ctx := h.ctx
	if ctx.Err() != nil {
		h.runningMu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.captures.Add(1)
	h.runningMu.Unlock()

	go func() {
		defer h.captures.Done()
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		rec, err := h.Gallery.CaptureAndStore(ctx)
		if err != nil {
			h.Broadcaster.Broadcast(EventError, "Capture failed: "+err.Error())
			log.Printf("capture failed: %v", err)
			return
		}
		h.Broadcaster.BroadcastPhoto(rec)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleList handles GET /photos: the saved photos, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	photos := []photo.Record{}
	if h.Gallery != nil {
		if p := h.Gallery.Photos(); p != nil {
			photos = p
		}
	}
	writeJSON(w, http.StatusOK, photos)
}

// HandleStoredPhoto handles GET /photos/{name}: the persisted JPEG bytes.
func (h *Handlers) HandleStoredPhoto(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || path.Ext(name) != photo.Extension {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if h.Files == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	rc, err := h.Files.Open(r.Context(), storage.DirData, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrInvalidPath):
		http.Error(w, "invalid photo name", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "open photo failed", http.StatusInternalServerError)
		log.Printf("open %s: %v", name, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	io.Copy(w, rc)
}

// HandlePreview handles GET /preview?ref=...: the bytes behind a transient
// preview reference.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "ref is required", http.StatusBadRequest)
		return
	}
	if h.Previews == nil {
		http.Error(w, "previews not configured", http.StatusServiceUnavailable)
		return
	}

	b, err := h.Previews.Fetch(r.Context(), ref)
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, fetch.ErrUnsupportedScheme):
		http.Error(w, "unsupported reference", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "fetch preview failed", http.StatusBadGateway)
		log.Printf("preview %s: %v", ref, err)
		return
	}

	ct := b.Type
	if ct == "" {
		ct = http.DetectContentType(b.Data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(b.Size()))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b.Data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()
	done := h.context().Done()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return

		case <-done:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
