package devserver

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/metrics"
)

const (
	heartbeat    = 30 * time.Second
	clientBuffer = 8
)

// Event kinds.
const (
	KindCSS    = "css"
	KindReload = "reload"
)

// Event is one reload signal sent to browsers.
type Event struct {
	Kind  string   `json:"kind"`
	Paths []string `json:"paths"`
	Hash  string   `json:"hash"`
}

// Hub keeps the connected reload clients. Clients connect, disconnect and
// receive broadcasts concurrently.
type Hub struct {
	recorder metrics.Recorder

	mu      sync.Mutex
	nextID  int
	clients map[int]*client
	closed  bool
}

type client struct {
	events chan Event
	done   chan struct{}
}

// NewHub returns an empty hub.
func NewHub(recorder metrics.Recorder) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Hub{recorder: recorder, clients: map[int]*client{}}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP streams events to one client as server-sent events until the
// client goes away or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, c, ok := h.add()
	if !ok {
		http.Error(w, "reload hub shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			slog.Debug("reload client write", slog.Any(klog.Error, err))
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(": connected\n\n") {
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if !send(": ping\n\n") {
				return
			}
		case event := <-c.events:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if !send("event: " + event.Kind + "\ndata: " + string(data) + "\n\n") {
				return
			}
		}
	}
}

func (h *Hub) add() (int, *client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	c := &client{events: make(chan Event, clientBuffer), done: make(chan struct{})}
	id := h.nextID
	h.nextID++
	h.clients[id] = c
	h.recorder.SetReloadClients(len(h.clients))
	slog.Debug("reload client connected", slog.Int(klog.Clients, len(h.clients)))
	return id, c, true
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.done)
	h.recorder.SetReloadClients(len(h.clients))
}

// Broadcast sends event to every client. A client too slow to take it is
// disconnected; its browser reconnects and reloads on its own.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	var slow []int
	for id, c := range h.clients {
		select {
		case c.events <- event:
		default:
			slow = append(slow, id)
		}
	}
	sent := len(h.clients) - len(slow)
	h.mu.Unlock()

	for _, id := range slow {
		h.remove(id)
	}
	h.recorder.IncReload(event.Kind)
	slog.Debug("reload broadcast",
		slog.String(klog.Kind, event.Kind),
		slog.Int(klog.Clients, sent))
}

// Shutdown disconnects every client and refuses new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.done)
		delete(h.clients, id)
	}
	h.recorder.SetReloadClients(0)
}
