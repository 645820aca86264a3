// Package realtime streams job lifecycle events to clients over SSE.
// Clients subscribe to their own user channel; the worker publishes into it.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type Event string

const (
	EventJobQueued    Event = "JobQueued"
	EventJobProgress  Event = "JobProgress"
	EventJobCompleted Event = "JobCompleted"
	EventJobFailed    Event = "JobFailed"
)

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan Message
	done     chan struct{}
}

type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[string]map[*Client]bool // channel -> subscribers
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "RealtimeHub"),
		clients: make(map[string]map[*Client]bool),
	}
}

// Subscribe registers a client on its user channel.
func (h *Hub) Subscribe(userID uuid.UUID) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ch := userID.String()
	subs, ok := h.clients[ch]
	if !ok {
		subs = make(map[*Client]bool)
		h.clients[ch] = subs
	}
	subs[c] = true
	h.log.Debug("sse client subscribed", "client_id", c.ID.String(), "channel", ch)
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	ch := c.UserID.String()
	if subs, ok := h.clients[ch]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.clients, ch)
		}
	}
	h.mu.Unlock()

	close(c.done)
	h.log.Debug("sse client unsubscribed", "client_id", c.ID.String(), "channel", ch)
}

// Broadcast delivers msg to every subscriber of its channel. Slow clients
// drop messages rather than block the publisher.
func (h *Hub) Broadcast(msg Message) {
	if msg.Channel == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("dropping sse message, outbound buffer full", "client_id", c.ID.String())
		}
	}
}

// ServeHTTP streams the client's events until the request context ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			b, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("failed to marshal sse message", "error", err.Error())
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}
