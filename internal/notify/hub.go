// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package notify

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

// ErrBroadcastFull is returned by Send when the broadcast queue is full.
var ErrBroadcastFull = errors.New("websocket broadcast queue full")

const broadcastQueueSize = 256

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub broadcasts alert messages to every connected dashboard.
//
// Clients join through ServeWS and are removed when their connection drops
// or their send buffer overflows. RunWithContext must be running for
// messages to be delivered.
type Hub struct {
	clients   map[*Client]struct{}
	mu        sync.Mutex
	broadcast chan string
	running   atomic.Bool
	upgrader  websocket.Upgrader
	origins   []string
	log       zerolog.Logger
}

// NewHub creates a hub that accepts websocket upgrades from the given
// origins. "*" allows any origin. An empty list allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan string, broadcastQueueSize),
		origins:   append([]string(nil), allowedOrigins...),
		log:       logging.WithComponent("websocket-hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// Name returns the notifier name.
func (h *Hub) Name() string {
	return "websocket"
}

// Send queues message for broadcast without blocking.
func (h *Hub) Send(_ context.Context, message string) error {
	select {
	case h.broadcast <- message:
		return nil
	default:
		return ErrBroadcastFull
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RunWithContext delivers queued messages until ctx is done, then closes
// every client. Shutdown takes priority over pending broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.running.Load() {
		http.Error(w, "websocket hub not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	if !h.add(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	client.start()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		h.log.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}
	if len(h.origins) == 0 {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.log.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// add registers c unless the hub has stopped since the upgrade began.
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	if !h.running.Load() {
		h.mu.Unlock()
		h.log.Debug().Uint64("client_id", c.id).Msg("websocket client refused: hub stopped")
		return false
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.log.Info().Uint64("client_id", c.id).Int("total_clients", total).Msg("websocket client connected")
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.dropLocked(c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info().Uint64("client_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// dropLocked must be called with mu held.
func (h *Hub) dropLocked(c *Client) {
	close(c.send)
	delete(h.clients, c)
	metrics.WebSocketConnections.Dec()
}

// sortedLocked returns clients in ID order. Must be called with mu held.
func (h *Hub) sortedLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients drops any client whose send buffer is full.
func (h *Hub) broadcastToClients(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedLocked() {
		select {
		case c.send <- message:
		default:
			h.log.Warn().Uint64("client_id", c.id).Msg("websocket client too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	h.running.Store(false)
	clients := h.sortedLocked()
	for _, c := range clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()

	h.log.Info().
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
