package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/sitemark/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler broadcasts crawl events to connected clients. Progress
// events are throttled so a fast crawl cannot flood slow clients; terminal
// events always go out.
type WebSocketHandler struct {
	logger       arbor.ILogger
	eventService interfaces.EventService

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex

	progressThrottle *rate.Limiter
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		progressThrottle: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// SubscribeEvents registers the handler for all crawl event types.
func (h *WebSocketHandler) SubscribeEvents() error {
	eventTypes := []interfaces.EventType{
		interfaces.EventCrawlProgress,
		interfaces.EventPageComplete,
		interfaces.EventCrawlComplete,
		interfaces.EventCrawlFailed,
	}
	for _, eventType := range eventTypes {
		if err := h.eventService.Subscribe(eventType, h.onEvent); err != nil {
			return err
		}
	}
	return nil
}

func (h *WebSocketHandler) onEvent(ctx context.Context, event interfaces.Event) error {
	// Drop excess progress chatter; completion and failure always broadcast.
	if event.Type == interfaces.EventCrawlProgress && !h.progressThrottle.Allow() {
		return nil
	}
	h.broadcast(event)
	return nil
}

// HandleWebSocket upgrades the connection and registers the client. Reads
// are drained only to detect disconnect; the stream is one-way.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) broadcast(event interfaces.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.mu.RLock()
		connMu := h.clientMutex[conn]
		h.mu.RUnlock()
		if connMu == nil {
			continue
		}

		connMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, payload)
		connMu.Unlock()
		if err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// CloseAll disconnects every client, used during shutdown.
func (h *WebSocketHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.clientMutex = make(map[*websocket.Conn]*sync.Mutex)
}
