package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/msgstore/msgstore/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and subscribes it to the event
// bus for the connection's lifetime.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event streaming disabled", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := events.NewWebSocketSubscriber(r.RemoteAddr, conn, r.Context())
	s.bus.Subscribe(sub)

	// Drain incoming frames (pings, close) until the client disconnects;
	// the connection is write-only from the bus's perspective. The handler
	// stays in this loop so r.Context(), the subscriber's parent context,
	// remains live for the connection's lifetime.
	defer s.bus.Unsubscribe(sub)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
