package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// WebSocketSubscriber adapts a gorilla/websocket connection to the
// Subscriber interface; one is created per client connection to the
// event stream endpoint.
type WebSocketSubscriber struct {
	id     string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

// NewWebSocketSubscriber wraps conn, deriving its lifetime from parent.
func NewWebSocketSubscriber(id string, conn *websocket.Conn, parent context.Context) *WebSocketSubscriber {
	ctx, cancel := context.WithCancel(parent)
	return &WebSocketSubscriber{id: id, conn: conn, ctx: ctx, cancel: cancel}
}

func (s *WebSocketSubscriber) ID() string {
	return s.id
}

func (s *WebSocketSubscriber) Context() context.Context {
	return s.ctx
}

// Send writes event as a JSON text frame; concurrent Sends are
// serialized since gorilla/websocket connections are not safe for
// concurrent writers.
func (s *WebSocketSubscriber) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close cancels the subscriber's context and closes the connection.
func (s *WebSocketSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.conn.Close()
}
