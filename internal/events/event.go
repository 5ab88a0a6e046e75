// Package events broadcasts message lifecycle events (insert, evict,
// delete) to subscribed websocket clients, so operators can watch the
// store's admission and eviction behavior live instead of polling.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/msgstore/msgstore/internal/core"
)

// Event types broadcast by the bus.
const (
	TypeInserted = "message_inserted"
	TypeEvicted  = "message_evicted"
	TypeDeleted  = "message_deleted"
)

// Event is one lifecycle notification, broadcast to every subscriber.
type Event struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	MessageId string    `json:"messageId"`
	Priority  uint32    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence"`
}

func newEvent(eventType string, msg core.Id) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		MessageId: msg.String(),
		Priority:  msg.Priority,
		Timestamp: time.Now(),
	}
}
