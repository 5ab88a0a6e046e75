package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msgstore/msgstore/internal/core"
)

// ErrChannelFull is returned when the bus's internal buffer is saturated
// and an event had to be dropped rather than block the caller.
var ErrChannelFull = errors.New("events: channel full")

// Subscriber receives broadcast events, typically backed by a websocket
// connection.
type Subscriber interface {
	ID() string
	Send(event Event) error
	Close() error
	Context() context.Context
}

// Bus fans out lifecycle events to every active subscriber and
// satisfies ingest.Notifier, so the write path can notify it directly.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	eventChan   chan Event
	sequence    int64
	logger      *slog.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewBus creates a Bus with a bounded internal buffer.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[Subscriber]struct{}),
		eventChan:   make(chan Event, 1000),
		logger:      logger.With("component", "events.Bus"),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the broadcast worker; Stop must be called to release it.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop drains in-flight broadcasts and shuts the worker down.
func (b *Bus) Stop(ctx context.Context) error {
	close(b.stopChan)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscriber to receive future events.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = struct{}{}
	b.logger.Info("subscriber added", "id", sub.ID(), "total", len(b.subscribers))
}

// Unsubscribe removes and closes a subscriber.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		sub.Close()
		b.logger.Info("subscriber removed", "id", sub.ID(), "total", len(b.subscribers))
	}
}

// ActiveSubscribers reports the current subscriber count.
func (b *Bus) ActiveSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) publish(event Event) error {
	event.Sequence = atomic.AddInt64(&b.sequence, 1)
	select {
	case b.eventChan <- event:
		return nil
	default:
		b.logger.Warn("event channel full, dropping event", "type", event.Type, "id", event.ID)
		return ErrChannelFull
	}
}

// NotifyInsert satisfies ingest.Notifier.
func (b *Bus) NotifyInsert(id core.Id) {
	if err := b.publish(newEvent(TypeInserted, id)); err != nil {
		b.logger.Warn("dropped insert event", "id", id.String(), "error", err)
	}
}

// NotifyEvict satisfies ingest.Notifier.
func (b *Bus) NotifyEvict(id core.Id) {
	if err := b.publish(newEvent(TypeEvicted, id)); err != nil {
		b.logger.Warn("dropped evict event", "id", id.String(), "error", err)
	}
}

// NotifyDelete satisfies ingest.Notifier.
func (b *Bus) NotifyDelete(id core.Id) {
	if err := b.publish(newEvent(TypeDeleted, id)); err != nil {
		b.logger.Warn("dropped delete event", "id", id.String(), "error", err)
	}
}

func (b *Bus) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case event := <-b.eventChan:
			b.broadcast(event)
		}
	}
}

func (b *Bus) broadcast(event Event) {
	start := time.Now()

	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s Subscriber) {
			defer wg.Done()
			select {
			case <-s.Context().Done():
				b.Unsubscribe(s)
				return
			default:
			}
			if err := s.Send(event); err != nil {
				b.logger.Warn("failed to send event to subscriber", "id", s.ID(), "error", err)
				b.Unsubscribe(s)
			}
		}(sub)
	}
	wg.Wait()

	b.logger.Debug("broadcast complete", "type", event.Type, "subscribers", len(subs), "duration_ms", time.Since(start).Milliseconds())
}
