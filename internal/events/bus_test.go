package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/core"
)

type fakeSubscriber struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	received []Event
}

func newFakeSubscriber(id string) *fakeSubscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeSubscriber{id: id, ctx: ctx, cancel: cancel}
}

func (f *fakeSubscriber) ID() string                { return f.id }
func (f *fakeSubscriber) Context() context.Context  { return f.ctx }
func (f *fakeSubscriber) Close() error              { f.cancel(); return nil }
func (f *fakeSubscriber) Send(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, event)
	return nil
}

func (f *fakeSubscriber) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.received))
	copy(out, f.received)
	return out
}

func TestBusNotifyInsertReachesSubscriber(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	sub := newFakeSubscriber("s1")
	bus.Subscribe(sub)

	id := core.Id{Priority: 5, Timestamp: 1}
	bus.NotifyInsert(id)

	require.Eventually(t, func() bool {
		return len(sub.events()) == 1
	}, time.Second, 10*time.Millisecond)

	got := sub.events()[0]
	assert.Equal(t, TypeInserted, got.Type)
	assert.Equal(t, id.String(), got.MessageId)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	sub := newFakeSubscriber("s2")
	bus.Subscribe(sub)
	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.ActiveSubscribers())

	bus.NotifyDelete(core.Id{Priority: 1, Timestamp: 2})
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sub.events())
}
