// Package eventbus delivers task and tool lifecycle events to in-process
// subscribers.
package eventbus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/pkg/ringbuf"
)

// DefaultJournalSize bounds the events kept for Recent.
const DefaultJournalSize = 100

type subscription struct {
	id      uint64
	handler domain.EventHandler
}

// Option configures a Bus.
type Option func(*Bus)

// WithJournalSize sizes the journal of recent events.
func WithJournalSize(n int) Option {
	return func(b *Bus) { b.journal = ringbuf.New[domain.Event](n) }
}

// Bus is an in-process, goroutine-safe event bus. Every published event is
// also kept in a bounded journal.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]subscription
	allSubs []subscription
	nextID  atomic.Uint64
	journal *ringbuf.Ring[domain.Event]
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  bool // guarded by mu
}

// New creates an event bus.
func New(log *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		typed:   make(map[domain.EventType][]subscription),
		journal: ringbuf.New[domain.Event](DefaultJournalSize),
		logger:  logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish fans out an event to matching typed subscribers and all-event
// subscribers. Each handler runs in its own goroutine; panics are recovered.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	// The closed check and wg.Add share the read lock so Close cannot start
	// waiting between them.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscription, 0, len(b.typed[event.Type])+len(b.allSubs))
	subs = append(subs, b.typed[event.Type]...)
	subs = append(subs, b.allSubs...)
	b.wg.Add(len(subs))
	b.mu.RUnlock()

	b.journal.Push(event)
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	b.logger.Debug("event published", "event", string(event.Type), "thread_id", event.ThreadID)

	for _, sub := range subs {
		b.dispatch(ctx, event, sub)
	}
}

// dispatch runs one handler. The caller has already counted it in wg.
func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscription) {
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.EventHandlerPanics.Inc()
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
	}()
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[eventType] = slices.DeleteFunc(b.typed[eventType], func(s subscription) bool { return s.id == id })
	}
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allSubs = slices.DeleteFunc(b.allSubs, func(s subscription) bool { return s.id == id })
	}
}

// Recent returns the journaled events, oldest first, optionally narrowed to
// the given thread. An empty threadID returns every event.
func (b *Bus) Recent(threadID string) []domain.Event {
	events := b.journal.Snapshot()
	if threadID == "" {
		return events
	}
	return slices.DeleteFunc(events, func(e domain.Event) bool { return e.ThreadID != threadID })
}

// Close prevents new publishes and waits for all in-flight handlers to finish.
// Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
