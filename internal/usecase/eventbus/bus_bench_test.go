package eventbus

import (
	"context"
	"testing"
	"time"

	"hedwig/internal/domain"
)

// BenchmarkEventBusPublish benchmarks the hot path: publishing to one subscriber.
func BenchmarkEventBusPublish(b *testing.B) {
	bus := New(nil)
	ctx := context.Background()
	event := domain.Event{
		Type:      domain.EventToolCallDone,
		Timestamp: time.Now(),
		ThreadID:  "bench-thread",
	}
	bus.Subscribe(domain.EventToolCallDone, func(_ context.Context, _ domain.Event) {})

	b.ReportAllocs()
	for b.Loop() {
		bus.Publish(ctx, event)
	}
	bus.Close()
}

// BenchmarkEventBusPublishMultipleSubscribers fans out to ten subscribers.
func BenchmarkEventBusPublishMultipleSubscribers(b *testing.B) {
	bus := New(nil)
	ctx := context.Background()
	event := domain.Event{
		Type:      domain.EventTaskRouted,
		Timestamp: time.Now(),
		ThreadID:  "bench-thread",
	}
	for range 10 {
		bus.Subscribe(domain.EventTaskRouted, func(_ context.Context, _ domain.Event) {})
	}

	b.ReportAllocs()
	for b.Loop() {
		bus.Publish(ctx, event)
	}
	bus.Close()
}

// BenchmarkEventBusPublishNoSubscribers measures the journal-only path.
func BenchmarkEventBusPublishNoSubscribers(b *testing.B) {
	bus := New(nil)
	ctx := context.Background()
	event := domain.Event{Type: domain.EventTaskStarted, Timestamp: time.Now()}

	b.ReportAllocs()
	for b.Loop() {
		bus.Publish(ctx, event)
	}
	bus.Close()
}
