package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hedwig/internal/domain"
)

func newEvent(t domain.EventType, thread string) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now(), ThreadID: thread}
}

func TestPublishSubscribe(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.Subscribe(domain.EventTaskRouted, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventTaskRouted {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventTaskRouted, ""))
	bus.Publish(context.Background(), newEvent(domain.EventToolDenied, ""))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventTaskStarted, ""))
	bus.Publish(context.Background(), newEvent(domain.EventToolCallStarted, ""))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New(nil)

	var typed, all atomic.Int32
	unsubTyped := bus.Subscribe(domain.EventTaskCompleted, func(_ context.Context, _ domain.Event) {
		typed.Add(1)
	})
	unsubAll := bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		all.Add(1)
	})
	unsubTyped()
	unsubAll()
	unsubAll() // second call is a no-op

	bus.Publish(context.Background(), newEvent(domain.EventTaskCompleted, ""))
	bus.Close()

	if typed.Load() != 0 || all.Load() != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got typed=%d all=%d", typed.Load(), all.Load())
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.Subscribe(domain.EventToolCallDone, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), newEvent(domain.EventToolCallDone, ""))
		}()
	}
	wg.Wait()
	bus.Close()

	if got.Load() != 100 {
		t.Fatalf("expected 100, got %d", got.Load())
	}
}

func TestPanicRecovery(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.Subscribe(domain.EventTaskFailed, func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	bus.Subscribe(domain.EventTaskFailed, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventTaskFailed, ""))
	bus.Close()

	if got.Load() != 1 {
		t.Fatalf("expected 1 (second handler), got %d", got.Load())
	}
}

func TestCloseDrainsAndRejectsNew(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.Subscribe(domain.EventTaskRejected, func(_ context.Context, _ domain.Event) {
		time.Sleep(50 * time.Millisecond)
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventTaskRejected, ""))
	bus.Close() // blocks until the handler finishes
	bus.Close()

	if got.Load() != 1 {
		t.Fatalf("expected handler to have run, got %d", got.Load())
	}

	bus.Publish(context.Background(), newEvent(domain.EventTaskRejected, ""))
	time.Sleep(20 * time.Millisecond)
	if got.Load() != 1 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
	if n := len(bus.Recent("")); n != 1 {
		t.Fatalf("expected 1 journaled event, got %d", n)
	}
}

func TestCloseWhilePublishing(t *testing.T) {
	bus := New(nil)

	var delivered atomic.Int64
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		delivered.Add(1)
	})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					bus.Publish(context.Background(), newEvent(domain.EventTaskStarted, ""))
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	bus.Close()
	atClose := delivered.Load()

	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()

	if got := delivered.Load(); got != atClose {
		t.Fatalf("handlers ran after Close returned: %d at close, %d later", atClose, got)
	}
}

func TestRecentFiltersByThread(t *testing.T) {
	bus := New(nil, WithJournalSize(3))
	ctx := context.Background()

	bus.Publish(ctx, newEvent(domain.EventTaskRouted, "a"))
	bus.Publish(ctx, newEvent(domain.EventTaskStarted, "b"))
	bus.Publish(ctx, newEvent(domain.EventTaskCompleted, "a"))
	bus.Publish(ctx, newEvent(domain.EventTaskRouted, "a"))
	bus.Close()

	all := bus.Recent("")
	if len(all) != 3 {
		t.Fatalf("expected journal bounded to 3, got %d", len(all))
	}
	if all[0].Type != domain.EventTaskStarted {
		t.Fatalf("expected oldest event dropped, first is %s", all[0].Type)
	}

	a := bus.Recent("a")
	if len(a) != 2 || a[0].Type != domain.EventTaskCompleted || a[1].Type != domain.EventTaskRouted {
		t.Fatalf("unexpected thread a events: %+v", a)
	}
}

func TestPublishEventHelper(t *testing.T) {
	bus := New(nil)
	ctx := domain.ContextWithThreadID(context.Background(), "thread-7")

	var got atomic.Value
	bus.Subscribe(domain.EventToolDenied, func(_ context.Context, e domain.Event) {
		got.Store(e)
	})

	domain.PublishEvent(ctx, bus, domain.EventToolDenied, map[string]string{"tool": "shell"})
	domain.PublishEvent(ctx, nil, domain.EventToolDenied, nil) // nil bus is ignored
	bus.Close()

	e, ok := got.Load().(domain.Event)
	if !ok {
		t.Fatal("expected an event")
	}
	if e.ThreadID != "thread-7" {
		t.Fatalf("expected thread-7, got %q", e.ThreadID)
	}
	if string(e.Payload) != `{"tool":"shell"}` {
		t.Fatalf("unexpected payload %s", e.Payload)
	}
}
