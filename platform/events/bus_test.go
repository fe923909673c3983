package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cold_solutions_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.thing.happened" }

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	calls := 0
	bus.Subscribe("test.thing.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return errors.New("first")
	}))
	bus.Subscribe("test.thing.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
}

func TestPublishRunsHandlersAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var count atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.thing.happened", HandlerFunc(func(context.Context, Event) error {
			count.Add(1)
			return nil
		}))
	}
	bus.Subscribe("other.thing.happened", HandlerFunc(func(context.Context, Event) error {
		t.Errorf("unrelated handler must not run")
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if count.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", count.Load())
	}
}

func TestContextAndWildcardSubscriptions(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var got []string
	record := func(tag string) Handler {
		return HandlerFunc(func(context.Context, Event) error {
			got = append(got, tag)
			return nil
		})
	}
	bus.Subscribe(Wildcard, record("all"))
	bus.Subscribe("test.*", record("context"))
	bus.Subscribe("test.thing.happened", record("exact"))
	bus.Subscribe("other.*", record("other"))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"exact", "context", "all"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSubscribeRejectsUnreachableKeys(t *testing.T) {
	for _, key := range []string{"", "leads", "leads.lead", "leads.*.merged", "a.b.c.d", ".*"} {
		t.Run(key, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for %q", key)
				}
			}()
			NewInMemoryBus(logger.Discard()).Subscribe(key, HandlerFunc(func(context.Context, Event) error { return nil }))
		})
	}
}

func TestNewBaseEventStampsIDAndUTC(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	if a.EventID == "" || a.EventID == b.EventID {
		t.Fatalf("expected distinct event ids, got %q and %q", a.EventID, b.EventID)
	}
	if a.OccurredAt().Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
	if Context("leads.lead.merged") != "leads" {
		t.Fatalf("expected leads context")
	}
}
