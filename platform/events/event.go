// Package events provides the in-process domain event bus.
// This is part of the platform layer and contains no business logic.
//
// Event names have three dot-separated parts, "<context>.<aggregate>.<verb>",
// for example "leads.lead.merged". A subscription is either an exact name,
// "<context>.*" for every event of one bounded context, or "*" for everything.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wildcard subscribes a handler to every event.
const Wildcard = "*"

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the id and timestamp shared by all events. Embed it.
type BaseEvent struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a fresh event id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{EventID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Context returns the bounded context segment of an event name.
func Context(name string) string {
	ctx, _, _ := strings.Cut(name, ".")
	return ctx
}

// ValidName reports whether name is "<context>.<aggregate>.<verb>" with no empty part.
func ValidName(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || p == Wildcard {
			return false
		}
	}
	return true
}

// checkSubscription rejects subscription keys no event name could reach.
func checkSubscription(key string) error {
	if key == Wildcard || ValidName(key) {
		return nil
	}
	if ctx, ok := strings.CutSuffix(key, ".*"); ok && ctx != "" && !strings.Contains(ctx, ".") {
		return nil
	}
	return fmt.Errorf("events: invalid subscription %q", key)
}

// subscriptionKeys lists the keys whose handlers receive an event called name.
func subscriptionKeys(name string) []string {
	return []string{name, Context(name) + ".*", Wildcard}
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish runs handlers asynchronously; failures are logged, not returned.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers handler for an exact name, "<context>.*" or "*".
	// It panics on a key that can never match, since subscriptions are wired at startup.
	Subscribe(key string, handler Handler)
}
