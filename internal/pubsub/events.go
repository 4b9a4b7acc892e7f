// Package pubsub provides a generic publish/subscribe event system used to
// fan out repository change notifications and log entries.
package pubsub

import (
	"context"
	"time"
)

// EventType is what happened to the subject of an event.
type EventType string

const (
	// CreatedEvent reports a new commit, branch, remote or stash.
	CreatedEvent EventType = "created"
	// UpdatedEvent reports the index, worktree or a ref moving.
	UpdatedEvent EventType = "updated"
	// DeletedEvent reports a removed ref or entry.
	DeletedEvent EventType = "deleted"
	// ConflictedEvent reports an operation that stopped on conflicts and now
	// waits for continue or abort.
	ConflictedEvent EventType = "conflicted"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

// Filter forwards the events from in that keep accepts. The returned channel
// is closed once in is closed or ctx is done.
func Filter[T any](ctx context.Context, in <-chan Event[T], keep func(Event[T]) bool) <-chan Event[T] {
	out := make(chan Event[T], cap(in))
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if !keep(ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// OfType is a Filter predicate accepting the given event types.
func OfType[T any](types ...EventType) func(Event[T]) bool {
	return func(ev Event[T]) bool {
		for _, t := range types {
			if ev.Type == t {
				return true
			}
		}
		return false
	}
}
