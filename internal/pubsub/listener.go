package pubsub

import "context"

// Listener wraps a single subscription and hands out events one at a time.
// It suits callers that poll from their own loop instead of ranging over the
// channel.
type Listener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewListener subscribes to broker for the lifetime of ctx.
func NewListener[T any](ctx context.Context, broker *Broker[T]) *Listener[T] {
	return &Listener[T]{
		ctx: ctx,
		ch:  broker.Subscribe(ctx),
	}
}

// Next blocks until an event arrives. It returns false once the context is
// cancelled or the subscription is closed.
func (l *Listener[T]) Next() (Event[T], bool) {
	select {
	case <-l.ctx.Done():
		return Event[T]{}, false
	case event, ok := <-l.ch:
		return event, ok
	}
}

// Drain returns every event already buffered without blocking.
func (l *Listener[T]) Drain() []Event[T] {
	var events []Event[T]
	for {
		select {
		case event, ok := <-l.ch:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}
