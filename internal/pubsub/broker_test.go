package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type refChange struct {
	Ref string
	OID string
}

func TestBroker_SubscribeReceivesTypedPayload(t *testing.T) {
	broker := NewBroker[refChange]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(UpdatedEvent, refChange{Ref: "refs/heads/main", OID: "abc123"})

	select {
	case event := <-ch:
		require.Equal(t, UpdatedEvent, event.Type)
		require.Equal(t, "refs/heads/main", event.Payload.Ref)
		require.Equal(t, "abc123", event.Payload.OID)
		require.False(t, event.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for event")
	}
}

func TestBroker_FanOut(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[int]{
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
	}
	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(CreatedEvent, 7)

	for i, ch := range subs {
		select {
		case event := <-ch:
			require.Equal(t, 7, event.Payload, "subscriber %d", i)
			require.Equal(t, CreatedEvent, event.Type, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			require.Fail(t, "timeout waiting for event", "subscriber %d", i)
		}
	}
}

func TestBroker_ContextCancellationClosesSubscription(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(UpdatedEvent, 1)

	done := make(chan struct{})
	go func() {
		broker.Publish(UpdatedEvent, 2)
		broker.Publish(UpdatedEvent, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "Publish blocked")
	}

	event := <-ch
	require.Equal(t, 1, event.Payload)
	require.Equal(t, uint64(2), broker.Dropped())
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	broker := NewBroker[string]()
	ch1 := broker.Subscribe(context.Background())
	ch2 := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
	require.Equal(t, 0, broker.SubscriberCount())

	late := broker.Subscribe(context.Background())
	_, ok := <-late
	require.False(t, ok, "subscribing after close returns a closed channel")

	broker.Publish(UpdatedEvent, "ignored")
}

func TestListener_NextAndDrain(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(ctx, broker)

	broker.Publish(CreatedEvent, "first")
	event, ok := l.Next()
	require.True(t, ok)
	require.Equal(t, "first", event.Payload)

	broker.Publish(UpdatedEvent, "second")
	broker.Publish(DeletedEvent, "third")
	require.Eventually(t, func() bool { return len(l.ch) == 2 }, time.Second, time.Millisecond)

	drained := l.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, "second", drained[0].Payload)
	require.Equal(t, DeletedEvent, drained[1].Type)

	cancel()
	_, ok = l.Next()
	require.False(t, ok)
}

func TestFilter_OfType(t *testing.T) {
	broker := NewBroker[refChange]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := Filter(ctx, broker.Subscribe(ctx), OfType[refChange](ConflictedEvent, DeletedEvent))

	broker.Publish(UpdatedEvent, refChange{Ref: "HEAD"})
	broker.Publish(ConflictedEvent, refChange{Ref: "MERGE_HEAD"})
	broker.Publish(CreatedEvent, refChange{Ref: "refs/heads/topic"})
	broker.Publish(DeletedEvent, refChange{Ref: "refs/heads/old"})

	var got []string
	for len(got) < 2 {
		select {
		case event := <-ch:
			got = append(got, event.Payload.Ref)
		case <-time.After(time.Second):
			require.Fail(t, "timeout waiting for event", "got %v", got)
		}
	}
	require.Equal(t, []string{"MERGE_HEAD", "refs/heads/old"}, got)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
