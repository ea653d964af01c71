package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("e16")
	ch2 := b.Subscribe("e16")
	other := b.Subscribe("e51")

	b.Publish("e16", Event{Instance: "e16", Cost: 42, At: time.Now()})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			require.Equal(t, 42.0, evt.Cost)
		default:
			t.Fatal("subscriber missed event")
		}
	}
	select {
	case <-other:
		t.Fatal("event leaked across instances")
	default:
	}
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("e16")
	for i := 0; i < 20; i++ {
		b.Publish("e16", Event{Cost: float64(i)})
	}
	// Buffer is 8; the rest were dropped without blocking.
	require.Len(t, ch, 8)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("e16")
	b.Unsubscribe("e16", ch)
	_, open := <-ch
	require.False(t, open)
	// Publishing to a cleaned-up instance is a no-op.
	b.Publish("e16", Event{Cost: 1})
}
