// Package publish fans out incumbent-solution events to subscribers,
// either in-process or over Redis Pub/Sub.
package publish

import (
	"sync"
	"time"
)

// Event announces a new best solution for an instance.
type Event struct {
	RunID     string    `json:"runId"`
	Instance  string    `json:"instance"`
	Cost      float64   `json:"cost"`
	Iteration int       `json:"iteration"`
	At        time.Time `json:"at"`
}

// Publisher is the outbound side of the broker.
type Publisher interface {
	Publish(instance string, evt Event)
	Close() error
}

// Broker fans events out in-process. Slow subscribers drop events rather
// than block the solver.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // instance -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(instance string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[instance] == nil {
		b.subs[instance] = map[chan Event]struct{}{}
	}
	b.subs[instance][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(instance string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[instance]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, instance)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(instance string, evt Event) {
	b.mu.Lock()
	m := b.subs[instance]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *Broker) Close() error { return nil }
