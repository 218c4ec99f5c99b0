// ABOUTME: Event bus facade: named-event subscriptions over the channel
// ABOUTME: Each subscription is independent and cancellation removes its listener deterministically

package client

import (
	"encoding/json"
	"sync"
)

// subscriptionBuffer is the per-subscription channel buffer. Payloads that
// arrive while a subscriber is this far behind are dropped (at-most-once,
// no replay).
const subscriptionBuffer = 16

// Subscription is one listener on a named event. Payloads arrive on C until
// Cancel is called, which closes C and removes the listener. Payloads
// delivered before the subscription attached are never replayed.
type Subscription struct {
	// C receives the raw payload of every occurrence of the event
	C <-chan json.RawMessage

	cancel func()
	once   sync.Once
}

// Cancel removes the listener and closes C. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// On subscribes to a named event: inbound events from the server (for
// example "newMessage") and the lifecycle events EventConnected,
// EventDisconnected and EventConnectError. Multiple concurrent
// subscriptions to the same name are independent and each receives every
// occurrence.
func (c *Client) On(event string) *Subscription {
	return c.bus.subscribe(event)
}

// bus is the listener registry behind On.
type bus struct {
	mu   sync.Mutex
	subs map[string]map[int]chan json.RawMessage
	next int
}

func newBus() *bus {
	return &bus{subs: make(map[string]map[int]chan json.RawMessage)}
}

func (b *bus) subscribe(event string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan json.RawMessage, subscriptionBuffer)

	if _, ok := b.subs[event]; !ok {
		b.subs[event] = make(map[int]chan json.RawMessage)
	}
	b.subs[event][id] = ch

	return &Subscription{
		C: ch,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			listeners, ok := b.subs[event]
			if !ok {
				return
			}
			if _, ok := listeners[id]; !ok {
				return
			}
			delete(listeners, id)
			close(ch)
			if len(listeners) == 0 {
				delete(b.subs, event)
			}
		},
	}
}

// dispatch fans a payload out to every listener of the event. Sends are
// non-blocking under the lock so cancellation can never race a send on a
// closed channel.
func (b *bus) dispatch(event string, data json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[event] {
		select {
		case ch <- data:
		default:
			// Listener too far behind; drop for this listener only
		}
	}
}
