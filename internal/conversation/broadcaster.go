// ABOUTME: In-memory fan-out broadcaster for real-time room delivery
// ABOUTME: Publishes delivery events to all sessions subscribed to a room

package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Delivery is the transport projection of a message or notification pushed
// to all sessions subscribed to a room. It is ephemeral; the message itself
// is persisted separately.
type Delivery struct {
	Room    string          // routing key: conversation ID or personal room (user ID)
	Event   string          // named event, e.g. "newMessage"
	Payload json.RawMessage // JSON payload as it goes over the wire
}

// Broadcaster provides in-memory pub/sub keyed by room. Sessions register
// for the rooms they have joined and receive deliveries as they are routed.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *Delivery // room -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan *Delivery),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for deliveries on the given room.
// Returns a channel that receives deliveries and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, room string) (<-chan *Delivery, string) {
	subID := uuid.New().String()
	ch := make(chan *Delivery, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[room]; !ok {
		b.subscribers[room] = make(map[string]chan *Delivery)
	}
	b.subscribers[room][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "room", room, "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(room, subID)
	}()

	return ch, subID
}

// Publish sends a delivery to all subscribers of the given room.
// Non-blocking: deliveries are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(room string, delivery *Delivery) {
	b.mu.RLock()
	subs, ok := b.subscribers[room]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}

	// Copy subscriber channels under read lock to avoid holding lock during sends
	targets := make([]chan *Delivery, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- delivery:
			// Sent
		default:
			// Subscriber channel full, drop the delivery for this subscriber
			b.logger.Debug("dropped delivery for slow subscriber",
				"room", room,
				"event", delivery.Event)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(room, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[room]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty room entries
	if len(subs) == 0 {
		delete(b.subscribers, room)
	}

	b.logger.Debug("subscriber removed", "room", room, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for room, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, room)
	}

	b.logger.Debug("broadcaster closed")
}
