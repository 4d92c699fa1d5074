package events

import "sync"

// Broker distributes events to subscribers. Each subscriber gets its own
// buffered channel; delivery to a full channel is dropped rather than
// blocking a publisher (the installer queue publishes from its workers and
// must never stall on a slow UI). A late subscriber sees only events
// published after it subscribed; there is no replay.
type Broker struct {
	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int
}

// DefaultBufferSize is the per-subscriber channel depth.
const DefaultBufferSize = 64

// NewBroker creates a broker with the default buffer size.
func NewBroker() *Broker {
	return NewBrokerWithBuffer(DefaultBufferSize)
}

// NewBrokerWithBuffer creates a broker whose subscriber channels hold up to
// size events. Tests pass a large size to make delivery lossless.
func NewBrokerWithBuffer(size int) *Broker {
	if size < 1 {
		size = 1
	}
	return &Broker{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  size,
	}
}

// Subscribe returns a channel receiving the given event types. With no types,
// the subscription is a wildcard and receives everything.
func (b *Broker) Subscribe(eventTypes ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if len(eventTypes) == 0 {
		eventTypes = []EventType{wildcard}
	}
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

// Unsubscribe removes a subscription and closes its channel. With no types,
// the channel is removed from every type it was registered under.
func (b *Broker) Unsubscribe(ch <-chan Event, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		eventTypes = make([]EventType, 0, len(b.subscribers))
		for eventType := range b.subscribers {
			eventTypes = append(eventTypes, eventType)
		}
	}
	closed := false
	for _, eventType := range eventTypes {
		closed = b.removeChannel(eventType, ch, closed) || closed
	}
}

// Publish sends an event to all matching subscribers in registration order.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default: // subscriber is behind, drop
		}
	}
	for _, ch := range b.subscribers[wildcard] {
		select {
		case ch <- event:
		default:
		}
	}
}

const wildcard EventType = "*"

func (b *Broker) removeChannel(eventType EventType, target <-chan Event, alreadyClosed bool) bool {
	found := false
	subs := b.subscribers[eventType]
	for i, ch := range subs {
		if ch == target {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			if !alreadyClosed {
				close(ch)
			}
			found = true
			break
		}
	}
	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
	return found
}

// Clear closes every subscription. Called once at shutdown.
func (b *Broker) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[chan Event]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			close(ch)
		}
	}
	b.subscribers = make(map[EventType][]chan Event)
}
