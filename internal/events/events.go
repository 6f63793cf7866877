// Package events provides the outbound channel to the orchestration
// service: a buffered publish/subscribe bus carrying named messages.
// Publishing never blocks; events to full subscribers are dropped and
// counted.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockgate/blockgate/internal/constants"
)

// Message is one outbound message: a protocol name plus its payload.
type Message struct {
	Name    string
	Payload any
	Time    time.Time
}

// Bus manages message subscriptions and publishing.
type Bus struct {
	subscribers   map[string][]chan Message
	all           []chan Message // subscribers to every message
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewBus creates a bus with the specified per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &Bus{
		subscribers: make(map[string][]chan Message),
		all:         make([]chan Message, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to one message name.
func (b *Bus) Subscribe(name string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Message)
		close(ch)
		return ch
	}

	ch := make(chan Message, b.bufferSize)
	b.subscribers[name] = append(b.subscribers[name], ch)
	return ch
}

// SubscribeAll creates a subscription to every message.
func (b *Bus) SubscribeAll() <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Message)
		close(ch)
		return ch
	}

	ch := make(chan Message, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends a message to all matching subscribers without blocking.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	msg := Message{Name: name, Payload: payload, Time: time.Now()}

	for _, ch := range b.subscribers[name] {
		select {
		case ch <- msg:
		default:
			b.droppedEvents.Add(1)
		}
	}

	for _, ch := range b.all {
		select {
		case ch <- msg:
		default:
			b.droppedEvents.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from one message name.
func (b *Bus) Unsubscribe(name string, ch <-chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[name]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			b.subscribers[name] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel everywhere it appears.
func (b *Bus) UnsubscribeAll(ch <-chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for name, subscribers := range b.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				b.subscribers[name] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range b.all {
		if subCh == ch {
			b.all[i] = b.all[len(b.all)-1]
			b.all = b.all[:len(b.all)-1]
			break
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// DroppedCount returns the total number of messages dropped due to full
// subscriber buffers.
func (b *Bus) DroppedCount() int64 {
	return b.droppedEvents.Load()
}
