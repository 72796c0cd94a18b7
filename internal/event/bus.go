// Package event carries the engine's diagnostic notifications: leak
// candidate sets, bookkeeping anomalies and fresh suggestion batches.
// Subscribers poll buffered channels; a publish never blocks the engine.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/memtrace/memtrace/internal/core/models"
)

type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan models.Event
	nextID  int
	closed  bool
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan models.Event)}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function unregisters it and closes the channel; calling cancel more than
// once is safe.
func (b *Bus) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber whose buffer has room.
// Events for full subscribers are dropped and counted.
func (b *Bus) Publish(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were discarded for slow subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unregisters and closes every subscriber channel. Publish after
// Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
