package engine

import (
	"sync"
	"sync/atomic"
)

// Listener receives engine events. Implementations must not block for long:
// events are delivered synchronously on the emitting goroutine.
type Listener interface {
	// OnDraw fires when the local player draws a tile.
	OnDraw(t Tile)
	// OnWait fires when a decision is owed on a tile discarded by from.
	OnWait(t Tile, from int)
	// OnClose fires once the session is over.
	OnClose()
}

// Subscription identifies a registered listener.
type Subscription uint64

// Bus is a typed event bus with explicit listener registration.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Subscription]Listener
	order     []Subscription
	nextID    atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Subscription]Listener)}
}

// Subscribe registers l and returns its handle.
func (b *Bus) Subscribe(l Listener) Subscription {
	id := Subscription(b.nextID.Add(1))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[Subscription]Listener)
	}
	b.listeners[id] = l
	b.order = append(b.order, id)
	return id
}

// Unsubscribe removes a listener. Returns false if id was not registered.
func (b *Bus) Unsubscribe(id Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[id]; !ok {
		return false
	}
	delete(b.listeners, id)
	for i, s := range b.order {
		if s == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// snapshot copies the listeners so emission runs without the lock held.
// A listener may then unsubscribe itself (or others) while handling an event.
func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.listeners[id])
	}
	return out
}

// EmitDraw delivers a draw event to every listener in registration order.
func (b *Bus) EmitDraw(t Tile) {
	for _, l := range b.snapshot() {
		l.OnDraw(t)
	}
}

// EmitWait delivers a wait event.
func (b *Bus) EmitWait(t Tile, from int) {
	for _, l := range b.snapshot() {
		l.OnWait(t, from)
	}
}

// EmitClose delivers the close event.
func (b *Bus) EmitClose() {
	for _, l := range b.snapshot() {
		l.OnClose()
	}
}
