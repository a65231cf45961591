// Package events implements an in-process publish/subscribe bus for habit
// changes. A Bus is owned by the application context and handed to the
// components that publish or listen; there is no package-level instance.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/julianstephens/habitlog/internal/models"
)

// Topics published by the habit service
const (
	HabitCreated    = "habit.created"
	HabitUpdated    = "habit.updated"
	HabitDeleted    = "habit.deleted"
	HabitToggled    = "habit.toggled"
	HabitReconciled = "habit.reconciled"
)

// Event describes a committed change to one habit.
// Habit holds the stored record after the change and is nil for deletes.
type Event struct {
	Type    string
	UserID  string
	HabitID string
	Habit   *models.Habit
}

// Handler receives events. Handlers run on the publisher's goroutine.
type Handler func(Event)

// Subscription is the handle returned by Subscribe
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64
	once  sync.Once
}

// Unsubscribe stops delivery to the handler. Safe to call more than once,
// including from inside the handler itself.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

// Bus dispatches events synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
	closed   atomic.Bool
}

type entry struct {
	id uint64
	fn Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
	}
}

// Subscribe registers fn for topic. An empty topic receives every event.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, topic: topic, id: b.nextID}
	if !b.closed.Load() {
		b.handlers[topic] = append(b.handlers[topic], entry{id: sub.id, fn: fn})
	}
	return sub
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[topic]
	for i, e := range entries {
		if e.id == id {
			// Copy so that a Publish iterating the old slice is unaffected
			next := make([]entry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			b.handlers[topic] = next
			break
		}
	}
	if len(b.handlers[topic]) == 0 {
		delete(b.handlers, topic)
	}
}

// Publish delivers ev to the handlers of its topic, then to wildcard handlers.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(ev Event) {
	if b == nil || b.closed.Load() {
		return
	}

	b.mu.RLock()
	targets := append([]entry(nil), b.handlers[ev.Type]...)
	targets = append(targets, b.handlers[""]...)
	b.mu.RUnlock()

	for _, e := range targets {
		e.fn(ev)
	}
}

// SubscriberCount returns the number of live subscriptions for topic
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Close drops every subscription; later publishes are ignored
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		b.mu.Lock()
		b.handlers = make(map[string][]entry)
		b.mu.Unlock()
	}
}
