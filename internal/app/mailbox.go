package app

import "sync"

// Mailbox is a one-slot channel where a new value replaces an unread one.
// Replaced values are handed to release so they can free resources.
type Mailbox[T any] struct {
	ch      chan T
	release func(T)
	mu      sync.Mutex
	dropped uint64
}

// NewMailbox creates an empty Mailbox. release may be nil.
func NewMailbox[T any](release func(T)) *Mailbox[T] {
	return &Mailbox[T]{
		ch:      make(chan T, 1),
		release: release,
	}
}

// Put stores v without blocking, displacing any value not yet received.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case old := <-m.ch:
		m.dropped++
		if m.release != nil {
			m.release(old)
		}
	default:
	}
	m.ch <- v
}

// C returns the receive side of the mailbox.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Drain releases any unread value.
func (m *Mailbox[T]) Drain() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case old := <-m.ch:
		if m.release != nil {
			m.release(old)
		}
	default:
	}
}

// Dropped returns how many values were displaced before being read.
func (m *Mailbox[T]) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
