// Package queue provides the fixed-capacity message channels shared between
// the command unit and the network engine. Each queue has exactly one
// producer and one consumer, and no operation ever blocks; a full or empty
// queue is reported back to the caller instead.
package queue

import (
	"sync"
)

// Queue is a bounded FIFO of messages. The zero value is not usable;
// construct with New.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates a queue holding at most limit messages.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, limit),
		limit: limit,
	}
}

// TryAdd appends a message to the queue. Returns false if the queue is full.
func (q *Queue[T]) TryAdd(item T) (ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		return
	}

	q.items = append(q.items, item)
	ok = true

	return
}

// TryRemove removes the oldest message from the queue.
// Returns ok == false if the queue is empty.
func (q *Queue[T]) TryRemove() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}

	item = q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	ok = true

	return
}

// Len returns the number of messages currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Cap returns the fixed capacity of the queue.
func (q *Queue[T]) Cap() int {
	return q.limit
}

// Full reports whether the queue has no room for another message.
func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items) >= q.limit
}

// Free returns the number of open slots in the queue.
func (q *Queue[T]) Free() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.limit - len(q.items)
}

// Drain discards all queued messages and returns how many were dropped.
func (q *Queue[T]) Drain() (count int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count = len(q.items)
	q.items = q.items[:0]

	return
}
