// Package pubsub provides latest-value topics for observers that may fall
// behind: a slow subscriber only ever sees the newest value, never a backlog.
package pubsub

import "sync"

type Topic[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
	last T
	has  bool
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: map[int]chan T{}}
}

// Publish hands v to every subscriber without blocking, replacing any value
// a subscriber has not consumed yet.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last, t.has = v, true
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Subscribe returns a channel primed with the last published value, if any,
// and a cancel func that closes it.
func (t *Topic[T]) Subscribe() (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan T, 1)
	if t.has {
		ch <- t.last
	}
	id := t.next
	t.next++
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// Last returns the most recently published value.
func (t *Topic[T]) Last() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.has
}

func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
