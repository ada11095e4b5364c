package state

import "sync"

// Feed holds the latest value published by a single owner goroutine and fans
// copies of it out to subscribers.
//
// Every value handed out (by Snapshot or through a subscription) is produced by
// the clone function, so observers never share mutable memory with the owner.
// Subscriber channels have a buffer of one: a slow subscriber skips
// intermediate values but always receives the most recent one.
type Feed[T any] struct {
	mu        sync.RWMutex
	clone     func(T) T
	latest    T
	published bool
	closed    bool
	subs      map[*subscriber[T]]struct{}
}

type subscriber[T any] struct {
	ch   chan T
	once sync.Once
}

// NewFeed returns an empty feed. A nil clone copies values shallowly.
func NewFeed[T any](clone func(T) T) *Feed[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Feed[T]{
		clone: clone,
		subs:  make(map[*subscriber[T]]struct{}),
	}
}

// Publish replaces the current value and notifies subscribers. Publishing to a
// closed feed is a no-op.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.latest = f.clone(v)
	f.published = true
	for sub := range f.subs {
		sub.offer(f.clone(v))
	}
}

// Snapshot returns a copy of the current value and whether anything has been
// published yet.
func (f *Feed[T]) Snapshot() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clone(f.latest), f.published
}

// Subscribe registers a new observer. The returned channel immediately holds
// the current value when one exists, and is closed when the feed closes or the
// returned cancel function is called.
func (f *Feed[T]) Subscribe() (<-chan T, func()) {
	sub := &subscriber[T]{ch: make(chan T, 1)}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.published {
		sub.offer(f.clone(f.latest))
	}
	if f.closed {
		sub.close()
		return sub.ch, func() {}
	}
	f.subs[sub] = struct{}{}

	return sub.ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, sub)
		sub.close()
	}
}

// Close stops further publication and closes every subscriber channel. The
// last published value remains available through Snapshot.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.close()
		delete(f.subs, sub)
	}
}

// offer performs a non-blocking send, replacing any value the subscriber has
// not consumed yet. Callers hold the feed lock, so this is the only sender.
func (s *subscriber[T]) offer(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

func (s *subscriber[T]) close() {
	s.once.Do(func() { close(s.ch) })
}
