package state

import "sync"

// Scope ties a Feed to the lifetime of the goroutine that owns it.
//
// Cancel and Publish share one lock: once Cancel returns, no later Publish can
// reach observers, even if the owner is still finishing a request it started
// before cancellation.
type Scope[T any] struct {
	feed *Feed[T]

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}

	doneOnce sync.Once
	done     chan struct{}
}

// NewScope wraps feed in a fresh, running scope.
func NewScope[T any](feed *Feed[T]) *Scope[T] {
	return &Scope[T]{
		feed: feed,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Cancel marks the scope stopped and closes the feed. It is idempotent.
func (s *Scope[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
	s.feed.Close()
}

// Cancelled reports whether Cancel has been called.
func (s *Scope[T]) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stopping is closed when Cancel is called.
func (s *Scope[T]) Stopping() <-chan struct{} {
	return s.stop
}

// Publish forwards v to the feed unless the scope was cancelled. It reports
// whether the value was published.
func (s *Scope[T]) Publish(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.feed.Publish(v)
	return true
}

// Finish is called by the owner goroutine on exit.
func (s *Scope[T]) Finish() {
	s.doneOnce.Do(func() {
		s.feed.Close()
		close(s.done)
	})
}

// Done is closed once the owner goroutine has exited.
func (s *Scope[T]) Done() <-chan struct{} {
	return s.done
}

// Feed exposes the underlying feed for reads and subscriptions.
func (s *Scope[T]) Feed() *Feed[T] {
	return s.feed
}
