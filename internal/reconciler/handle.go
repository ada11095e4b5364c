package reconciler

import "github.com/herratomsiili/portwatch/internal/state"

// Handle controls and observes one running reconciler.
type Handle[K comparable, E any] struct {
	scope   *state.Scope[Registry[K, E]]
	refresh chan struct{}
}

// Cancel stops polling. A poll in flight completes but its result is discarded.
func (h *Handle[K, E]) Cancel() {
	h.scope.Cancel()
}

// Done is closed when the polling goroutine has exited.
func (h *Handle[K, E]) Done() <-chan struct{} {
	return h.scope.Done()
}

// Refresh requests a poll as soon as the current one (if any) finishes.
// Requests made while one is already pending are merged.
func (h *Handle[K, E]) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the latest registry. Before the first poll
// completes it is the zero Registry.
func (h *Handle[K, E]) Snapshot() Registry[K, E] {
	reg, _ := h.scope.Feed().Snapshot()
	return reg
}

// Subscribe streams registries as polls complete.
func (h *Handle[K, E]) Subscribe() (<-chan Registry[K, E], func()) {
	return h.scope.Feed().Subscribe()
}

// Status reports loading until the first poll has completed or the
// reconciler is cancelled.
func (h *Handle[K, E]) Status() state.Status {
	reg := h.Snapshot()
	return state.Status{Loading: reg.Polls == 0 && !h.scope.Cancelled(), Err: reg.Error}
}
