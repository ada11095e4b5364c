package collector

import (
	"context"
	"time"

	"github.com/herratomsiili/portwatch/internal/state"
)

// Handle controls and observes one drain.
type Handle[E any] struct {
	scope *state.Scope[CollectionState[E]]
}

// Cancel stops the drain. No fetch is issued and nothing is published after
// Cancel returns; a fetch already in flight runs to completion and its result
// is discarded.
func (h *Handle[E]) Cancel() {
	h.scope.Cancel()
}

// Done is closed when the drain goroutine has exited.
func (h *Handle[E]) Done() <-chan struct{} {
	return h.scope.Done()
}

// Snapshot returns a copy of the latest published state.
func (h *Handle[E]) Snapshot() CollectionState[E] {
	st, _ := h.scope.Feed().Snapshot()
	return st
}

// Subscribe streams published states until the drain ends or cancel is called.
func (h *Handle[E]) Subscribe() (<-chan CollectionState[E], func()) {
	return h.scope.Feed().Subscribe()
}

// Status reports loading while the drain is running. A cancelled drain is
// never loading, even if its last published state was mid-drain.
func (h *Handle[E]) Status() state.Status {
	st := h.Snapshot()
	return state.Status{Loading: st.IsDraining && !h.scope.Cancelled(), Err: st.Error}
}

// wait pauses for d between pages. after, when set, replaces the timer.
func (h *Handle[E]) wait(ctx context.Context, d time.Duration, after func(time.Duration) <-chan time.Time) error {
	if d <= 0 {
		select {
		case <-h.scope.Stopping():
			return errStopped
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	var fired <-chan time.Time
	if after != nil {
		fired = after(d)
	} else {
		timer := time.NewTimer(d)
		defer timer.Stop()
		fired = timer.C
	}

	select {
	case <-h.scope.Stopping():
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}
