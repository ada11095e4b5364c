package reconciler

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/herratomsiili/portwatch/internal/state"
)

// Registry is the published view of a reconciled live feed.
type Registry[K comparable, E any] struct {
	Entities map[K]E
	LastSeen map[K]time.Time
	// LastPolledAt is the time of the last successful poll.
	LastPolledAt time.Time
	// LastAttemptAt is the time of the last poll, successful or not.
	LastAttemptAt       time.Time
	Polls               int
	Revision            int
	ConsecutiveFailures int
	Error               *state.ErrorInfo
}

// Len returns the number of entities held.
func (r Registry[K, E]) Len() int {
	return len(r.Entities)
}

// Get returns the entity stored under k.
func (r Registry[K, E]) Get(k K) (E, bool) {
	e, ok := r.Entities[k]
	return e, ok
}

// IsOffline reports whether the feed has failed on more than one consecutive poll.
func (r Registry[K, E]) IsOffline() bool {
	return r.ConsecutiveFailures >= 2
}

// Sorted returns the entities ordered by key.
func Sorted[K cmp.Ordered, E any](r Registry[K, E]) []E {
	keys := slices.Sorted(maps.Keys(r.Entities))
	out := make([]E, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Entities[k])
	}
	return out
}

func cloneRegistry[K comparable, E any](r Registry[K, E]) Registry[K, E] {
	r.Entities = maps.Clone(r.Entities)
	r.LastSeen = maps.Clone(r.LastSeen)
	return r
}
