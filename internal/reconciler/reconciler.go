package reconciler

import (
	"context"
	"reflect"
	"time"

	"github.com/herratomsiili/portwatch/internal/logging"
	"github.com/herratomsiili/portwatch/internal/state"
)

// SnapshotFunc returns the full current contents of a live feed.
type SnapshotFunc[E any] func(ctx context.Context) ([]E, error)

// Reconciler keeps a keyed registry in step with a polled feed.
type Reconciler[K comparable, E any] struct {
	keyOf func(E) K
	opts  options
}

// New returns a reconciler that identifies entities with keyOf.
func New[K comparable, E any](keyOf func(E) K, opts ...Option) *Reconciler[K, E] {
	if keyOf == nil {
		panic("reconciler: nil key function")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDiscard(o.logger).With("source", o.source)
	return &Reconciler[K, E]{keyOf: keyOf, opts: o}
}

// Start polls fetch immediately and then every interval until the handle is
// cancelled or ctx ends. It returns immediately.
func (r *Reconciler[K, E]) Start(ctx context.Context, fetch SnapshotFunc[E], interval time.Duration) *Handle[K, E] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	h := &Handle[K, E]{
		scope:   state.NewScope(state.NewFeed(cloneRegistry[K, E])),
		refresh: make(chan struct{}, 1),
	}
	go r.run(ctx, fetch, interval, h)
	return h
}

func (r *Reconciler[K, E]) run(ctx context.Context, fetch SnapshotFunc[E], interval time.Duration, h *Handle[K, E]) {
	defer h.scope.Finish()

	reg := Registry[K, E]{
		Entities: make(map[K]E),
		LastSeen: make(map[K]time.Time),
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !r.poll(ctx, fetch, h, &reg) {
			return
		}
		select {
		case <-h.scope.Stopping():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-h.refresh:
		}
	}
}

// poll performs one fetch and publishes the resulting registry. It reports
// false once the handle has been cancelled.
func (r *Reconciler[K, E]) poll(ctx context.Context, fetch SnapshotFunc[E], h *Handle[K, E], reg *Registry[K, E]) bool {
	// A tick or refresh may win the select against a concurrent Cancel.
	if h.scope.Cancelled() {
		return false
	}
	started := time.Now()
	snapshot, err := fetch(ctx)
	if h.scope.Cancelled() {
		r.opts.logger.Debug("discarding snapshot received after cancel")
		return false
	}

	now := r.opts.now()
	reg.Polls++
	reg.LastAttemptAt = now

	if err != nil {
		info := state.Classify(err, now)
		reg.Error = info
		reg.ConsecutiveFailures++
		r.opts.metrics.PollFailed(r.opts.source, info.Kind.String())
		r.opts.logger.Warn("poll failed", "kind", info.Kind, "failures", reg.ConsecutiveFailures, "err", err)
		return h.scope.Publish(*reg)
	}

	entities, lastSeen := r.merge(*reg, snapshot, now)
	if !sameEntities(reg.Entities, entities) {
		reg.Revision++
	}
	reg.Entities = entities
	reg.LastSeen = lastSeen
	reg.LastPolledAt = now
	reg.Error = nil
	reg.ConsecutiveFailures = 0

	r.opts.metrics.PollSucceeded(r.opts.source, len(snapshot), len(entities), time.Since(started))
	r.opts.logger.Debug("poll applied", "received", len(snapshot), "entities", len(entities), "revision", reg.Revision)
	return h.scope.Publish(*reg)
}

// merge builds the next entity set without touching prev.
func (r *Reconciler[K, E]) merge(prev Registry[K, E], snapshot []E, now time.Time) (map[K]E, map[K]time.Time) {
	entities := make(map[K]E, len(snapshot))
	lastSeen := make(map[K]time.Time, len(snapshot))

	if r.opts.policy != RemoveMissing {
		for k, e := range prev.Entities {
			seen := prev.LastSeen[k]
			if r.opts.policy == ExpireMissing && now.Sub(seen) >= r.opts.staleAfter {
				continue
			}
			entities[k] = e
			lastSeen[k] = seen
		}
	}

	for _, e := range snapshot {
		k := r.keyOf(e)
		entities[k] = e
		lastSeen[k] = now
	}
	return entities, lastSeen
}

func sameEntities[K comparable, E any](a, b map[K]E) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}
