package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/herratomsiili/portwatch/internal/logging"
	"github.com/herratomsiili/portwatch/internal/state"
)

// Page is one response of a cursor-paginated endpoint. An empty Next means
// the collection is exhausted.
type Page[E any] struct {
	Items []E
	Next  string
}

// FetchFunc returns the page at cursor. The first call receives an empty cursor.
type FetchFunc[E any] func(ctx context.Context, cursor string) (Page[E], error)

// CollectionState is the published view of a drain.
type CollectionState[E any] struct {
	Items      []E
	IsDraining bool
	Pages      int
	Error      *state.ErrorInfo
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// Complete reports whether the drain reached the last page without error.
func (s CollectionState[E]) Complete() bool {
	return !s.IsDraining && s.Error == nil && s.Pages > 0
}

func cloneState[E any](s CollectionState[E]) CollectionState[E] {
	s.Items = slices.Clone(s.Items)
	return s
}

var errStopped = errors.New("collector stopped")

// Collector drains paginated collections into keyed, ordered result sets.
// One Collector may be started any number of times; each Start is independent.
type Collector[K comparable, E any] struct {
	keyOf func(E) K
	opts  options
}

// New returns a collector that identifies items with keyOf.
func New[K comparable, E any](keyOf func(E) K, opts ...Option) *Collector[K, E] {
	if keyOf == nil {
		panic("collector: nil key function")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDiscard(o.logger).With("source", o.source)
	return &Collector[K, E]{keyOf: keyOf, opts: o}
}

// Start begins a drain and returns immediately. The initial draining state is
// published before Start returns.
func (c *Collector[K, E]) Start(ctx context.Context, fetch FetchFunc[E]) *Handle[E] {
	h := &Handle[E]{scope: state.NewScope(state.NewFeed(cloneState[E]))}

	now := c.opts.now()
	st := CollectionState[E]{IsDraining: true, StartedAt: now, UpdatedAt: now}
	h.scope.Publish(st)

	go c.drain(ctx, fetch, h, st)
	return h
}

func (c *Collector[K, E]) drain(ctx context.Context, fetch FetchFunc[E], h *Handle[E], st CollectionState[E]) {
	defer h.scope.Finish()

	parent := ctx
	if c.opts.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.drainTimeout)
		defer cancel()
	}

	logger := c.opts.logger
	index := make(map[K]int)
	cursor := ""

	for {
		// A fired delay timer and Cancel can race in wait's select.
		if h.scope.Cancelled() {
			return
		}
		started := time.Now()
		page, err := fetch(ctx, cursor)
		if h.scope.Cancelled() {
			logger.Debug("discarding page received after cancel", "cursor", cursor)
			return
		}
		if err == nil && page.Next != "" && page.Next == cursor {
			err = fmt.Errorf("%w: next cursor %q repeats the current one", state.ErrProtocolViolation, cursor)
		}
		if err != nil {
			c.fail(h, &st, c.drainError(parent, ctx, err))
			return
		}

		c.opts.metrics.PageFetched(c.opts.source, len(page.Items), time.Since(started))
		for _, item := range page.Items {
			k := c.keyOf(item)
			if i, ok := index[k]; ok {
				st.Items[i] = item
				continue
			}
			index[k] = len(st.Items)
			st.Items = append(st.Items, item)
		}
		st.Pages++
		st.UpdatedAt = c.opts.now()

		if page.Next == "" {
			st.IsDraining = false
			if h.scope.Publish(st) {
				logger.Info("drain complete", "pages", st.Pages, "items", len(st.Items))
			}
			return
		}
		if c.opts.maxPages > 0 && st.Pages >= c.opts.maxPages {
			c.fail(h, &st, fmt.Errorf("%w: stopped after %d pages", state.ErrPageLimit, st.Pages))
			return
		}
		if !h.scope.Publish(st) {
			return
		}
		logger.Debug("page applied", "page", st.Pages, "items", len(st.Items))

		if err := h.wait(ctx, c.opts.pageDelay, c.opts.after); err != nil {
			if errors.Is(err, errStopped) {
				return
			}
			c.fail(h, &st, c.drainError(parent, ctx, err))
			return
		}
		cursor = page.Next
	}
}

// drainError attributes a context expiry to the drain timeout when the
// caller's context is still live.
func (c *Collector[K, E]) drainError(parent, ctx context.Context, err error) error {
	if c.opts.drainTimeout > 0 && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", state.ErrDrainTimeout, c.opts.drainTimeout, err)
	}
	return err
}

func (c *Collector[K, E]) fail(h *Handle[E], st *CollectionState[E], err error) {
	info := state.Classify(err, c.opts.now())
	st.Error = info
	st.IsDraining = false
	st.UpdatedAt = info.At

	if !h.scope.Publish(*st) {
		return
	}
	c.opts.metrics.FetchFailed(c.opts.source, info.Kind.String())
	c.opts.logger.Warn("drain stopped", "kind", info.Kind, "pages", st.Pages, "items", len(st.Items), "err", err)
}
