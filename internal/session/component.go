package session

import (
	"context"
	"time"

	"github.com/herratomsiili/portwatch/internal/collector"
	"github.com/herratomsiili/portwatch/internal/reconciler"
	"github.com/herratomsiili/portwatch/internal/state"
)

// Component is a running collector or reconciler as seen by a session.
type Component interface {
	Cancel()
	Done() <-chan struct{}
	Status() state.Status
}

var (
	_ Component = (*collector.Handle[any])(nil)
	_ Component = (*reconciler.Handle[int, any])(nil)
)

// Binding names a component and knows how to start it.
type Binding struct {
	Name  string
	Start func(ctx context.Context) Component
}

// Collect binds a collector drain over fetch.
func Collect[K comparable, E any](name string, c *collector.Collector[K, E], fetch collector.FetchFunc[E]) *Binding {
	return &Binding{
		Name: name,
		Start: func(ctx context.Context) Component {
			return c.Start(ctx, fetch)
		},
	}
}

// Reconcile binds a reconciler polling fetch every interval.
func Reconcile[K comparable, E any](name string, r *reconciler.Reconciler[K, E], fetch reconciler.SnapshotFunc[E], interval time.Duration) *Binding {
	return &Binding{
		Name: name,
		Start: func(ctx context.Context) Component {
			return r.Start(ctx, fetch, interval)
		},
	}
}

// Config selects the components a session runs.
type Config struct {
	Collector  *Binding
	Reconciler *Binding
	// Extra holds further components, started after the two above.
	Extra []Binding
}

func (c Config) bindings() []Binding {
	var out []Binding
	if c.Collector != nil {
		out = append(out, *c.Collector)
	}
	if c.Reconciler != nil {
		out = append(out, *c.Reconciler)
	}
	return append(out, c.Extra...)
}
