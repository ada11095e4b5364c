package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/herratomsiili/portwatch/internal/metrics"
)

const (
	// DefaultInterval is used when Start is given a non-positive interval.
	DefaultInterval = 60 * time.Second
	// DefaultStaleAfter is how long ExpireMissing keeps unseen entities.
	DefaultStaleAfter = 10 * time.Minute
)

// Policy decides what happens to a known entity that is absent from a
// successful snapshot.
type Policy int

const (
	// RemoveMissing drops absent entities; the registry mirrors the latest snapshot.
	RemoveMissing Policy = iota
	// RetainMissing keeps absent entities with their last known value.
	RetainMissing
	// ExpireMissing keeps absent entities until they have gone unseen for the
	// stale-after duration.
	ExpireMissing
)

func (p Policy) String() string {
	switch p {
	case RemoveMissing:
		return "remove"
	case RetainMissing:
		return "retain"
	case ExpireMissing:
		return "expire"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "remove", "retain" or "expire". An empty string selects
// RemoveMissing.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "remove":
		return RemoveMissing, nil
	case "retain":
		return RetainMissing, nil
	case "expire":
		return ExpireMissing, nil
	default:
		return RemoveMissing, fmt.Errorf("unknown missing policy %q (want remove, retain or expire)", s)
	}
}

type options struct {
	source     string
	policy     Policy
	staleAfter time.Duration
	logger     *log.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		source:     "registry",
		policy:     RemoveMissing,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Option configures a Reconciler.
type Option func(*options)

// WithSource names the registry in logs and metrics.
func WithSource(name string) Option {
	return func(o *options) {
		if name != "" {
			o.source = name
		}
	}
}

// WithPolicy selects how absent entities are handled.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithStaleAfter sets the retention window for ExpireMissing.
func WithStaleAfter(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.staleAfter = d
		}
	}
}

// WithLogger sets the logger used for poll results.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records poll outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
