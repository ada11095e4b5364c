package collector

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/herratomsiili/portwatch/internal/metrics"
)

// DefaultPageDelay is the pause between applying a page and requesting the next.
const DefaultPageDelay = 300 * time.Millisecond

type options struct {
	source       string
	pageDelay    time.Duration
	maxPages     int
	drainTimeout time.Duration
	logger       *log.Logger
	metrics      *metrics.Recorder
	now          func() time.Time
	after        func(time.Duration) <-chan time.Time
}

func defaultOptions() options {
	return options{
		source:    "collection",
		pageDelay: DefaultPageDelay,
		now:       time.Now,
	}
}

// Option configures a Collector.
type Option func(*options)

// WithSource names the collection in logs and metrics.
func WithSource(name string) Option {
	return func(o *options) {
		if name != "" {
			o.source = name
		}
	}
}

// WithPageDelay sets the pause between pages. Zero disables it; negative
// values are ignored.
func WithPageDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.pageDelay = d
		}
	}
}

// WithMaxPages stops a drain with a limit error after n pages. Zero means
// unbounded.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPages = n
		}
	}
}

// WithDrainTimeout bounds the wall-clock duration of a drain. Zero means no
// bound.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.drainTimeout = d
		}
	}
}

// WithLogger sets the logger used for drain progress.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records page and failure counts on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// withAfter replaces the page delay timer.
func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(o *options) { o.after = after }
}
