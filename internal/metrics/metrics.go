// Package metrics exposes Prometheus instrumentation for page drains and
// registry polls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const namespace = "portwatch"

// Recorder records sync activity. A nil *Recorder is valid and records nothing.
type Recorder struct {
	pagesFetched  *prometheus.CounterVec
	itemsReceived *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	polls         *prometheus.CounterVec
	entities      *prometheus.GaugeVec
	fetchDuration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg. A nil reg
// gets a private registry.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages applied by collectors.",
		}, []string{"source"}),
		itemsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_received_total",
			Help:      "Items received from pages and snapshots.",
		}, []string{"source"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed fetches by error kind.",
		}, []string{"source", "kind"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed reconciler polls by result.",
		}, []string{"source", "result"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entities",
			Help:      "Entities currently held by a reconciler.",
		}, []string{"source"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of individual page and snapshot fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}

	var err error
	for _, c := range []prometheus.Collector{
		r.pagesFetched, r.itemsReceived, r.fetchFailures, r.polls, r.entities, r.fetchDuration,
	} {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// PageFetched records one applied page.
func (r *Recorder) PageFetched(source string, items int, took time.Duration) {
	if r == nil {
		return
	}
	r.pagesFetched.WithLabelValues(source).Inc()
	r.itemsReceived.WithLabelValues(source).Add(float64(items))
	r.fetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

// FetchFailed records a failed page or snapshot fetch.
func (r *Recorder) FetchFailed(source, kind string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(source, kind).Inc()
}

// PollSucceeded records a reconciled snapshot.
func (r *Recorder) PollSucceeded(source string, received, held int, took time.Duration) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(source, "ok").Inc()
	r.itemsReceived.WithLabelValues(source).Add(float64(received))
	r.entities.WithLabelValues(source).Set(float64(held))
	r.fetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

// PollFailed records a poll whose fetch failed.
func (r *Recorder) PollFailed(source, kind string) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(source, "error").Inc()
	r.fetchFailures.WithLabelValues(source, kind).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
