package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/herratomsiili/portwatch/internal/collector"
	"github.com/herratomsiili/portwatch/internal/config"
	"github.com/herratomsiili/portwatch/internal/logging"
	"github.com/herratomsiili/portwatch/internal/metrics"
	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/prefs"
	"github.com/herratomsiili/portwatch/internal/reconciler"
	"github.com/herratomsiili/portwatch/internal/session"
	"github.com/herratomsiili/portwatch/internal/ui"
)

var errInterrupted = errors.New("interrupted before completion")

// Options configure a portwatch run. Zero values defer to the config file.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses ~/.config/portwatch/prefs.toml
	PollEvery   time.Duration
	LogLevel    string
	MetricsAddr string
	// LogOutput receives logs for Drain and Watch; nil means stderr.
	LogOutput io.Writer
	// Fetcher replaces the Portman client, mainly for tests.
	Fetcher portman.Fetcher
}

// env is everything a command needs, built once from Options.
type env struct {
	cfg      config.Config
	logger   *log.Logger
	fetcher  portman.Fetcher
	registry *prometheus.Registry
	recorder *metrics.Recorder
	coord    *session.Coordinator
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	return cfg, nil
}

func newEnv(cfg config.Config, opts Options, logOut io.Writer) (*env, error) {
	logger := logging.New(logOut, cfg.LogLevel)

	fetcher := opts.Fetcher
	if fetcher == nil {
		client, err := portman.NewClient(portman.Options{
			BaseURL:           cfg.APIBaseURL,
			AISURL:            cfg.AISURL,
			FunctionKey:       cfg.FunctionKey,
			AuthToken:         cfg.AuthToken,
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("init portman client: %w", err)
		}
		fetcher = client
	}

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		registry: registry,
		recorder: recorder,
		coord:    session.NewCoordinator(session.WithLogger(logger)),
	}, nil
}

func (e *env) voyages() *session.Binding {
	c := collector.New(portman.PortCallKey, e.collectorOptions(portman.SourceVoyages)...)
	return session.Collect(portman.SourceVoyages, c, voyagesFetch(e.fetcher))
}

func (e *env) arrivals() *session.Binding {
	c := collector.New(portman.ArrivalKey, e.collectorOptions(portman.SourceArrivals)...)
	return session.Collect(portman.SourceArrivals, c, arrivalsFetch(e.fetcher))
}

func (e *env) vessels() *session.Binding {
	r := reconciler.New(portman.VesselKey,
		reconciler.WithSource(portman.SourceVessels),
		reconciler.WithPolicy(e.cfg.Policy()),
		reconciler.WithStaleAfter(e.cfg.StaleAfter),
		reconciler.WithLogger(e.logger.WithPrefix(portman.SourceVessels)),
		reconciler.WithMetrics(e.recorder),
	)
	return session.Reconcile(portman.SourceVessels, r, vesselsSnapshot(e.fetcher), e.cfg.PollInterval)
}

func (e *env) collectorOptions(source string) []collector.Option {
	return []collector.Option{
		collector.WithSource(source),
		collector.WithPageDelay(e.cfg.PageDelay),
		collector.WithMaxPages(e.cfg.MaxPages),
		collector.WithDrainTimeout(e.cfg.DrainTimeout),
		collector.WithLogger(e.logger.WithPrefix(source)),
		collector.WithMetrics(e.recorder),
	}
}

// serveMetrics runs the metrics endpoint in g when an address is configured.
func (e *env) serveMetrics(ctx context.Context, g *errgroup.Group) {
	if e.cfg.MetricsAddr == "" {
		return
	}
	e.logger.Info("serving metrics", "addr", e.cfg.MetricsAddr)
	g.Go(func() error {
		return metrics.Serve(ctx, e.cfg.MetricsAddr, e.registry)
	})
}

// Run boots the dashboard until the user quits or ctx is cancelled. The
// terminal belongs to the dashboard, so logs go to the configured log file.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}

	e, err := newEnv(cfg, opts, logOut)
	if err != nil {
		return err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := e.coord.Open(ctx, session.Config{
		Collector:  e.voyages(),
		Reconciler: e.vessels(),
		Extra:      []session.Binding{*e.arrivals()},
	})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer e.coord.CloseAll()

	g, gctx := errgroup.WithContext(ctx)
	e.serveMetrics(gctx, g)
	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Session:   sess,
			ThemeName: userPrefs.Theme,
			Tab:       userPrefs.Tab,
			PrefsPath: prefsPath,
			Logger:    e.logger,
		})
	})
	return g.Wait()
}

// Drain pages through one collection and writes the collected items to w as
// JSON. Items gathered before a failure or an interruption are still written;
// the error is returned afterwards.
func Drain(ctx context.Context, opts Options, which string, w io.Writer) error {
	if err := checkCollection(which); err != nil {
		return err
	}
	e, err := openEnv(opts)
	if err != nil {
		return err
	}

	switch which {
	case portman.SourceArrivals:
		return drainTo[portman.Arrival](ctx, e, e.arrivals(), w)
	default:
		return drainTo[portman.PortCall](ctx, e, e.voyages(), w)
	}
}

func drainTo[E any](ctx context.Context, e *env, b *session.Binding, w io.Writer) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	e.serveMetrics(gctx, g)

	sess, err := e.coord.Open(gctx, session.Config{Collector: b})
	if err != nil {
		return err
	}
	defer sess.Close()

	h, ok := session.Lookup[*collector.Handle[E]](sess, b.Name)
	if !ok {
		return fmt.Errorf("%w: %q", session.ErrUnknownComponent, b.Name)
	}

	updates, unsubscribe := h.Subscribe()
	defer unsubscribe()

	var last collector.CollectionState[E]
	for st := range updates {
		last = st
		e.logger.Debug("drain progress", "source", b.Name, "pages", st.Pages, "items", len(st.Items))
		if !st.IsDraining {
			break
		}
	}
	cancel()
	waitErr := g.Wait()

	var result error
	switch {
	case waitErr != nil:
		result = waitErr
	case last.IsDraining && ctx.Err() != nil:
		result = ctx.Err()
	case last.IsDraining:
		result = fmt.Errorf("drain %s: %w", b.Name, errInterrupted)
	case last.Error != nil:
		result = fmt.Errorf("drain %s: %w", b.Name, last.Error)
	}
	if last.IsDraining {
		e.logger.Warn("drain interrupted", "source", b.Name, "pages", last.Pages, "items", len(last.Items))
	} else {
		e.logger.Info("drain finished", "source", b.Name, "pages", last.Pages, "items", len(last.Items), "took", last.UpdatedAt.Sub(last.StartedAt))
	}

	// Partial items are written whether the drain failed or was interrupted.
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(last.Items); err != nil {
		return fmt.Errorf("write items: %w", err)
	}
	return result
}

// Watch polls the AIS feed until ctx is cancelled and writes one line to w for
// every published registry.
func Watch(ctx context.Context, opts Options, w io.Writer) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	e.serveMetrics(gctx, g)

	sess, err := e.coord.Open(gctx, session.Config{Reconciler: e.vessels()})
	if err != nil {
		return err
	}
	defer sess.Close()

	h, ok := session.Lookup[*reconciler.Handle[int64, portman.VesselLocation]](sess, portman.SourceVessels)
	if !ok {
		return fmt.Errorf("%w: %q", session.ErrUnknownComponent, portman.SourceVessels)
	}

	updates, unsubscribe := h.Subscribe()
	defer unsubscribe()

	g.Go(func() error {
		for reg := range updates {
			if reg.Polls == 0 {
				continue
			}
			if _, err := fmt.Fprintln(w, formatRegistry(reg)); err != nil {
				return fmt.Errorf("write status: %w", err)
			}
		}
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func formatRegistry(reg reconciler.Registry[int64, portman.VesselLocation]) string {
	line := fmt.Sprintf("%s vessels=%d revision=%d polls=%d",
		reg.LastAttemptAt.Format(time.RFC3339), reg.Len(), reg.Revision, reg.Polls)
	if reg.Error != nil {
		line += fmt.Sprintf(" failures=%d error=%q", reg.ConsecutiveFailures, reg.Error.Message)
	}
	if reg.IsOffline() {
		line += " offline"
	}
	return line
}

// openEnv builds the env for the headless commands, which log to stderr.
func openEnv(opts Options) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	return newEnv(cfg, opts, logOut)
}
