package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/herratomsiili/portwatch/internal/logging"
)

// Coordinator opens sessions and tracks the ones still open.
type Coordinator struct {
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for session lifecycle events.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator returns a coordinator with no open sessions.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Open starts every component selected by cfg under a new session. The
// session ends when Close is called or ctx is cancelled.
func (c *Coordinator) Open(ctx context.Context, cfg Config) (*Session, error) {
	bindings := cfg.bindings()
	if len(bindings) == 0 {
		return nil, ErrNoComponents
	}
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.Name == "" {
			return nil, errors.New("component binding has no name")
		}
		if b.Start == nil {
			return nil, fmt.Errorf("component %q has no start function", b.Name)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("duplicate component name %q", b.Name)
		}
		seen[b.Name] = true
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:         uuid.NewString(),
		ctx:        sctx,
		cancel:     cancel,
		logger:     c.logger,
		bindings:   bindings,
		components: make(map[string]Component, len(bindings)),
		done:       make(chan struct{}),
		onClose:    c.forget,
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.order = append(c.order, s.id)
	c.mu.Unlock()

	s.mu.Lock()
	for _, b := range bindings {
		comp := b.Start(sctx)
		s.components[b.Name] = comp
		s.started = append(s.started, comp)
	}
	s.mu.Unlock()

	go func() {
		select {
		case <-sctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	c.logger.Info("session opened", "session", s.id, "components", len(bindings))
	return s, nil
}

// Session returns the open session with the given id.
func (c *Coordinator) Session(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Sessions returns the open sessions in the order they were opened.
func (c *Coordinator) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.sessions[id])
	}
	return out
}

// CloseAll closes every open session.
func (c *Coordinator) CloseAll() {
	for _, s := range c.Sessions() {
		s.Close()
	}
}

func (c *Coordinator) forget(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, s.id)
	for i, id := range c.order {
		if id == s.id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
