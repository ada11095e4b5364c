package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/herratomsiili/portwatch/internal/state"
)

var (
	// ErrNoComponents is returned by Open when the config selects nothing.
	ErrNoComponents = errors.New("session config selects no components")
	// ErrClosed is returned when restarting a component of a closed session.
	ErrClosed = errors.New("session closed")
	// ErrUnknownComponent is returned for a name the session was not opened with.
	ErrUnknownComponent = errors.New("unknown component")
)

// Phase is the merged state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
)

// ComponentStatus is the status of one named component.
type ComponentStatus struct {
	Name string
	state.Status
}

// Status merges the status of every component in a session.
type Status struct {
	Loading    bool
	Err        *state.ErrorInfo
	Components []ComponentStatus
}

// Phase collapses the status into idle, loading or error. An error takes
// precedence over loading.
func (s Status) Phase() Phase {
	switch {
	case s.Err != nil:
		return PhaseError
	case s.Loading:
		return PhaseLoading
	default:
		return PhaseIdle
	}
}

// Session is the cancellation scope for the components of one view.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger

	mu         sync.Mutex
	bindings   []Binding
	components map[string]Component
	started    []Component
	closed     bool

	closeOnce sync.Once
	done      chan struct{}
	onClose   func(*Session)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Component returns the running component registered under name.
func (s *Session) Component(name string) (Component, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[name]
	return c, ok
}

// Lookup returns the component registered under name as type C.
func Lookup[C Component](s *Session, name string) (C, bool) {
	var zero C
	c, ok := s.Component(name)
	if !ok {
		return zero, false
	}
	typed, ok := c.(C)
	return typed, ok
}

// Names returns the component names in status order.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.Name
	}
	return names
}

// Status reports loading while any component is loading, and the first error
// in configuration order. A closed session is never loading.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Status
	for _, b := range s.bindings {
		cs := s.components[b.Name].Status()
		if s.closed {
			cs.Loading = false
		}
		st.Components = append(st.Components, ComponentStatus{Name: b.Name, Status: cs})
		st.Loading = st.Loading || cs.Loading
		if st.Err == nil && cs.Err != nil {
			st.Err = cs.Err
		}
	}
	return st
}

// Restart cancels the named component and starts a fresh one in its place.
// It is the retry path for a collector that stopped on an error.
func (s *Session) Restart(name string) (Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	for _, b := range s.bindings {
		if b.Name != name {
			continue
		}
		s.components[name].Cancel()
		c := b.Start(s.ctx)
		s.components[name] = c
		s.started = append(s.started, c)
		s.logger.Info("component restarted", "session", s.id, "component", name)
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
}

// Close cancels every component. It returns without waiting for in-flight
// fetches; use Done for that. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := append([]Component(nil), s.started...)
		for _, c := range s.components {
			c.Cancel()
		}
		s.mu.Unlock()

		s.cancel()
		if s.onClose != nil {
			s.onClose(s)
		}
		s.logger.Debug("session closed", "session", s.id)

		go func() {
			for _, c := range started {
				<-c.Done()
			}
			close(s.done)
		}()
	})
}

// Done is closed after Close once every component goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
