package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herratomsiili/portwatch/internal/collector"
	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/prefs"
	"github.com/herratomsiili/portwatch/internal/reconciler"
	"github.com/herratomsiili/portwatch/internal/session"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// openSession starts voyages, arrivals and vessels components backed by
// static data. The voyages fetch fails until voyagesUp is set.
func openSession(t *testing.T, voyagesUp *atomic.Bool) *session.Session {
	t.Helper()

	voyages := func(context.Context, string) (collector.Page[portman.PortCall], error) {
		if !voyagesUp.Load() {
			return collector.Page[portman.PortCall]{}, errors.New("portman unavailable")
		}
		return collector.Page[portman.PortCall]{Items: []portman.PortCall{
			{PortCallID: 1, VesselName: "Finnmaid"},
			{PortCallID: 2, VesselName: "Finlandia"},
		}}, nil
	}
	arrivals := func(context.Context, string) (collector.Page[portman.Arrival], error) {
		return collector.Page[portman.Arrival]{Items: []portman.Arrival{{ID: 5, PortCallID: 1}}}, nil
	}
	vessels := func(context.Context) ([]portman.VesselLocation, error) {
		return []portman.VesselLocation{{MMSI: 230000001}, {MMSI: 230000002}, {MMSI: 230000003}}, nil
	}

	s, err := session.NewCoordinator().Open(context.Background(), session.Config{
		Collector: session.Collect(portman.SourceVoyages,
			collector.New(portman.PortCallKey, collector.WithPageDelay(0)), voyages),
		Reconciler: session.Reconcile(portman.SourceVessels,
			reconciler.New(portman.VesselKey), vessels, time.Hour),
		Extra: []session.Binding{*session.Collect(portman.SourceArrivals,
			collector.New(portman.ArrivalKey, collector.WithPageDelay(0)), arrivals)},
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func settled(s *session.Session) bool {
	st := s.Status()
	return !st.Loading
}

func TestModel_RendersSnapshotPerTab(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	up.Store(true)
	s := openSession(t, &up)
	require.Eventually(t, func() bool { return settled(s) }, 5*time.Second, time.Millisecond)

	m := New(Options{Session: s})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = update(t, m, snapshotMsg(takeSnapshot(s)))

	assert.Equal(t, TabPortCalls, m.tab)
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "portwatch")
	assert.Contains(t, m.View(), "IDLE")

	m = update(t, m, runes("2"))
	assert.Equal(t, TabArrivals, m.tab)
	assert.Len(t, m.table.Rows(), 1)
	assert.Len(t, m.table.Columns(), len(arrivalColumns()))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabVessels, m.tab)
	assert.Len(t, m.table.Rows(), 3)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabPortCalls, m.tab, "tab wraps around")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabVessels, m.tab)
}

func TestModel_FilterNarrowsRows(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	up.Store(true)
	s := openSession(t, &up)
	require.Eventually(t, func() bool { return settled(s) }, 5*time.Second, time.Millisecond)

	m := New(Options{Session: s})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = update(t, m, snapshotMsg(takeSnapshot(s)))
	require.Len(t, m.table.Rows(), 2)

	m = update(t, m, runes("/"))
	require.True(t, m.filtering)
	for _, r := range "maid" {
		m = update(t, m, runes(string(r)))
	}
	assert.Len(t, m.table.Rows(), 1)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	assert.Len(t, m.table.Rows(), 1, "filter stays applied")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.table.Rows(), 2)
}

func TestModel_RetryRestartsFailedCollection(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	s := openSession(t, &up)
	require.Eventually(t, func() bool { return s.Status().Phase() == session.PhaseError }, 5*time.Second, time.Millisecond)

	m := New(Options{Session: s})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = update(t, m, snapshotMsg(takeSnapshot(s)))
	assert.Contains(t, m.View(), "portman unavailable")

	up.Store(true)
	m = update(t, m, runes("r"))
	assert.Equal(t, "restarting "+portman.SourceVoyages, m.notice)

	require.Eventually(t, func() bool { return s.Status().Phase() == session.PhaseIdle }, 5*time.Second, time.Millisecond)
	m = update(t, m, snapshotMsg(takeSnapshot(s)))
	assert.Len(t, m.table.Rows(), 2)
	assert.NotContains(t, m.View(), "portman unavailable")

	m = update(t, m, runes("r"))
	assert.Contains(t, m.notice, "no error to retry")

	m = update(t, m, runes("3"))
	m = update(t, m, runes("r"))
	assert.Equal(t, "refreshing vessel positions", m.notice)
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{PrefsPath: path, ThemeName: "Nightfox", Tab: "vessels"})
	assert.Equal(t, TabVessels, m.tab)

	m = update(t, m, runes("T"))
	assert.Equal(t, "Kanagawa", m.theme.Name)

	p, err := prefs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", p.Theme)
	assert.Equal(t, "vessels", p.Tab)
}

func TestModel_QuitAndTickStopOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m := New(Options{Context: ctx})

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	cancel()
	_, cmd = m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ViewBeforeResize(t *testing.T) {
	t.Parallel()

	m := New(Options{})
	assert.True(t, strings.HasPrefix(m.View(), "Loading"))
}

func TestParseTab(t *testing.T) {
	t.Parallel()

	for _, tab := range tabOrder {
		assert.Equal(t, tab, ParseTab(tab.Key()))
	}
	assert.Equal(t, TabPortCalls, ParseTab("bogus"))
}
