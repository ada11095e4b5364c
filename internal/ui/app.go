package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/herratomsiili/portwatch/internal/collector"
	"github.com/herratomsiili/portwatch/internal/logging"
	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/reconciler"
	"github.com/herratomsiili/portwatch/internal/session"
)

// Tab is one of the dashboard views.
type Tab int

const (
	TabPortCalls Tab = iota
	TabArrivals
	TabVessels
)

var tabOrder = []Tab{TabPortCalls, TabArrivals, TabVessels}

func (t Tab) String() string {
	switch t {
	case TabArrivals:
		return "Arrivals"
	case TabVessels:
		return "Vessels"
	default:
		return "Port calls"
	}
}

// Key returns the preference value for the tab.
func (t Tab) Key() string {
	switch t {
	case TabArrivals:
		return "arrivals"
	case TabVessels:
		return "vessels"
	default:
		return "portcalls"
	}
}

// ParseTab maps a preference value to a tab, defaulting to port calls.
func ParseTab(s string) Tab {
	for _, t := range tabOrder {
		if t.Key() == s {
			return t
		}
	}
	return TabPortCalls
}

// Options configures the dashboard.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Tick      time.Duration
	ThemeName string
	Tab       string
	PrefsPath string
	Logger    *log.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	session   *session.Session
	prefsPath string
	tick      time.Duration
	logger    *log.Logger

	theme  Theme
	tab    Tab
	width  int
	height int
	ready  bool

	spinner   spinner.Model
	table     table.Model
	filter    textinput.Model
	filtering bool

	snap   snapshot
	notice string
}

// snapshot is everything the dashboard renders, read in one pass.
type snapshot struct {
	status    session.Status
	portCalls collector.CollectionState[portman.PortCall]
	arrivals  collector.CollectionState[portman.Arrival]
	vessels   reconciler.Registry[int64, portman.VesselLocation]
	hasCalls  bool
	hasArr    bool
	hasVessel bool
	at        time.Time
}

func takeSnapshot(s *session.Session) snapshot {
	snap := snapshot{at: time.Now()}
	if s == nil {
		return snap
	}
	snap.status = s.Status()
	if h, ok := session.Lookup[*collector.Handle[portman.PortCall]](s, portman.SourceVoyages); ok {
		snap.portCalls, snap.hasCalls = h.Snapshot(), true
	}
	if h, ok := session.Lookup[*collector.Handle[portman.Arrival]](s, portman.SourceArrivals); ok {
		snap.arrivals, snap.hasArr = h.Snapshot(), true
	}
	if h, ok := session.Lookup[*reconciler.Handle[int64, portman.VesselLocation]](s, portman.SourceVessels); ok {
		snap.vessels, snap.hasVessel = h.Snapshot(), true
	}
	return snap
}

// New creates the dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}

	theme := GetTheme(opts.ThemeName)

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	t.SetStyles(theme.TableStyles())

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "vessel, IMO, MMSI or port area"
	filter.CharLimit = 64

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:       ctx,
		session:   opts.Session,
		prefsPath: opts.PrefsPath,
		tick:      tick,
		logger:    logging.OrDiscard(opts.Logger),
		theme:     theme,
		tab:       ParseTab(opts.Tab),
		spinner:   sp,
		table:     t,
		filter:    filter,
	}
	m.refreshTable()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(m.tick),
		fetchSnapshotCmd(m.session),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeTable()
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		return m, tea.Batch(fetchSnapshotCmd(m.session), tickCmd(m.tick))

	case snapshotMsg:
		m.snap = snapshot(msg)
		m.refreshTable()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

// Messages

type tickMsg time.Time

type snapshotMsg snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(takeSnapshot(s))
	}
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
