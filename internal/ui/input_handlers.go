package ui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/prefs"
	"github.com/herratomsiili/portwatch/internal/reconciler"
	"github.com/herratomsiili/portwatch/internal/session"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterInput(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Tab):
		m.switchTab(m.tab.next(1))
		return m, nil
	case key.Matches(msg, keys.ShiftTab):
		m.switchTab(m.tab.next(-1))
		return m, nil
	case key.Matches(msg, keys.ViewPortCalls):
		m.switchTab(TabPortCalls)
		return m, nil
	case key.Matches(msg, keys.ViewArrivals):
		m.switchTab(TabArrivals)
		return m, nil
	case key.Matches(msg, keys.ViewVessels):
		m.switchTab(TabVessels)
		return m, nil
	case key.Matches(msg, keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.refreshTable()
		}
		return m, nil
	case key.Matches(msg, keys.Retry):
		m.notice = m.retry()
		return m, fetchSnapshotCmd(m.session)
	case key.Matches(msg, keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(m.theme.TableStyles())
		m.savePrefs()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, keys.Confirm):
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case key.Matches(msg, keys.Escape):
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.refreshTable()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refreshTable()
	return m, cmd
}

func (t Tab) next(step int) Tab {
	n := len(tabOrder)
	return tabOrder[((int(t)+step)%n+n)%n]
}

func (m *Model) switchTab(t Tab) {
	if m.tab == t {
		return
	}
	m.tab = t
	m.refreshTable()
	m.table.GotoTop()
	m.savePrefs()
}

// retry re-polls the vessel registry or restarts the collection shown on the
// active tab. A collection is only restarted after it has failed.
func (m *Model) retry() string {
	if m.session == nil {
		return ""
	}
	switch m.tab {
	case TabVessels:
		h, ok := session.Lookup[*reconciler.Handle[int64, portman.VesselLocation]](m.session, portman.SourceVessels)
		if !ok {
			return "vessel tracking is disabled"
		}
		h.Refresh()
		return "refreshing vessel positions"
	default:
		name := portman.SourceVoyages
		if m.tab == TabArrivals {
			name = portman.SourceArrivals
		}
		c, ok := m.session.Component(name)
		if !ok {
			return name + " is disabled"
		}
		if c.Status().Err == nil {
			return name + " has no error to retry"
		}
		if _, err := m.session.Restart(name); err != nil {
			if errors.Is(err, session.ErrClosed) {
				return "session closed"
			}
			m.logger.Warn("restart failed", "component", name, "err", err)
			return "restart failed: " + err.Error()
		}
		m.logger.Info("restarted collection", "component", name)
		return "restarting " + name
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, Tab: m.tab.Key()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save preferences", "path", m.prefsPath, "err", err)
	}
}
