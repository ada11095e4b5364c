package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/herratomsiili/portwatch/internal/session"
)

// renderMain stacks the header, tabs, optional error banner, table and footer.
func (m Model) renderMain() string {
	parts := []string{m.renderHeader(), m.renderTabs()}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, m.table.View(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader shows the merged session phase and per-source counts.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	var phase string
	switch m.snap.status.Phase() {
	case session.PhaseError:
		phase = styles.DangerText.Render("ERROR")
	case session.PhaseLoading:
		phase = m.spinner.View() + styles.WarningText.Render(" LOADING")
	default:
		phase = styles.SuccessText.Render("IDLE")
	}

	parts := []string{styles.Logo.Render("portwatch"), phase}
	if m.snap.hasCalls {
		parts = append(parts, m.countLabel("calls", len(m.snap.portCalls.Items), m.snap.portCalls.IsDraining))
	}
	if m.snap.hasArr {
		parts = append(parts, m.countLabel("arrivals", len(m.snap.arrivals.Items), m.snap.arrivals.IsDraining))
	}
	if m.snap.hasVessel {
		label := m.countLabel("vessels", m.snap.vessels.Len(), m.snap.vessels.Polls == 0)
		if m.snap.vessels.IsOffline() {
			label += " " + styles.DangerText.Render("offline")
		}
		parts = append(parts, label)
	}
	if !m.snap.at.IsZero() {
		parts = append(parts, styles.MutedText.Render(m.snap.at.Format("15:04:05")))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) countLabel(name string, n int, loading bool) string {
	styles := m.theme.Styles()
	text := fmt.Sprintf("%s %d", name, n)
	if loading {
		return styles.WarningText.Render(text + "…")
	}
	return styles.Text.Render(text)
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(tabOrder))
	for i, t := range tabOrder {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.tab {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.filtering || m.filter.Value() != "" {
		row += "  " + m.filter.View()
	}
	return row
}

// renderBanner surfaces the first error in the session, if any.
func (m Model) renderBanner() string {
	err := m.snap.status.Err
	if err == nil {
		return ""
	}
	source := ""
	for _, c := range m.snap.status.Components {
		if c.Err == err {
			source = c.Name + ": "
			break
		}
	}
	text := fmt.Sprintf("%s%s (%s) at %s, press r to retry",
		source, err.Message, err.Kind, err.At.Local().Format("15:04:05"))
	return m.theme.Styles().Banner.Width(m.width).Render(text)
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	help := make([]string, 0, len(keys.ShortHelp()))
	for _, b := range keys.ShortHelp() {
		h := b.Help()
		help = append(help, styles.AccentText.Render(h.Key)+" "+h.Desc)
	}
	line := strings.Join(help, "  ")
	if m.notice != "" {
		line = styles.WarningText.Render(m.notice) + "  " + line
	}
	return styles.Footer.Width(m.width).Render(line)
}
