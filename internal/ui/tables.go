package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/reconciler"
)

const displayTimeLayout = "01-02 15:04"

func portCallColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 9},
		{Title: "Vessel", Width: 22},
		{Title: "IMO", Width: 8},
		{Title: "Port area", Width: 18},
		{Title: "Berth", Width: 14},
		{Title: "ETA", Width: 11},
		{Title: "ATA", Width: 11},
		{Title: "Status", Width: 9},
	}
}

func arrivalColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 7},
		{Title: "Call", Width: 9},
		{Title: "Vessel", Width: 22},
		{Title: "Port area", Width: 18},
		{Title: "Berth", Width: 14},
		{Title: "ATA", Width: 11},
		{Title: "Prev ATA", Width: 11},
		{Title: "Kind", Width: 8},
	}
}

func vesselColumns() []table.Column {
	return []table.Column{
		{Title: "MMSI", Width: 10},
		{Title: "Lat", Width: 9},
		{Title: "Lon", Width: 9},
		{Title: "SOG", Width: 6},
		{Title: "COG", Width: 6},
		{Title: "Hdg", Width: 4},
		{Title: "Reported", Width: 11},
	}
}

func portCallRows(calls []portman.PortCall, query string) []table.Row {
	rows := make([]table.Row, 0, len(calls))
	for _, c := range calls {
		if !matches(query, c.VesselName, strconv.FormatInt(c.IMO, 10), c.PortAreaName, c.PortToVisit) {
			continue
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(c.PortCallID, 10),
			c.VesselName,
			formatID(c.IMO),
			c.PortAreaName,
			c.BerthName,
			formatTime(c.ParsedETA()),
			formatTime(c.ParsedATA()),
			string(c.Status()),
		})
	}
	return rows
}

func arrivalRows(arrivals []portman.Arrival, query string) []table.Row {
	rows := make([]table.Row, 0, len(arrivals))
	for _, a := range arrivals {
		if !matches(query, a.VesselName, a.PortAreaName, strconv.FormatInt(a.PortCallID, 10)) {
			continue
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(a.ID, 10),
			strconv.FormatInt(a.PortCallID, 10),
			a.VesselName,
			a.PortAreaName,
			a.BerthName,
			formatTime(a.ParsedATA()),
			formatTime(a.ParsedOldATA()),
			arrivalKind(a),
		})
	}
	return rows
}

func vesselRows(reg reconciler.Registry[int64, portman.VesselLocation], query string) []table.Row {
	locs := reconciler.Sorted(reg)
	rows := make([]table.Row, 0, len(locs))
	for _, v := range locs {
		if !matches(query, v.MMSIString()) {
			continue
		}
		rows = append(rows, table.Row{
			v.MMSIString(),
			fmt.Sprintf("%.4f", v.Lat),
			fmt.Sprintf("%.4f", v.Lon),
			fmt.Sprintf("%.1f", v.SOG),
			fmt.Sprintf("%.0f", v.COG),
			formatHeading(v.Heading),
			formatTime(v.ReportedAt()),
		})
	}
	return rows
}

func arrivalKind(a portman.Arrival) string {
	if a.Updated() {
		return "updated"
	}
	return "new"
}

// matches reports whether any field contains query, ignoring case.
func matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(displayTimeLayout)
}

func formatID(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

// formatHeading hides the AIS "not available" value 511.
func formatHeading(h int) string {
	if h < 0 || h >= 360 {
		return "-"
	}
	return strconv.Itoa(h)
}
