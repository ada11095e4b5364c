package ui

import "github.com/charmbracelet/bubbles/table"

// chromeHeight is the number of rows taken by header, tabs, banner and footer.
const chromeHeight = 6

// refreshTable rebuilds columns and rows for the active tab from the last
// snapshot, keeping the cursor inside the new row range.
func (m *Model) refreshTable() {
	var cols []table.Column
	var rows []table.Row
	query := m.filter.Value()

	switch m.tab {
	case TabArrivals:
		cols = arrivalColumns()
		rows = arrivalRows(m.snap.arrivals.Items, query)
	case TabVessels:
		cols = vesselColumns()
		rows = vesselRows(m.snap.vessels, query)
	default:
		cols = portCallColumns()
		rows = portCallRows(m.snap.portCalls.Items, query)
	}

	// Rows must be cleared first: the table renders existing rows against
	// the new column count.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)

	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m *Model) resizeTable() {
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(m.height-chromeHeight, 3))
}
