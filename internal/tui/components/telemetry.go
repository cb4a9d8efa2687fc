package components

import (
	"sort"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKey     = "key"
	columnValue   = "value"
	columnUpdated = "updated"
	columnCount   = "count"
)

type reading struct {
	value   boardlink.Value
	updated time.Time
	count   int
}

// TelemetryTable shows the most recent value of every telemetry key seen
// during the session
type TelemetryTable struct {
	readings map[string]reading
	width    int
	height   int
}

func NewTelemetryTable() *TelemetryTable {
	return &TelemetryTable{readings: make(map[string]reading)}
}

func (t *TelemetryTable) SetSize(width, height int) {
	t.width = width
	t.height = height
}

// Observe merges a frame into the table, stamped with when it was received
func (t *TelemetryTable) Observe(frame boardlink.TelemetryFrame, at time.Time) {
	for k, v := range frame {
		r := t.readings[k]
		t.readings[k] = reading{value: v, updated: at, count: r.count + 1}
	}
}

// Value returns the latest reading for key
func (t *TelemetryTable) Value(key string) (boardlink.Value, bool) {
	r, ok := t.readings[key]
	return r.value, ok
}

func (t *TelemetryTable) Len() int {
	return len(t.readings)
}

func (t *TelemetryTable) Reset() {
	t.readings = make(map[string]reading)
}

func (t *TelemetryTable) keys() []string {
	keys := make([]string, 0, len(t.readings))
	for k := range t.readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *TelemetryTable) rows() []table.Row {
	rows := make([]table.Row, 0, len(t.readings))
	for _, k := range t.keys() {
		r := t.readings[k]
		valueColor := styles.Text
		if r.value.Numeric {
			valueColor = styles.Teal
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKey:     k,
			columnValue:   table.NewStyledCell(r.value.String(), lipgloss.NewStyle().Foreground(valueColor)),
			columnUpdated: r.updated.Format("15:04:05.000"),
			columnCount:   r.count,
		}))
	}
	return rows
}

// Height is the number of lines View renders
func (t *TelemetryTable) Height() int {
	if len(t.readings) == 0 {
		return 0
	}
	// header, rows, three border lines
	h := len(t.readings) + 4
	if t.height > 4 && h > t.height {
		return t.height
	}
	return h
}

func (t *TelemetryTable) View() string {
	if len(t.readings) == 0 {
		return ""
	}

	width := t.width
	if width <= 0 {
		width = 80
	}
	columns := []table.Column{
		table.NewFlexColumn(columnKey, "Key", 2),
		table.NewFlexColumn(columnValue, "Value", 3),
		table.NewColumn(columnUpdated, "Updated", 14),
		table.NewColumn(columnCount, "Frames", 8),
	}

	model := table.New(columns).
		WithRows(t.rows()).
		WithTargetWidth(width).
		HeaderStyle(lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true)).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(styles.Subtext1).
			BorderForeground(styles.Surface2).
			Align(lipgloss.Left)).
		BorderRounded()

	if t.height > 4 && len(t.readings) > t.height-4 {
		model = model.WithPageSize(t.height - 6)
	}
	return model.View()
}
