package components

import (
	"strings"

	"github.com/allbin/go-boardlink"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// LogView is a scrolling viewport over log entries. It follows new entries
// until the user scrolls up.
type LogView struct {
	viewport  viewport.Model
	formatter *LogFormatter
	entries   []boardlink.LogEntry
	capacity  int
	follow    bool
}

func NewLogView(width, height, capacity int) *LogView {
	if capacity <= 0 {
		capacity = boardlink.DefaultLogCapacity
	}
	return &LogView{
		viewport:  viewport.New(width, height),
		formatter: NewLogFormatter(DisplayMode{ShowTime: true}),
		capacity:  capacity,
		follow:    true,
	}
}

func (v *LogView) SetSize(width, height int) {
	v.viewport.Width = width
	v.viewport.Height = height
	v.refresh()
}

func (v *LogView) Width() int {
	return v.viewport.Width
}

// Add appends an entry, evicting the oldest beyond capacity
func (v *LogView) Add(e boardlink.LogEntry) {
	v.entries = append(v.entries, e)
	if len(v.entries) > v.capacity {
		v.entries = v.entries[len(v.entries)-v.capacity:]
	}
	v.refresh()
}

// SetEntries replaces the contents, e.g. with Controller.Logs
func (v *LogView) SetEntries(entries []boardlink.LogEntry) {
	v.entries = append(v.entries[:0], entries...)
	v.refresh()
}

func (v *LogView) Entries() []boardlink.LogEntry {
	return v.entries
}

func (v *LogView) Clear() {
	v.entries = v.entries[:0]
	v.refresh()
}

func (v *LogView) ToggleHex() {
	v.formatter.ToggleHex()
	v.refresh()
}

func (v *LogView) ToggleTime() {
	v.formatter.ToggleTime()
	v.refresh()
}

func (v *LogView) Mode() DisplayMode {
	return v.formatter.Mode()
}

func (v *LogView) Following() bool {
	return v.follow
}

func (v *LogView) ScrollUp() {
	v.viewport.LineUp(1)
	v.follow = v.viewport.AtBottom()
}

func (v *LogView) ScrollDown() {
	v.viewport.LineDown(1)
	v.follow = v.viewport.AtBottom()
}

func (v *LogView) GotoTop() {
	v.viewport.GotoTop()
	v.follow = false
}

func (v *LogView) GotoBottom() {
	v.viewport.GotoBottom()
	v.follow = true
}

func (v *LogView) refresh() {
	v.viewport.SetContent(strings.Join(v.formatter.FormatAll(v.entries), "\n"))
	if v.follow {
		v.viewport.GotoBottom()
	}
}

// Update forwards only mouse wheel events so key bindings stay with the model
func (v *LogView) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.MouseMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	v.follow = v.viewport.AtBottom()
	return cmd
}

func (v *LogView) View() string {
	return v.viewport.View()
}
