package components

import (
	"strings"
	"testing"
	"time"

	"github.com/allbin/go-boardlink"
)

func TestTelemetryTableObserve(t *testing.T) {
	tbl := NewTelemetryTable()
	if tbl.Height() != 0 || tbl.View() != "" {
		t.Fatal("empty table should render nothing")
	}

	now := time.Now()
	tbl.Observe(boardlink.ParseLine("temp:22.1,humidity:45").Frame, now)
	tbl.Observe(boardlink.ParseLine("temp:23.5,status:ok").Frame, now.Add(time.Second))

	if got := tbl.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	v, ok := tbl.Value("temp")
	if !ok || v.Number != 23.5 {
		t.Errorf("Value(temp) = %v, %v, want 23.5", v, ok)
	}
	if v, _ := tbl.Value("humidity"); v.Number != 45 {
		t.Errorf("Value(humidity) = %v, want 45 kept from earlier frame", v)
	}

	tbl.SetSize(100, 40)
	view := tbl.View()
	for _, want := range []string{"Key", "Value", "temp", "23.5", "status", "ok"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
	if got := tbl.Height(); got != 7 {
		t.Errorf("Height() = %d, want 7", got)
	}

	tbl.Reset()
	if tbl.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", tbl.Len())
	}
}

func TestTelemetryTableHeightBounded(t *testing.T) {
	tbl := NewTelemetryTable()
	frame := boardlink.TelemetryFrame{}
	for _, k := range strings.Split("a b c d e f g h i j k l", " ") {
		frame[k] = boardlink.NumberValue(1)
	}
	tbl.Observe(frame, time.Now())
	tbl.SetSize(80, 10)

	if got := tbl.Height(); got != 10 {
		t.Errorf("Height() = %d, want 10", got)
	}
}
