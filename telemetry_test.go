package boardlink

import (
	"encoding/json"
	"testing"
)

func TestParseLineTelemetry(t *testing.T) {
	line := ParseLine("temp:25.5,humidity:60")
	if !line.IsTelemetry() {
		t.Fatalf("ParseLine() returned raw line %q", line.Text)
	}
	if len(line.Frame) != 2 {
		t.Errorf("len(Frame) = %d, want 2", len(line.Frame))
	}

	want := map[string]float64{"temp": 25.5, "humidity": 60}
	for key, num := range want {
		v, ok := line.Frame[key]
		if !ok {
			t.Errorf("Frame missing %q", key)
			continue
		}
		if !v.Numeric || v.Number != num {
			t.Errorf("Frame[%q] = %+v, want number %v", key, v, num)
		}
	}
}

func TestParseLineRaw(t *testing.T) {
	tests := []string{
		"Booting up...",
		"",
		"   ",
		"temp:25.5,Booting",
		"temp:25.5,",
		":25.5",
		"temp:",
		"temp: ,hum:3",
		",",
	}
	for _, in := range tests {
		line := ParseLine(in)
		if line.IsTelemetry() {
			t.Errorf("ParseLine(%q) = frame %v, want raw line", in, line.Frame)
		}
		if line.Text != in {
			t.Errorf("ParseLine(%q).Text = %q, want exact input", in, line.Text)
		}
	}
}

func TestParseLineValues(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		numeric bool
		number  float64
		text    string
	}{
		{"state:idle", "state", false, 0, "idle"},
		{" temp : -3.5 ", "temp", true, -3.5, "-3.5"},
		{"time:12:30", "time", false, 0, "12:30"},
		{"big:1e3", "big", true, 1000, "1e3"},
		{"x:Inf", "x", false, 0, "Inf"},
		{"x:NaN", "x", false, 0, "NaN"},
		{"a:1,a:2", "a", true, 2, "2"},
	}
	for _, tt := range tests {
		line := ParseLine(tt.in)
		if !line.IsTelemetry() {
			t.Errorf("ParseLine(%q) returned raw line", tt.in)
			continue
		}
		v := line.Frame[tt.key]
		if v.Numeric != tt.numeric || v.Number != tt.number || v.Text != tt.text {
			t.Errorf("ParseLine(%q)[%q] = %+v, want numeric=%v number=%v text=%q",
				tt.in, tt.key, v, tt.numeric, tt.number, tt.text)
		}
	}
}

func FuzzParseLine(f *testing.F) {
	f.Add("temp:25.5,humidity:60")
	f.Add("Booting up...")
	f.Add(":,:")
	f.Fuzz(func(t *testing.T, in string) {
		line := ParseLine(in)
		if line.Text != in {
			t.Errorf("Text = %q, want %q", line.Text, in)
		}
	})
}

func TestValueJSON(t *testing.T) {
	frame := TelemetryFrame{
		"temp":  NumberValue(22.5),
		"state": TextValue("idle"),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got, want := string(data), `{"state":"idle","temp":22.5}`; got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
