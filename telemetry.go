package boardlink

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is one telemetry field: a number when the device sent one, text otherwise
type Value struct {
	Number  float64
	Text    string
	Numeric bool
}

// NumberValue returns a numeric Value
func NumberValue(f float64) Value {
	return Value{Number: f, Text: strconv.FormatFloat(f, 'g', -1, 64), Numeric: true}
}

// TextValue returns a non-numeric Value
func TextValue(s string) Value {
	return Value{Text: s}
}

func (v Value) String() string {
	return v.Text
}

// MarshalJSON encodes numbers as JSON numbers and everything else as strings
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// TelemetryFrame is the set of fields decoded from one line
type TelemetryFrame map[string]Value

// Line is a decoded protocol line. Frame is nil when Text did not have
// telemetry shape and should be treated as free-form device output.
type Line struct {
	Text  string
	Frame TelemetryFrame
}

// IsTelemetry reports whether the line decoded as a telemetry frame
func (l Line) IsTelemetry() bool {
	return l.Frame != nil
}

// ParseLine decodes "key:value,key:value" lines. Any segment without a
// non-empty key and value makes the whole line raw; no partial frames.
func ParseLine(line string) Line {
	result := Line{Text: line}
	if strings.TrimSpace(line) == "" {
		return result
	}

	segments := strings.Split(line, ",")
	frame := make(TelemetryFrame, len(segments))
	for _, seg := range segments {
		key, value, ok := strings.Cut(seg, ":")
		if !ok {
			return result
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return result
		}
		frame[key] = parseValue(value)
	}

	result.Frame = frame
	return result
}

func parseValue(s string) Value {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return TextValue(s)
	}
	return Value{Number: f, Text: s, Numeric: true}
}
