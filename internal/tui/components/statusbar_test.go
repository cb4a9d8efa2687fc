package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/allbin/go-boardlink"
)

func TestLineSettings(t *testing.T) {
	tests := []struct {
		name string
		opts []boardlink.Option
		want string
	}{
		{"default", nil, "9600 8N1"},
		{"fast even", []boardlink.Option{boardlink.WithBaudRate(115200), boardlink.WithParity(boardlink.ParityEven)}, "115200 8E1"},
		{"seven bits two stops", []boardlink.Option{boardlink.WithDataBits(7), boardlink.WithStopBits(2)}, "9600 7N2"},
		{"flow control", []boardlink.Option{boardlink.WithFlowControl(boardlink.FlowControlRTSCTS)}, "9600 8N1 RTS/CTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := boardlink.NewConfig(tt.opts...)
			if err != nil {
				t.Fatalf("NewConfig() error = %v", err)
			}
			if got := LineSettings(config); got != tt.want {
				t.Errorf("LineSettings() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusBarView(t *testing.T) {
	sb := NewStatusBar(boardlink.DefaultConfig())
	sb.SetWidth(120)

	view := sb.View("NORMAL", "12:00:00")
	for _, want := range []string{"NORMAL", "no device", "disconnected", "9600 8N1", "12:00:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	sb.SetState(boardlink.StateReading, nil)
	sb.SetDevice(boardlink.DeviceDescriptor{DisplayName: "Arduino Uno", Path: "/dev/ttyACM0"}, "0123456789abcdef")
	view = sb.View("INSERT", "12:00:01")
	for _, want := range []string{"INSERT", "Arduino Uno", "reading", "/dev/ttyACM0", "#01234567"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	sb.SetState(boardlink.StateError, errors.New("unplugged"))
	view = sb.View("NORMAL", "12:00:02")
	if !strings.Contains(view, "error: unplugged") {
		t.Errorf("View() missing error text:\n%s", view)
	}

	sb.SetState(boardlink.StateDisconnected, nil)
	if view = sb.View("NORMAL", ""); strings.Contains(view, "Arduino Uno") {
		t.Errorf("View() still shows device after disconnect:\n%s", view)
	}
}
